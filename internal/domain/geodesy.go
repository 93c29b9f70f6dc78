package domain

import (
	"math"

	"bitbucket.org/ctessum/sparse"
)

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371.0e3

// BearingGeoloc returns the geographic coordinate reached by traveling
// dist meters from (lat, lon) along the great circle with the given heading,
// degrees clockwise from north.
func BearingGeoloc(lat, lon, heading, dist float64) (float64, float64) {
	phi1 := lat * math.Pi / 180
	lam1 := lon * math.Pi / 180
	theta := heading * math.Pi / 180
	delta := dist / earthRadius

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lam2 := lam1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return phi2 * 180 / math.Pi, lam2 * 180 / math.Pi
}

// Haversine returns the great-circle distance in meters between two
// geographic coordinates in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

// RadialDistance returns the per-cell great-circle distance in meters from
// the fix to every point of the 2-D coordinate mesh.
func RadialDistance(fix TCFix, lats, lons *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(lats.Shape...)
	for i, lat := range lats.Elements {
		out.Elements[i] = Haversine(fix.Lat, fix.Lon, lat, lons.Elements[i])
	}
	return out
}
