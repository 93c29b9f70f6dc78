// Package domain models tropical-cyclone (TC) diagnostic quantities computed
// from gridded atmosphere and ocean analyses.
//
// # Data Source
//
// Input fields come from GFS/RTOFS-style analysis files. An experiment YAML
// document declares, per variable, either a direct read (file path, variable
// name, axis flags, affine scaling, units) or a derivation from other
// declared variables. TC center positions ("fixes") come from a TC-vitals
// style attributes document keyed by TC identifier.
//
// # Grid Conventions
//
// Gridded fields are stored as dense arrays shaped (level, lat, lon) or
// (lat, lon). All fields resolved within one run share a single axis
// orientation: latitude north-to-south and vertical bottom-to-top (index 0
// is the surface) after the configured flip_lat / flip_z flags are applied. Latitude and longitude
// coordinate arrays are always 2-D; 1-D coordinates read from file are
// broadcast to the grid shape.
//
// TC-relative fields live on a polar (radius, azimuth) grid centered on a
// fix. Radii are meters from the center, azimuths are radians in [0, 2π)
// measured clockwise from north, matching the heading convention of
// [BearingGeoloc].
//
// # Diagnostics
//
//   - Potential intensity (Bister and Emanuel 2002): theoretical maximum
//     wind speed and minimum central pressure from ambient thermodynamics.
//   - Multi-scale intensity (Vukicevic et al. 2014): azimuthal wavenumber
//     decomposition of the 10-meter wind field around the fix.
//   - Steering flow (Velden and Leslie 1991): layer-mean environmental wind
//     with the TC circulation removed by a truncated SVD filter, partitioned
//     into rotational, divergent, and harmonic components.
//   - Ocean heat content (Leipper and Volgenau 1972): heat energy integrated
//     from the surface to the depth of a reference isotherm (TCHP).
//
// # Missing Data
//
// NaN is the missing-value sentinel throughout. Polar-grid cells that fall
// outside the source analysis domain, potential-intensity columns above the
// terrain cutoff, and isotherm columns that never reach the target
// temperature all carry NaN or the configured fill value.
package domain
