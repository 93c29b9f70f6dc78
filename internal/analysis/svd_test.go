package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

func TestTruncateSVD_FullRankRoundTrip(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})

	out, warnings, err := TruncateSVD(m, 3)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, m.At(j, i), out.At(j, i), 1e-10)
		}
	}
}

func TestTruncateSVD_RankOneMatrix(t *testing.T) {
	// Outer product of two vectors: one singular triplet rebuilds it exactly.
	m := mat.NewDense(3, 2, []float64{
		2, 4,
		3, 6,
		5, 10,
	})

	out, warnings, err := TruncateSVD(m, 1)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	for j := 0; j < 3; j++ {
		for i := 0; i < 2; i++ {
			assert.InDelta(t, m.At(j, i), out.At(j, i), 1e-10)
		}
	}
}

func TestTruncateSVD_ClampsExcessCoefficients(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})

	out, warnings, err := TruncateSVD(m, 5)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.RankDeficiencyWarning, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "clamping")
	// Clamped to full rank, so the reconstruction is still exact.
	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, m.At(j, i), out.At(j, i), 1e-10)
		}
	}
}

func TestTruncateSVD_DropsSmallSingularValues(t *testing.T) {
	// Rank-2 matrix truncated to one triplet keeps the dominant structure
	// but no longer matches the original.
	m := mat.NewDense(2, 2, []float64{
		10, 0,
		0, 1,
	})

	out, warnings, err := TruncateSVD(m, 1)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.InDelta(t, 10, out.At(0, 0), 1e-10)
	assert.InDelta(t, 0, out.At(1, 1), 1e-10)
}
