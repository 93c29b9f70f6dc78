package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// TruncateSVD factorizes m with a thin singular value decomposition, retains
// the leading ncoeffs singular triplets, and returns the reconstruction. When
// ncoeffs exceeds the available rank it is clamped and a RankDeficiencyWarning
// is returned alongside the result instead of failing.
func TruncateSVD(m *mat.Dense, ncoeffs int) (*mat.Dense, []domain.Warning, error) {
	r, c := m.Dims()
	rank := min(r, c)

	var warnings []domain.Warning
	if ncoeffs > rank {
		warnings = append(warnings, domain.Warning{
			Kind: domain.RankDeficiencyWarning,
			Message: fmt.Sprintf("requested %d singular triplets but the %dx%d matrix has rank at most %d; clamping",
				ncoeffs, r, c, rank),
		})
		ncoeffs = rank
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, warnings, fmt.Errorf("svd factorization failed for %dx%d matrix", r, c)
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	out := mat.NewDense(r, c, nil)
	for k := 0; k < ncoeffs; k++ {
		var outer mat.Dense
		outer.Outer(values[k], u.ColView(k), v.ColView(k))
		out.Add(out, &outer)
	}
	return out, warnings, nil
}
