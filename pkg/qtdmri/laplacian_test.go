package qtdmri

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func laplacianEigenvalues(t *testing.T, l *mat.SymDense) []float64 {
	t.Helper()
	var es mat.EigenSym
	require.True(t, es.Factorize(l, false))
	vals := es.Values(nil)
	sort.Float64s(vals)
	return vals
}

// The regularization matrix is a Gram matrix of Laplacians and must be
// positive semidefinite for any scales.
func TestLaplacianPositiveSemidefinite(t *testing.T) {
	tab := testTable(t)
	for _, cartesian := range []bool{true, false} {
		m, err := NewModel(tab, Options{RadialOrder: 4, TimeOrder: 2, Cartesian: cartesian})
		require.NoError(t, err)
		l := m.assembleLaplacian([3]float64{0.005, 0.006, 0.007}, 30)
		vals := laplacianEigenvalues(t, l)
		top := vals[len(vals)-1]
		require.Greater(t, top, 0.0)
		for _, v := range vals {
			assert.GreaterOrEqual(t, v, -1e-9*top, "cartesian=%v", cartesian)
		}
	}
}

// At isotropic scale the two parameterizations span the same space with
// uniform column norms, so their regularization matrices share a spectrum up
// to the fixed norm ratio pi^(3/2).
func TestLaplacianSpectrumAgreesAcrossBases(t *testing.T) {
	tab := testTable(t)
	mc, err := NewModel(tab, Options{RadialOrder: 4, TimeOrder: 2, Cartesian: true})
	require.NoError(t, err)
	ms, err := NewModel(tab, Options{RadialOrder: 4, TimeOrder: 2, Cartesian: false})
	require.NoError(t, err)

	us := [3]float64{0.009, 0.009, 0.009}
	const ut = 25.0
	vc := laplacianEigenvalues(t, mc.assembleLaplacian(us, ut))
	vs := laplacianEigenvalues(t, ms.assembleLaplacian(us, ut))
	require.Len(t, vs, len(vc))

	ratio := mc.columnNorms(us)[0] * mc.columnNorms(us)[0] /
		(ms.columnNorms(us)[0] * ms.columnNorms(us)[0])
	top := vc[len(vc)-1]
	for i := range vc {
		assert.InDelta(t, vc[i], ratio*vs[i], 1e-8*top, "eigenvalue %d", i)
	}
}
