package qtdmri

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/integrate/quad"
)

func TestHermiteRowMatchesDirectEvaluation(t *testing.T) {
	row := make([]float64, 9)
	for _, x := range []float64{-2.5, -0.7, 0, 0.3, 1.9} {
		hermiteRow(row, x)
		for n := range row {
			assert.InDelta(t, hermiteFunc(n, x), row[n], 1e-12, "order %d at x=%g", n, x)
		}
	}
}

func TestHermiteClosedFormsMatchQuadrature(t *testing.T) {
	const u = 0.008
	for n := 0; n <= 6; n++ {
		gotIntegral := quad.Fixed(func(x float64) float64 {
			return psi1D(n, u, x)
		}, -0.12, 0.12, 200, quad.Legendre{}, 0)
		assert.InDelta(t, hermiteIntegral(n), gotIntegral, 1e-8, "integral order %d", n)

		gotMoment := quad.Fixed(func(x float64) float64 {
			return x * x * psi1D(n, u, x)
		}, -0.12, 0.12, 200, quad.Legendre{}, 0)
		assert.InDelta(t, hermiteSecondMoment(n, u), gotMoment, 1e-10, "moment order %d", n)

		assert.InDelta(t, hermiteOrigin(n), psi1D(n, u, 0)*u, 1e-12, "origin order %d", n)

		gotQ := quad.Fixed(func(q float64) float64 {
			return hermiteFunc(n, 2*math.Pi*u*q)
		}, -250, 250, 200, quad.Legendre{}, 0)
		assert.InDelta(t, qAxisIntegral(n, u), gotQ, 1e-6, "q integral order %d", n)

		gotQ2 := quad.Fixed(func(q float64) float64 {
			return q * q * hermiteFunc(n, 2*math.Pi*u*q)
		}, -250, 250, 200, quad.Legendre{}, 0)
		assert.InDelta(t, qAxisSecondMoment(n, u), gotQ2, 1e-2, "q moment order %d", n)
	}
}

// The analytic Hermite Gram matrices must agree with quadrature over
// numerically differentiated basis functions.
func TestHermiteGramMatricesMatchQuadrature(t *testing.T) {
	const size = 5
	const h = 1e-4
	psi2nd := func(n int, x float64) float64 {
		return (hermiteFunc(n, x+h) - 2*hermiteFunc(n, x) + hermiteFunc(n, x-h)) / (h * h)
	}
	// Unit-scale matrices are stated for orthonormal functions; hermiteFunc
	// carries norm sqrt(sqrt(pi)) per function, so divide it out.
	norm := math.Sqrt(math.Pi)

	a := hermGramSecondCross(size)
	b := hermGramSecondSecond(size)
	for n := 0; n < size; n++ {
		for m := 0; m < size; m++ {
			gotA := quad.Fixed(func(x float64) float64 {
				return psi2nd(n, x) * hermiteFunc(m, x)
			}, -9, 9, 200, quad.Legendre{}, 0) / norm
			assert.InDelta(t, a.At(n, m), gotA, 1e-5, "cross %d %d", n, m)

			gotB := quad.Fixed(func(x float64) float64 {
				return psi2nd(n, x) * psi2nd(m, x)
			}, -9, 9, 200, quad.Legendre{}, 0) / norm
			assert.InDelta(t, b.At(n, m), gotB, 1e-4, "second %d %d", n, m)
		}
	}
}

func TestSphericalRadialOrthonormal(t *testing.T) {
	for _, l := range []int{0, 2} {
		for j1 := 1; j1 <= 3; j1++ {
			for j2 := 1; j2 <= 3; j2++ {
				got := quad.Fixed(func(k float64) float64 {
					return sphericalQRadial(j1, l, k) * sphericalQRadial(j2, l, k) * k * k
				}, 0, 12, 200, quad.Legendre{}, 0)
				want := 0.0
				if j1 == j2 {
					want = 1
				}
				assert.InDelta(t, want, got, 1e-8, "l=%d j=%d j'=%d", l, j1, j2)
			}
		}
	}
}

func TestRealSHOrthonormal(t *testing.T) {
	pairs := [][2]int{{0, 0}, {2, 0}, {2, 1}, {2, -2}, {4, 2}, {4, -3}}
	for _, p1 := range pairs {
		for _, p2 := range pairs {
			got := quad.Fixed(func(phi float64) float64 {
				return quad.Fixed(func(theta float64) float64 {
					return realSH(p1[0], p1[1], theta, phi) *
						realSH(p2[0], p2[1], theta, phi) * math.Sin(theta)
				}, 0, math.Pi, 60, quad.Legendre{}, 0)
			}, 0, 2*math.Pi, 60, quad.Legendre{}, 0)
			want := 0.0
			if p1 == p2 {
				want = 1
			}
			assert.InDelta(t, want, got, 1e-8, "(%d,%d) vs (%d,%d)", p1[0], p1[1], p2[0], p2[1])
		}
	}
}

// The two radial parameterizations describe the same isotropic Gaussian at
// order zero: the single Cartesian basis function equals the single spherical
// one up to their fixed norm ratio.
func TestGroundStateAgreement(t *testing.T) {
	const u = 0.01
	for _, q := range []float64{0, 5, 15, 30} {
		cart := hermiteFunc(0, 2*math.Pi*u*q) // along one axis, zero on others
		cart3 := cart * hermiteFunc(0, 0) * hermiteFunc(0, 0)
		sph := sphericalQRadial(1, 0, 2*math.Pi*u*q) * realSH(0, 0, 0, 0)
		ratio := cart3 / sph
		want := math.Pow(math.Pi, 0.75) // norm ratio of the two conventions
		assert.InDelta(t, want, ratio, 1e-10, "q=%g", q)
	}
}
