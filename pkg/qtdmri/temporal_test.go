package qtdmri

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/integrate/quad"
)

func TestTemporalBasisOrthogonality(t *testing.T) {
	const ut = 10.0
	norm := TemporalNormalization(ut)
	// The basis decays as exp(-ut*t/2); by t=10 the integrand is gone.
	for _, pair := range [][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}} {
		v := quad.Fixed(func(x float64) float64 {
			return norm * TemporalBasis(pair[0], ut, x) *
				norm * TemporalBasis(pair[1], ut, x)
		}, 0, 10, 120, quad.Legendre{}, 0)
		assert.InDelta(t, 0, v, 1e-8, "orders %d and %d", pair[0], pair[1])
	}
}

func TestTemporalBasisNormalization(t *testing.T) {
	const ut = 10.0
	norm := TemporalNormalization(ut)
	for o := 0; o <= 2; o++ {
		v := quad.Fixed(func(x float64) float64 {
			th := norm * TemporalBasis(o, ut, x)
			return th * th
		}, 0, 10, 120, quad.Legendre{}, 0)
		assert.InDelta(t, 1, v, 1e-8, "order %d", o)
	}
}

// The derivative operator must reproduce the exact derivative of every
// Laguerre function as a combination of lower and equal orders.
func TestTemporalDerivativeOperator(t *testing.T) {
	const size = 6
	d := temporalDerivOp(size)
	g := func(k int, x float64) float64 {
		return math.Exp(-x/2) * laguerre(k, 0, x)
	}
	const h = 1e-5
	for o := 0; o < size; o++ {
		for _, x := range []float64{0.3, 1.1, 2.7, 5.0} {
			fd := (g(o, x+h) - g(o, x-h)) / (2 * h)
			sum := 0.0
			for k := 0; k < size; k++ {
				sum += d.At(k, o) * g(k, x)
			}
			assert.InDelta(t, fd, sum, 1e-8, "order %d at x=%g", o, x)
		}
	}
}

// The analytic temporal Gram matrices must match quadrature over the
// numerically differentiated basis.
func TestTemporalGramsMatchQuadrature(t *testing.T) {
	const ut = 10.0
	const timeOrder = 2
	norm := TemporalNormalization(ut)
	theta2nd := func(o int, tau float64) float64 {
		const h = 1e-4
		return norm * (TemporalBasis(o, ut, tau+h) - 2*TemporalBasis(o, ut, tau) +
			TemporalBasis(o, ut, tau-h)) / (h * h)
	}
	cross, second := temporalGrams(timeOrder, ut)
	for o := 0; o <= timeOrder; o++ {
		for p := 0; p <= timeOrder; p++ {
			gotCross := quad.Fixed(func(tau float64) float64 {
				return theta2nd(o, tau) * norm * TemporalBasis(p, ut, tau)
			}, 0, 10, 150, quad.Legendre{}, 0)
			assert.InDelta(t, cross.At(o, p), gotCross, 2e-2*(1+math.Abs(gotCross)),
				"cross %d %d", o, p)

			gotSecond := quad.Fixed(func(tau float64) float64 {
				return theta2nd(o, tau) * theta2nd(p, tau)
			}, 0, 10, 150, quad.Legendre{}, 0)
			assert.InDelta(t, second.At(o, p), gotSecond, 2e-2*(1+math.Abs(gotSecond)),
				"second %d %d", o, p)
		}
	}
}
