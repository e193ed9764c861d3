package qtdmri

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// TemporalBasis evaluates the order-th exponential-Laguerre temporal basis
// function exp(-ut*t/2) * L_order(ut*t) at time t, with scale parameter ut.
// The functions of distinct orders are mutually orthogonal on [0, inf); after
// multiplication by TemporalNormalization(ut) they are orthonormal.
func TemporalBasis(order int, ut, t float64) float64 {
	if order < 0 {
		panic("qtdmri: negative temporal basis order")
	}
	x := ut * t
	return math.Exp(-x/2) * laguerre(order, 0, x)
}

// TemporalNormalization returns the constant that makes each temporal basis
// function unit norm on [0, inf): sqrt(ut).
func TemporalNormalization(ut float64) float64 {
	return math.Sqrt(ut)
}

// laguerre evaluates the generalized Laguerre polynomial L_n^alpha(x) by the
// standard three-term recurrence.
func laguerre(n int, alpha, x float64) float64 {
	if n < 0 {
		panic("qtdmri: negative Laguerre order")
	}
	if n == 0 {
		return 1
	}
	prev, cur := 1.0, 1+alpha-x
	for k := 1; k < n; k++ {
		next := ((2*float64(k)+1+alpha-x)*cur - (float64(k)+alpha)*prev) / float64(k+1)
		prev, cur = cur, next
	}
	return cur
}

// temporalDerivOp returns the exact matrix of the first-derivative operator
// on the Laguerre functions g_o(x) = exp(-x/2) L_o(x): column o holds the
// expansion of g_o' in the g basis, which is -1/2 on the diagonal and -1 for
// every lower order. Squaring it gives the second-derivative expansion used
// by the regularization builder; no quadrature is involved.
func temporalDerivOp(size int) *mat.Dense {
	d := mat.NewDense(size, size, nil)
	for o := 0; o < size; o++ {
		d.Set(o, o, -0.5)
		for k := 0; k < o; k++ {
			d.Set(k, o, -1)
		}
	}
	return d
}

// temporalGrams returns the Gram matrices of the normalized temporal basis
// theta_o(tau) = sqrt(ut) g_o(ut tau) and its second derivatives:
//
//	cross[o][o']  = int theta_o'' theta_o' dtau = ut^2 (D^2)[o'][o]
//	second[o][o'] = int theta_o'' theta_o''  dtau = ut^4 (D^2)^T (D^2)
//
// The plain overlap matrix is the identity and is not materialized.
func temporalGrams(timeOrder int, ut float64) (cross, second *mat.Dense) {
	size := timeOrder + 1
	d := temporalDerivOp(size)
	var d2 mat.Dense
	d2.Mul(d, d)

	cross = mat.NewDense(size, size, nil)
	second = mat.NewDense(size, size, nil)
	ut2 := ut * ut
	for o := 0; o < size; o++ {
		for p := 0; p < size; p++ {
			cross.Set(o, p, ut2*d2.At(p, o))
			s := 0.0
			for k := 0; k < size; k++ {
				s += d2.At(k, o) * d2.At(k, p)
			}
			second.Set(o, p, ut2*ut2*s)
		}
	}
	return cross, second
}
