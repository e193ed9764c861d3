package qtdmri

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// The Cartesian spatial basis is a product of one-dimensional Hermite
// functions f_n(x) = H_n(x) exp(-x^2/2) / sqrt(2^n n!), one per axis of the
// scale-rotated frame, evaluated at x_a = 2 pi u_a q_a. Each basis function
// carries a global sign (-1)^{(n1+n2+n3)/2} so that its inverse Fourier
// transform is the positive product of real-space Hermite functions psi_n.

// hermite evaluates the physicists' Hermite polynomial H_n(x).
func hermite(n int, x float64) float64 {
	if n < 0 {
		panic("qtdmri: negative Hermite order")
	}
	if n == 0 {
		return 1
	}
	prev, cur := 1.0, 2*x
	for k := 1; k < n; k++ {
		prev, cur = cur, 2*x*cur-2*float64(k)*prev
	}
	return cur
}

// hermiteFunc evaluates f_n(x), the Hermite function without the pi^{-1/4}
// factor, so that int f_n^2 dx = sqrt(pi).
func hermiteFunc(n int, x float64) float64 {
	return hermite(n, x) * math.Exp(-x*x/2) / math.Sqrt(math.Exp2(float64(n))*factorial(n))
}

// hermiteRow fills row[k] = f_k(x) for k = 0..len(row)-1 using the function
// recurrence directly, which is cheaper and more stable than repeated
// polynomial evaluation.
func hermiteRow(row []float64, x float64) {
	if len(row) == 0 {
		return
	}
	e := math.Exp(-x * x / 2)
	row[0] = e
	if len(row) == 1 {
		return
	}
	row[1] = math.Sqrt2 * x * e
	for k := 2; k < len(row); k++ {
		kf := float64(k)
		row[k] = (math.Sqrt(2/kf)*x*row[k-1] - math.Sqrt((kf-1)/kf)*row[k-2])
	}
}

// psi1D evaluates the real-space Hermite function along one axis,
//
//	psi_n(u, x) = H_n(x/u) exp(-x^2 / (2 u^2)) / sqrt(2^{n+1} pi n!) / u,
//
// the exact one-dimensional Fourier pair of f_n(2 pi u q).
func psi1D(n int, u, x float64) float64 {
	return hermiteFunc(n, x/u) / (u * math.Sqrt(2*math.Pi))
}

func factorial(n int) float64 {
	return math.Gamma(float64(n) + 1)
}

// hermiteIntegral returns int psi_n(u=1, x) dx scaled so that for a scaled
// axis int psi_n(u, x) dx = hermiteIntegral(n): the full-line integral of the
// normalized real-space function, 2^{-n/2} sqrt(n!) / (n/2)! for even n and
// zero for odd n.
func hermiteIntegral(n int) float64 {
	if n%2 != 0 {
		return 0
	}
	return math.Sqrt(factorial(n)) / (math.Exp2(float64(n)/2) * factorial(n/2))
}

// hermiteOrigin returns u * psi_n(u, 0): the origin value of the real-space
// function with its scale dependence factored out,
// (-1)^{n/2} sqrt(n!) / ((n/2)! sqrt(2^{n+1} pi)) for even n, zero for odd.
func hermiteOrigin(n int) float64 {
	if n%2 != 0 {
		return 0
	}
	sign := 1.0
	if (n/2)%2 != 0 {
		sign = -1
	}
	return sign * math.Sqrt(factorial(n)) /
		(factorial(n/2) * math.Sqrt(math.Exp2(float64(n)+1)*math.Pi))
}

// hermiteSecondMoment returns int x^2 psi_n(u, x) dx = u^2 (2n+1) times the
// plain integral.
func hermiteSecondMoment(n int, u float64) float64 {
	return u * u * (2*float64(n) + 1) * hermiteIntegral(n)
}

// Full-line q-space moments of a single basis axis f_n(2 pi u q), needed for
// the q-space inverse variance. Odd orders vanish.

func qAxisIntegral(n int, u float64) float64 {
	return hermiteIntegral(n) / (math.Sqrt(2*math.Pi) * u)
}

func qAxisSecondMoment(n int, u float64) float64 {
	c := 2 * math.Pi * u
	return math.Sqrt(2*math.Pi) * (2*float64(n) + 1) * hermiteIntegral(n) / (c * c * c)
}

// hermGramSecondCross returns A with A[n][m] = int psi_n'' psi_m dx for unit
// scale: a pentadiagonal matrix with bands at m = n-2, n, n+2.
func hermGramSecondCross(size int) *mat.Dense {
	a := mat.NewDense(size, size, nil)
	for n := 0; n < size; n++ {
		nf := float64(n)
		a.Set(n, n, -(nf + 0.5))
		if n >= 2 {
			a.Set(n, n-2, math.Sqrt(nf*(nf-1))/2)
		}
		if n+2 < size {
			a.Set(n, n+2, math.Sqrt((nf+1)*(nf+2))/2)
		}
	}
	return a
}

// hermGramSecondSecond returns B with B[n][m] = int psi_n'' psi_m'' dx for
// unit scale: bands at m = n-4 .. n+4.
func hermGramSecondSecond(size int) *mat.Dense {
	b := mat.NewDense(size, size, nil)
	for n := 0; n < size; n++ {
		nf := float64(n)
		b.Set(n, n, 3*(2*nf*nf+2*nf+1)/4)
		if n >= 2 {
			b.Set(n, n-2, -(2*nf-1)*math.Sqrt(nf*(nf-1))/2)
		}
		if n >= 4 {
			b.Set(n, n-4, math.Sqrt(nf*(nf-1)*(nf-2)*(nf-3))/4)
		}
		if n+2 < size {
			b.Set(n, n+2, -(2*nf+3)*math.Sqrt((nf+1)*(nf+2))/2)
		}
		if n+4 < size {
			b.Set(n, n+4, math.Sqrt((nf+1)*(nf+2)*(nf+3)*(nf+4))/4)
		}
	}
	return b
}

// cartesianAxisGrams returns the per-axis q-space Gram matrices of the basis
// f_n(2 pi u q) and its first two q-derivative contractions, obtained from
// the unit-scale real matrices by the 2 pi u change of variable:
//
//	U = int f_n f_m dq,  T = int f_n'' f_m dq,  S = int f_n'' f_m'' dq
func cartesianAxisGrams(size int, u float64) (s, t, uu *mat.Dense) {
	c := 2 * math.Pi * u
	sqrtPi := math.Sqrt(math.Pi)

	uu = mat.NewDense(size, size, nil)
	for n := 0; n < size; n++ {
		uu.Set(n, n, sqrtPi/c)
	}

	a := hermGramSecondCross(size)
	b := hermGramSecondSecond(size)
	t = mat.NewDense(size, size, nil)
	s = mat.NewDense(size, size, nil)
	for n := 0; n < size; n++ {
		for m := 0; m < size; m++ {
			t.Set(n, m, c*sqrtPi*a.At(n, m))
			s.Set(n, m, c*c*c*sqrtPi*b.At(n, m))
		}
	}
	return s, t, uu
}

// cartesianSign is (-1)^{(n1+n2+n3)/2}, the Fourier phase of one basis
// function.
func cartesianSign(i CartesianIndex) float64 {
	if ((i.N1 + i.N2 + i.N3) / 2 % 2) != 0 {
		return -1
	}
	return 1
}
