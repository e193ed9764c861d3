package qtdmri

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// The spherical spatial basis factors into a Laguerre-Gaussian radial part
// and a real spherical harmonic: with n = j-1 and kappa = 2 pi u q,
//
//	Xi_jlm(q) = (-1)^{j-1} N_nl kappa^l exp(-kappa^2/2) L_n^{l+1/2}(kappa^2) Y_lm(q-hat)
//
// where N_nl = sqrt(2 n! / Gamma(n+l+3/2)). Its exact three-dimensional
// Fourier pair over displacement r, with rho = r/u, is
//
//	Ups_jlm(r) = (-1)^{l/2} u^-3 (2 pi)^{-3/2} N_nl rho^l exp(-rho^2/2) L_n^{l+1/2}(rho^2) Y_lm(r-hat)
//
// At equal even radial order and isotropic scale the span equals the
// Cartesian basis span, which the tests exercise directly.

// sphericalRadialNorm returns N_nl.
func sphericalRadialNorm(n, l int) float64 {
	return math.Sqrt(2 * factorial(n) / math.Gamma(float64(n)+float64(l)+1.5))
}

// sphericalQRadial evaluates the signed radial factor of Xi_jlm at kappa.
func sphericalQRadial(j, l int, kappa float64) float64 {
	n := j - 1
	sign := 1.0
	if n%2 != 0 {
		sign = -1
	}
	k2 := kappa * kappa
	return sign * sphericalRadialNorm(n, l) * math.Pow(kappa, float64(l)) *
		math.Exp(-k2/2) * laguerre(n, float64(l)+0.5, k2)
}

// sphericalRRadial evaluates the radial factor of Ups_jlm at rho = r/u,
// including the u^-3 (2 pi)^{-3/2} density normalization and the (-1)^{l/2}
// Fourier phase.
func sphericalRRadial(j, l int, u, rho float64) float64 {
	n := j - 1
	sign := 1.0
	if (l/2)%2 != 0 {
		sign = -1
	}
	r2 := rho * rho
	return sign * sphericalRadialNorm(n, l) * math.Pow(rho, float64(l)) *
		math.Exp(-r2/2) * laguerre(n, float64(l)+0.5, r2) /
		(u * u * u * math.Pow(2*math.Pi, 1.5))
}

// assocLegendre evaluates the associated Legendre function P_l^m(x) for
// m >= 0, including the Condon-Shortley phase.
func assocLegendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pmmp1 = pmmp1, pll
	}
	return pll
}

// realSH evaluates the real spherical harmonic Y_lm at polar angle theta and
// azimuth phi, orthonormal over the sphere.
func realSH(l, m int, theta, phi float64) float64 {
	am := m
	if am < 0 {
		am = -am
	}
	k := math.Sqrt(float64(2*l+1) / (4 * math.Pi) * factorial(l-am) / factorial(l+am))
	p := assocLegendre(l, am, math.Cos(theta))
	switch {
	case m > 0:
		return math.Sqrt2 * k * math.Cos(float64(am)*phi) * p
	case m < 0:
		return math.Sqrt2 * k * math.Sin(float64(am)*phi) * p
	default:
		return k * p
	}
}

// sphereAngles converts a unit-magnitude direction to polar and azimuthal
// angles. The origin maps to the pole, where only l = 0 terms contribute.
func sphereAngles(v [3]float64) (theta, phi float64) {
	r := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if r == 0 {
		return 0, 0
	}
	theta = math.Acos(math.Max(-1, math.Min(1, v[2]/r)))
	phi = math.Atan2(v[1], v[0])
	return theta, phi
}

// sphericalLaplaceOp returns Ct with
//
//	Ct[n][n'] = (-1)^{n+n'} int (Lap_kappa psi_nl) psi_n'l d^3 kappa
//
// over the unit-scale radial functions of angular degree l, using the
// harmonic-oscillator identity Lap psi_nlm = (kappa^2 - (4n+2l+3)) psi_nlm:
// the matrix is tridiagonal with diagonal -(2n+l+3/2) and off-diagonal
// +sqrt(n (n+l+1/2)) after the alternating radial signs are absorbed.
func sphericalLaplaceOp(nmax, l int) *mat.Dense {
	size := nmax + 1
	c := mat.NewDense(size, size, nil)
	for n := 0; n < size; n++ {
		nf := float64(n)
		lf := float64(l)
		c.Set(n, n, -(2*nf + lf + 1.5))
		if n >= 1 {
			// kappa^2 couples n and n-1 with -sqrt(n(n+l+1/2)); the signs
			// (-1)^n (-1)^{n-1} flip it positive.
			v := math.Sqrt(nf * (nf + lf + 0.5))
			c.Set(n, n-1, v)
			c.Set(n-1, n, v)
		}
	}
	return c
}
