package qtdmri

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"

	"qtdmri/pkg/sphere"
)

// Quadrature extents and node counts for the indices without closed forms.
// The basis decays as a Gaussian in r/u and in 2 pi u q, so an extent of a
// dozen scale units captures the integrands to machine precision.
const (
	quadNodes1D    = 60
	quadNodes2D    = 42
	rSpaceExtent   = 12.0
	qSpaceExtentKE = 12.0
)

// sparsityFraction is the fraction of the largest absolute coefficient below
// which a coefficient counts as negligible.
const sparsityFraction = 0.01

// Fit is the result of estimating basis coefficients for one signal vector.
// All reconstruction methods are pure read-only evaluations and safe for
// concurrent use.
type Fit struct {
	model  *Model
	coef   []float64
	us     [3]float64
	ut     float64
	rot    [3][3]float64
	lopt  float64
	alpha float64
	mats  *basisMatrices
}

// Coefficients returns the fitted basis coefficients. With the normalization
// option they refer to unit-norm basis columns; either way every
// reconstructed quantity is identical.
func (f *Fit) Coefficients() []float64 {
	out := make([]float64, len(f.coef))
	if f.model.opts.Normalization {
		for i := range out {
			out[i] = f.coef[i] * f.mats.colNorms[i]
		}
	} else {
		copy(out, f.coef)
	}
	return out
}

// SpatialScales returns the fitted per-axis spatial scales in mm.
func (f *Fit) SpatialScales() [3]float64 { return f.us }

// TemporalScale returns the fitted temporal scale in 1/s.
func (f *Fit) TemporalScale() float64 { return f.ut }

// Rotation returns the basis frame: column k is the k-th basis axis in
// laboratory coordinates. It is the identity unless anisotropic scaling
// estimated a frame from the data.
func (f *Fit) Rotation() [3][3]float64 { return f.rot }

// LaplacianWeight returns the Laplacian regularization weight used by the
// solve, whether fixed or selected by generalized cross-validation.
func (f *Fit) LaplacianWeight() float64 { return f.lopt }

// SparsityWeight returns the l1 weight used by the solve, whether fixed or
// selected by cross-validation.
func (f *Fit) SparsityWeight() float64 { return f.alpha }

// FittedSignal reconstructs the normalized attenuation at every acquisition
// sample.
func (f *Fit) FittedSignal() []float64 {
	c := mat.NewVecDense(len(f.coef), f.coef)
	var pred mat.VecDense
	pred.MulVec(f.mats.design, c)
	out := make([]float64, pred.Len())
	for i := range out {
		out[i] = pred.AtVec(i)
	}
	return out
}

// NormOfLaplacianSignal returns the norm of the fitted signal's space-time
// Laplacian, the quantity the Laplacian regularization penalizes. It is a
// property of the represented function, so both spatial parameterizations
// agree on it at equal order and scale.
func (f *Fit) NormOfLaplacianSignal() float64 {
	s := 0.0
	for i := range f.coef {
		for j := range f.coef {
			s += f.coef[i] * f.mats.laplacian.At(i, j) * f.coef[j]
		}
	}
	return math.Sqrt(math.Max(s, 0))
}

// SparsityAbs returns the number of coefficients larger in magnitude than
// sparsityFraction times the largest one. Stronger l1 weights drive more
// coefficients to zero and lower this count.
func (f *Fit) SparsityAbs() int {
	maxAbs := 0.0
	for _, c := range f.coef {
		if a := math.Abs(c); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return 0
	}
	n := 0
	for _, c := range f.coef {
		if math.Abs(c) > sparsityFraction*maxAbs {
			n++
		}
	}
	return n
}

// SparsityDensity returns SparsityAbs as a fraction of the coefficient count.
func (f *Fit) SparsityDensity() float64 {
	return float64(f.SparsityAbs()) / float64(len(f.coef))
}

// temporalRow returns the normalized temporal basis values at tau.
func (f *Fit) temporalRow(tau float64) []float64 {
	th := make([]float64, f.model.opts.TimeOrder+1)
	tn := TemporalNormalization(f.ut)
	for o := range th {
		th[o] = tn * TemporalBasis(o, f.ut, tau)
	}
	return th
}

// toFrame maps a laboratory-frame vector onto the basis axes.
func (f *Fit) toFrame(v [3]float64) [3]float64 {
	var w [3]float64
	for k := 0; k < 3; k++ {
		w[k] = f.rot[0][k]*v[0] + f.rot[1][k]*v[1] + f.rot[2][k]*v[2]
	}
	return w
}

// PDF evaluates the displacement probability density at points given as
// (x, y, z, tau) rows, displacement in mm and diffusion time in seconds.
func (f *Fit) PDF(points [][4]float64) []float64 {
	out := make([]float64, len(points))
	for i, pt := range points {
		out[i] = f.pdfAt([3]float64{pt[0], pt[1], pt[2]}, pt[3])
	}
	return out
}

func (f *Fit) pdfAt(r [3]float64, tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		rr := f.toFrame(r)
		size := f.model.opts.RadialOrder + 1
		px := make([]float64, size)
		py := make([]float64, size)
		pz := make([]float64, size)
		hermiteRow(px, rr[0]/f.us[0])
		hermiteRow(py, rr[1]/f.us[1])
		hermiteRow(pz, rr[2]/f.us[2])
		s := 1 / (f.us[0] * f.us[1] * f.us[2] * math.Pow(2*math.Pi, 1.5))
		v := 0.0
		for k, id := range f.model.cartIdx {
			v += f.coef[k] * px[id.N1] * py[id.N2] * pz[id.N3] * th[id.O]
		}
		return v * s
	}

	u := f.us[0]
	rho := math.Sqrt(r[0]*r[0]+r[1]*r[1]+r[2]*r[2]) / u
	theta, phi := sphereAngles(r)
	v := 0.0
	for k, id := range f.model.sphIdx {
		v += f.coef[k] * sphericalRRadial(id.J, id.L, u, rho) *
			realSH(id.L, id.M, theta, phi) * th[id.O]
	}
	return v
}

// ODF evaluates the orientation distribution function with radial moment s
// at diffusion time tau on the vertices of sph:
//
//	ODF(v) = int_0^inf P(r v, tau) r^{2+s} dr
func (f *Fit) ODF(sph *sphere.Sphere, tau float64, s int) []float64 {
	umax := math.Max(f.us[0], math.Max(f.us[1], f.us[2]))
	rmax := rSpaceExtent * umax
	out := make([]float64, sph.Len())
	for i, v := range sph.Vertices {
		out[i] = quad.Fixed(func(r float64) float64 {
			return math.Pow(r, float64(2+s)) *
				f.pdfAt([3]float64{r * v[0], r * v[1], r * v[2]}, tau)
		}, 0, rmax, quadNodes1D, quad.Legendre{}, 0)
	}
	return out
}

// RTOP returns the return-to-origin probability at diffusion time tau, the
// value of the displacement density at zero displacement.
func (f *Fit) RTOP(tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		v := 0.0
		for k, id := range f.model.cartIdx {
			v += f.coef[k] * th[id.O] *
				hermiteOrigin(id.N1) * hermiteOrigin(id.N2) * hermiteOrigin(id.N3)
		}
		return v / (f.us[0] * f.us[1] * f.us[2])
	}
	u := f.us[0]
	y00 := 1 / math.Sqrt(4*math.Pi)
	v := 0.0
	for k, id := range f.model.sphIdx {
		if id.L != 0 {
			continue
		}
		v += f.coef[k] * th[id.O] * sphericalRRadial(id.J, 0, u, 0) * y00
	}
	return v
}

// RTAP returns the return-to-axis probability at diffusion time tau: the
// density of displacements along the first basis axis, equal to the q-space
// integral of the attenuation over the plane orthogonal to that axis.
func (f *Fit) RTAP(tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		v := 0.0
		for k, id := range f.model.cartIdx {
			v += f.coef[k] * th[id.O] * hermiteIntegral(id.N1) *
				hermiteOrigin(id.N2) * hermiteOrigin(id.N3)
		}
		return v / (f.us[1] * f.us[2])
	}

	// No closed form in the spherical parameterization: integrate E over the
	// plane orthogonal to the axis.
	u := f.us[0]
	qmax := qSpaceExtentKE / (2 * math.Pi * u)
	return quad.Fixed(func(qa float64) float64 {
		return quad.Fixed(func(qb float64) float64 {
			return f.signalAt([3]float64{0, qa, qb}, th)
		}, -qmax, qmax, quadNodes2D, quad.Legendre{}, 0)
	}, -qmax, qmax, quadNodes2D, quad.Legendre{}, 0)
}

// RTPP returns the return-to-plane probability at diffusion time tau: the
// density of displacements within the plane orthogonal to the first basis
// axis, equal to the q-space line integral of the attenuation along it.
func (f *Fit) RTPP(tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		v := 0.0
		for k, id := range f.model.cartIdx {
			v += f.coef[k] * th[id.O] * hermiteOrigin(id.N1) *
				hermiteIntegral(id.N2) * hermiteIntegral(id.N3)
		}
		return v / f.us[0]
	}

	u := f.us[0]
	qmax := qSpaceExtentKE / (2 * math.Pi * u)
	return 2 * quad.Fixed(func(q float64) float64 {
		return f.signalAt([3]float64{q, 0, 0}, th)
	}, 0, qmax, quadNodes1D, quad.Legendre{}, 0)
}

// MSD returns the mean squared displacement at diffusion time tau.
func (f *Fit) MSD(tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		v := 0.0
		for k, id := range f.model.cartIdx {
			w1 := hermiteIntegral(id.N1)
			w2 := hermiteIntegral(id.N2)
			w3 := hermiteIntegral(id.N3)
			v += f.coef[k] * th[id.O] *
				(hermiteSecondMoment(id.N1, f.us[0])*w2*w3 +
					w1*hermiteSecondMoment(id.N2, f.us[1])*w3 +
					w1*w2*hermiteSecondMoment(id.N3, f.us[2]))
		}
		return v
	}

	// Only the isotropic part carries a nonzero second moment.
	u := f.us[0]
	y00 := 1 / math.Sqrt(4*math.Pi)
	rmax := rSpaceExtent * u
	return 4 * math.Pi * quad.Fixed(func(r float64) float64 {
		p := 0.0
		for k, id := range f.model.sphIdx {
			if id.L != 0 {
				continue
			}
			p += f.coef[k] * th[id.O] * sphericalRRadial(id.J, 0, u, r/u) * y00
		}
		return r * r * r * r * p
	}, 0, rmax, quadNodes1D, quad.Legendre{}, 0)
}

// QIV returns the q-space inverse variance at diffusion time tau, the
// reciprocal of the second q-moment of the attenuation.
func (f *Fit) QIV(tau float64) float64 {
	th := f.temporalRow(tau)
	if f.model.opts.Cartesian {
		den := 0.0
		for k, id := range f.model.cartIdx {
			a1 := qAxisIntegral(id.N1, f.us[0])
			a2 := qAxisIntegral(id.N2, f.us[1])
			a3 := qAxisIntegral(id.N3, f.us[2])
			den += f.coef[k] * f.model.cartSigns[k] * th[id.O] *
				(qAxisSecondMoment(id.N1, f.us[0])*a2*a3 +
					a1*qAxisSecondMoment(id.N2, f.us[1])*a3 +
					a1*a2*qAxisSecondMoment(id.N3, f.us[2]))
		}
		return 1 / den
	}

	u := f.us[0]
	y00 := 1 / math.Sqrt(4*math.Pi)
	qmax := qSpaceExtentKE / (2 * math.Pi * u)
	den := 4 * math.Pi * quad.Fixed(func(q float64) float64 {
		e := 0.0
		kappa := 2 * math.Pi * u * q
		for k, id := range f.model.sphIdx {
			if id.L != 0 {
				continue
			}
			e += f.coef[k] * th[id.O] * sphericalQRadial(id.J, 0, kappa) * y00
		}
		return q * q * q * q * e
	}, 0, qmax, quadNodes1D, quad.Legendre{}, 0)
	return 1 / den
}

// signalAt evaluates the fitted attenuation at a q-vector in the basis frame,
// with precomputed temporal values.
func (f *Fit) signalAt(q [3]float64, th []float64) float64 {
	if f.model.opts.Cartesian {
		size := f.model.opts.RadialOrder + 1
		fx := make([]float64, size)
		fy := make([]float64, size)
		fz := make([]float64, size)
		hermiteRow(fx, 2*math.Pi*f.us[0]*q[0])
		hermiteRow(fy, 2*math.Pi*f.us[1]*q[1])
		hermiteRow(fz, 2*math.Pi*f.us[2]*q[2])
		v := 0.0
		for k, id := range f.model.cartIdx {
			v += f.coef[k] * f.model.cartSigns[k] *
				fx[id.N1] * fy[id.N2] * fz[id.N3] * th[id.O]
		}
		return v
	}
	u := f.us[0]
	qmag := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2])
	theta, phi := sphereAngles(q)
	kappa := 2 * math.Pi * u * qmag
	v := 0.0
	for k, id := range f.model.sphIdx {
		v += f.coef[k] * sphericalQRadial(id.J, id.L, kappa) *
			realSH(id.L, id.M, theta, phi) * th[id.O]
	}
	return v
}
