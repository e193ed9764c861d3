package qtdmri

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"qtdmri/pkg/acquisition"
)

// signalClipFloor is the lower clip applied to normalized attenuations before
// taking logarithms during scale estimation. Fitting itself uses the
// unclipped signal.
const signalClipFloor = 1e-5

// scaleFloor bounds the per-axis spatial scale away from zero so degenerate
// signals still produce a usable basis.
const (
	spatialScaleFloor  = 1e-4
	temporalScaleFloor = 1e-3
)

// Model holds an acquisition table and a validated basis configuration, and
// turns measured signal vectors into Fit objects. A Model is safe for
// concurrent use; assembled matrices are cached per scale tuple.
type Model struct {
	tab  *acquisition.Table
	opts Options

	cartIdx   []CartesianIndex
	cartSigns []float64
	sphIdx    []SphericalIndex
	ncoef     int

	mu    sync.Mutex
	cache map[scaleKey]*basisMatrices
}

// scaleKey identifies one assembled matrix set by the values the assembly
// depends on.
type scaleKey struct {
	us [3]float64
	ut float64
	r  [9]float64
}

// basisMatrices is a design matrix with its matching regularization matrix
// and the analytic continuous norm of every basis column.
type basisMatrices struct {
	design    *mat.Dense
	laplacian *mat.SymDense
	colNorms  []float64
}

// NewModel validates the options against the acquisition table and returns a
// ready-to-fit model. Invalid option combinations are rejected here, before
// any signal is seen.
func NewModel(tab *acquisition.Table, opts Options) (*Model, error) {
	if tab == nil || tab.Len() == 0 {
		return nil, fmt.Errorf("%w: empty acquisition table", ErrInvalidConfiguration)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	m := &Model{
		tab:   tab,
		opts:  opts,
		ncoef: NumberOfCoefficients(opts.RadialOrder, opts.TimeOrder),
		cache: make(map[scaleKey]*basisMatrices),
	}
	if opts.Cartesian {
		m.cartIdx = CartesianIndices(opts.RadialOrder, opts.TimeOrder)
		m.cartSigns = make([]float64, len(m.cartIdx))
		for k, id := range m.cartIdx {
			m.cartSigns[k] = cartesianSign(id)
		}
	} else {
		m.sphIdx = SphericalIndices(opts.RadialOrder, opts.TimeOrder)
	}
	return m, nil
}

// Options returns the configuration the model was built with.
func (m *Model) Options() Options { return m.opts }

// Table returns the acquisition table the model fits against.
func (m *Model) Table() *acquisition.Table { return m.tab }

// NCoefficients returns the number of basis coefficients a fit estimates.
func (m *Model) NCoefficients() int { return m.ncoef }

// Fit estimates the basis coefficients for one measured signal vector, with
// one value per acquisition sample. The signal is normalized per diffusion
// time shell by the mean of that shell's q=0 samples before fitting.
func (m *Model) Fit(signal []float64) (*Fit, error) {
	if len(signal) != m.tab.Len() {
		return nil, fmt.Errorf("%w: signal has %d samples, table has %d",
			ErrInvalidConfiguration, len(signal), m.tab.Len())
	}

	e := m.normalizeSignal(signal)

	var us [3]float64
	var ut float64
	var r [3][3]float64
	var err error
	if m.opts.Cartesian && m.opts.AnisotropicScaling {
		us, ut, r, err = m.anisotropicScales(e)
		if err != nil {
			return nil, err
		}
	} else {
		u, utIso := m.isotropicScales(e)
		us = [3]float64{u, u, u}
		ut = utIso
		r = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}

	mats := m.matricesFor(us, ut, r)
	coef, lopt, alpha, err := m.solve(mats, e)
	if err != nil {
		return nil, err
	}

	return &Fit{
		model: m,
		coef:  coef,
		us:    us,
		ut:    ut,
		rot:   r,
		lopt:  lopt,
		alpha: alpha,
		mats:  mats,
	}, nil
}

// normalizeSignal divides every sample by the mean q=0 signal of its
// diffusion time shell. Shells without a q=0 sample are left unscaled.
func (m *Model) normalizeSignal(signal []float64) []float64 {
	e := make([]float64, len(signal))
	copy(e, signal)
	for _, shell := range m.tab.TauShells() {
		b0, n := 0.0, 0
		for _, i := range shell {
			if m.tab.IsB0(i) {
				b0 += signal[i]
				n++
			}
		}
		if n == 0 || b0 <= 0 {
			continue
		}
		b0 /= float64(n)
		for _, i := range shell {
			e[i] /= b0
		}
	}
	return e
}

// clippedNegLog returns -log of the attenuation clipped into
// [signalClipFloor, 1], the quantity both scale estimators regress on.
func clippedNegLog(e float64) float64 {
	if e > 1 {
		e = 1
	}
	if e < signalClipFloor {
		e = signalClipFloor
	}
	return -math.Log(e)
}

// isotropicScales estimates a single spatial scale and the temporal scale by
// separate least-squares fits of the log attenuation against q^2 and against
// the diffusion time.
func (m *Model) isotropicScales(e []float64) (us, ut float64) {
	var sumQ2Y, sumQ4, sumTauY, sumTau2 float64
	for i := range e {
		y := clippedNegLog(e[i])
		q := m.tab.QMag(i)
		tau := m.tab.Tau(i)
		sumQ2Y += q * q * y / (2 * math.Pi * math.Pi)
		sumQ4 += q * q * q * q
		sumTauY += tau * y
		sumTau2 += tau * tau
	}
	us2 := 0.0
	if sumQ4 > 0 {
		us2 = sumQ2Y / sumQ4
	}
	us = math.Sqrt(math.Max(us2, 0))
	if us < spatialScaleFloor {
		us = spatialScaleFloor
	}
	ut = 0.0
	if sumTau2 > 0 {
		ut = 2 * sumTauY / sumTau2
	}
	if ut < temporalScaleFloor {
		ut = temporalScaleFloor
	}
	return us, ut
}

// anisotropicScales estimates per-axis spatial scales, the frame rotation and
// the temporal scale from a joint linear fit of the log attenuation against
// the six independent entries of a symmetric scale tensor plus the diffusion
// time. The eigenvectors of the fitted tensor define the basis frame; its
// eigenvalues, sorted descending, are the squared scales.
func (m *Model) anisotropicScales(e []float64) (us [3]float64, ut float64, r [3][3]float64, err error) {
	n := m.tab.Len()
	x := mat.NewDense(n, 7, nil)
	y := mat.NewVecDense(n, nil)
	twoPi2 := 2 * math.Pi * math.Pi
	for i := 0; i < n; i++ {
		q := m.tab.Q(i)
		x.Set(i, 0, twoPi2*q[0]*q[0])
		x.Set(i, 1, twoPi2*q[1]*q[1])
		x.Set(i, 2, twoPi2*q[2]*q[2])
		x.Set(i, 3, 2*twoPi2*q[0]*q[1])
		x.Set(i, 4, 2*twoPi2*q[0]*q[2])
		x.Set(i, 5, 2*twoPi2*q[1]*q[2])
		x.Set(i, 6, m.tab.Tau(i)/2)
		y.SetVec(i, clippedNegLog(e[i]))
	}
	var p mat.VecDense
	if err := p.SolveVec(x, y); err != nil {
		return us, 0, r, fmt.Errorf("%w: scale tensor estimation: %v", ErrNumericalFailure, err)
	}

	u := mat.NewSymDense(3, []float64{
		p.AtVec(0), p.AtVec(3), p.AtVec(4),
		p.AtVec(3), p.AtVec(1), p.AtVec(5),
		p.AtVec(4), p.AtVec(5), p.AtVec(2),
	})
	var es mat.EigenSym
	if !es.Factorize(u, true) {
		return us, 0, r, fmt.Errorf("%w: scale tensor eigendecomposition", ErrNumericalFailure)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// Eigenvalues come back ascending; the basis wants them descending.
	for k := 0; k < 3; k++ {
		v := vals[2-k]
		if v < spatialScaleFloor*spatialScaleFloor {
			v = spatialScaleFloor * spatialScaleFloor
		}
		us[k] = math.Sqrt(v)
		for a := 0; a < 3; a++ {
			r[a][k] = vecs.At(a, 2-k)
		}
	}
	ut = p.AtVec(6)
	if ut < temporalScaleFloor {
		ut = temporalScaleFloor
	}
	return us, ut, r, nil
}

// matricesFor returns the assembled matrices for a scale tuple, reusing a
// cached set when the same tuple has been seen before.
func (m *Model) matricesFor(us [3]float64, ut float64, r [3][3]float64) *basisMatrices {
	key := scaleKey{us: us, ut: ut, r: [9]float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	}}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mats, ok := m.cache[key]; ok {
		return mats
	}
	mats := &basisMatrices{
		design:    m.assembleDesign(us, ut, r),
		laplacian: m.assembleLaplacian(us, ut),
		colNorms:  m.columnNorms(us),
	}
	m.cache[key] = mats
	return mats
}

// assembleDesign evaluates every basis function at every acquisition sample.
func (m *Model) assembleDesign(us [3]float64, ut float64, r [3][3]float64) *mat.Dense {
	n := m.tab.Len()
	d := mat.NewDense(n, m.ncoef, nil)
	theta := make([]float64, m.opts.TimeOrder+1)
	tn := TemporalNormalization(ut)

	if m.opts.Cartesian {
		size := m.opts.RadialOrder + 1
		fx := make([]float64, size)
		fy := make([]float64, size)
		fz := make([]float64, size)
		for i := 0; i < n; i++ {
			q := m.tab.Q(i)
			var qr [3]float64
			for k := 0; k < 3; k++ {
				qr[k] = r[0][k]*q[0] + r[1][k]*q[1] + r[2][k]*q[2]
			}
			hermiteRow(fx, 2*math.Pi*us[0]*qr[0])
			hermiteRow(fy, 2*math.Pi*us[1]*qr[1])
			hermiteRow(fz, 2*math.Pi*us[2]*qr[2])
			tau := m.tab.Tau(i)
			for o := range theta {
				theta[o] = tn * TemporalBasis(o, ut, tau)
			}
			for k, id := range m.cartIdx {
				d.Set(i, k, m.cartSigns[k]*fx[id.N1]*fy[id.N2]*fz[id.N3]*theta[id.O])
			}
		}
		return d
	}

	u := us[0]
	for i := 0; i < n; i++ {
		q := m.tab.Q(i)
		thetaAng, phi := sphereAngles(q)
		kappa := 2 * math.Pi * u * m.tab.QMag(i)
		tau := m.tab.Tau(i)
		for o := range theta {
			theta[o] = tn * TemporalBasis(o, ut, tau)
		}
		for k, id := range m.sphIdx {
			d.Set(i, k, sphericalQRadial(id.J, id.L, kappa)*
				realSH(id.L, id.M, thetaAng, phi)*theta[id.O])
		}
	}
	return d
}

// columnNorms returns the continuous L2 norm of every basis column, used for
// the normalization option. The temporal factor is orthonormal, so only the
// spatial part contributes.
func (m *Model) columnNorms(us [3]float64) []float64 {
	norms := make([]float64, m.ncoef)
	if m.opts.Cartesian {
		v := math.Pow(math.Pi, 0.75) /
			math.Sqrt(8*math.Pi*math.Pi*math.Pi*us[0]*us[1]*us[2])
		for k := range norms {
			norms[k] = v
		}
		return norms
	}
	a := 2 * math.Pi * us[0]
	v := math.Pow(a, -1.5)
	for k := range norms {
		norms[k] = v
	}
	return norms
}
