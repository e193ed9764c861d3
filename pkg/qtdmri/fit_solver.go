package qtdmri

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weight search grids. The Laplacian weight is scanned relative to the trace
// ratio of the normal and regularization matrices; the sparsity weight
// relative to the largest absolute gradient at zero.
const (
	gcvGridSize = 45
	gcvGridLow  = 1e-8
	gcvGridHigh = 1e2

	cvFolds    = 5
	cvGridSize = 25
	cvGridLow  = 1e-6
)

const (
	cdMaxSweeps  = 5000
	cdTolerance  = 1e-9
	cdHalfWeight = 0.5
)

// solve fits the basis coefficients to a normalized signal. All linear
// algebra runs on unit-Euclidean-norm design columns so the regularization
// weights live on a data-independent scale; the returned coefficients are
// mapped back to the raw basis.
func (m *Model) solve(mats *basisMatrices, e []float64) (coef []float64, lopt, alpha float64, err error) {
	n, p := len(e), m.ncoef

	lapActive := m.opts.LaplacianRegularization
	l1Active := m.opts.L1Regularization
	if !lapActive && !l1Active && n < p {
		return nil, 0, 0, fmt.Errorf("%w: %d samples for %d coefficients",
			ErrUnderdeterminedFit, n, p)
	}

	norms := make([]float64, p)
	dn := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		s := 0.0
		for i := 0; i < n; i++ {
			v := mats.design.At(i, j)
			s += v * v
		}
		norms[j] = math.Sqrt(s)
		if norms[j] == 0 {
			norms[j] = 1
		}
		for i := 0; i < n; i++ {
			dn.Set(i, j, mats.design.At(i, j)/norms[j])
		}
	}
	ln := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			ln.SetSym(i, j, mats.laplacian.At(i, j)/(norms[i]*norms[j]))
		}
	}
	y := mat.NewVecDense(n, e)

	dtd := normalMatrix(dn)
	var dty mat.VecDense
	dty.MulVec(dn.T(), y)

	if lapActive {
		if m.opts.LaplacianWeighting.IsAuto() {
			lopt, err = gcvSelect(dn, dtd, ln, &dty, y)
			if err != nil {
				return nil, 0, 0, err
			}
		} else {
			lopt = m.opts.LaplacianWeighting.Value()
		}
	}
	if l1Active {
		if m.opts.L1Weighting.IsAuto() {
			alpha, err = cvSelectAlpha(dn, ln, y, lopt)
			if err != nil {
				return nil, 0, 0, err
			}
		} else {
			alpha = m.opts.L1Weighting.Value()
		}
	}

	var cn []float64
	switch {
	case l1Active && alpha > 0:
		g := regularizedNormal(dtd, ln, lopt)
		cn, err = coordinateDescent(g, rawVec(&dty), alpha, nil)
	case lopt > 0:
		cn, err = tikhonovSolve(dtd, ln, &dty, lopt)
	default:
		cn, err = leastSquares(dn, y)
	}
	if err != nil {
		return nil, 0, 0, err
	}

	coef = make([]float64, p)
	for j := range coef {
		coef[j] = cn[j] / norms[j]
	}
	return coef, lopt, alpha, nil
}

// normalMatrix returns DᵀD as a symmetric matrix.
func normalMatrix(d *mat.Dense) *mat.SymDense {
	_, p := d.Dims()
	var tmp mat.Dense
	tmp.Mul(d.T(), d)
	s := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			s.SetSym(i, j, tmp.At(i, j))
		}
	}
	return s
}

// regularizedNormal returns DᵀD + lam L.
func regularizedNormal(dtd, l *mat.SymDense, lam float64) *mat.SymDense {
	p := dtd.SymmetricDim()
	a := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			a.SetSym(i, j, dtd.At(i, j)+lam*l.At(i, j))
		}
	}
	return a
}

func rawVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// leastSquares solves the unregularized problem through QR.
func leastSquares(d *mat.Dense, y *mat.VecDense) ([]float64, error) {
	var c mat.VecDense
	if err := c.SolveVec(d, y); err != nil {
		return nil, fmt.Errorf("%w: least squares solve: %v", ErrNumericalFailure, err)
	}
	return rawVec(&c), nil
}

// tikhonovSolve solves (DᵀD + lam L) c = Dᵀy by Cholesky factorization.
func tikhonovSolve(dtd, l *mat.SymDense, dty *mat.VecDense, lam float64) ([]float64, error) {
	a := regularizedNormal(dtd, l, lam)
	var ch mat.Cholesky
	if !ch.Factorize(a) {
		return nil, fmt.Errorf("%w: regularized normal matrix is not positive definite (weight %g)",
			ErrNumericalFailure, lam)
	}
	var c mat.VecDense
	if err := ch.SolveVecTo(&c, dty); err != nil {
		return nil, fmt.Errorf("%w: regularized solve: %v", ErrNumericalFailure, err)
	}
	return rawVec(&c), nil
}

// gcvSelect picks the Laplacian weight minimizing the generalized
// cross-validation score
//
//	GCV(lam) = (RSS/n) / (1 - tr(H)/n)^2,  H = D (DᵀD + lam L)⁻¹ Dᵀ,
//
// over a log grid anchored at the trace ratio tr(DᵀD)/tr(L). Candidates with
// a failed factorization are skipped; only an empty grid is an error.
func gcvSelect(d *mat.Dense, dtd, l *mat.SymDense, dty, y *mat.VecDense) (float64, error) {
	n, _ := d.Dims()
	trL := mat.Trace(l)
	if trL <= 0 {
		return 0, nil
	}
	ref := mat.Trace(dtd) / trL

	grid := make([]float64, gcvGridSize)
	floats.LogSpan(grid, gcvGridLow, gcvGridHigh)

	best, bestScore := math.NaN(), math.Inf(1)
	var pred mat.VecDense
	for _, g := range grid {
		lam := ref * g
		a := regularizedNormal(dtd, l, lam)
		var ch mat.Cholesky
		if !ch.Factorize(a) {
			continue
		}
		var c mat.VecDense
		if err := ch.SolveVecTo(&c, dty); err != nil {
			continue
		}
		pred.MulVec(d, &c)
		rss := 0.0
		for i := 0; i < n; i++ {
			r := y.AtVec(i) - pred.AtVec(i)
			rss += r * r
		}
		var h mat.Dense
		if err := ch.SolveTo(&h, dtd); err != nil {
			continue
		}
		den := 1 - mat.Trace(&h)/float64(n)
		if den <= 0 {
			continue
		}
		score := rss / float64(n) / (den * den)
		if score < bestScore {
			best, bestScore = lam, score
		}
	}
	if math.IsNaN(best) {
		return 0, fmt.Errorf("%w: generalized cross-validation found no usable weight",
			ErrNumericalFailure)
	}
	return best, nil
}

// coordinateDescent minimizes cᵀGc - 2bᵀc + alpha |c|_1 by cyclic soft
// thresholding, warm-started from start when given. Failure to converge is a
// numerical failure, not a silent fallback.
func coordinateDescent(g *mat.SymDense, b []float64, alpha float64, start []float64) ([]float64, error) {
	p := len(b)
	c := make([]float64, p)
	if start != nil {
		copy(c, start)
	}
	gc := make([]float64, p)
	for i := 0; i < p; i++ {
		s := 0.0
		for j := 0; j < p; j++ {
			s += g.At(i, j) * c[j]
		}
		gc[i] = s
	}

	thr := cdHalfWeight * alpha
	for sweep := 0; sweep < cdMaxSweeps; sweep++ {
		maxStep, maxCoef := 0.0, 0.0
		for j := 0; j < p; j++ {
			gjj := g.At(j, j)
			if gjj <= 0 {
				continue
			}
			rho := b[j] - gc[j] + gjj*c[j]
			var next float64
			switch {
			case rho > thr:
				next = (rho - thr) / gjj
			case rho < -thr:
				next = (rho + thr) / gjj
			}
			if d := next - c[j]; d != 0 {
				c[j] = next
				for k := 0; k < p; k++ {
					gc[k] += d * g.At(k, j)
				}
				if a := math.Abs(d); a > maxStep {
					maxStep = a
				}
			}
			if a := math.Abs(c[j]); a > maxCoef {
				maxCoef = a
			}
		}
		if maxStep <= cdTolerance*(1+maxCoef) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: coordinate descent did not converge in %d sweeps",
		ErrNumericalFailure, cdMaxSweeps)
}

// cvSelectAlpha picks the sparsity weight by k-fold cross-validation with
// deterministic interleaved folds. The grid descends from the smallest weight
// that zeroes every coefficient, warm-starting each fold along the path; the
// weight with the lowest held-out squared error wins.
func cvSelectAlpha(d *mat.Dense, l *mat.SymDense, y *mat.VecDense, lam float64) (float64, error) {
	n, p := d.Dims()

	alphaMax := 0.0
	var dty mat.VecDense
	dty.MulVec(d.T(), y)
	for j := 0; j < p; j++ {
		if a := 2 * math.Abs(dty.AtVec(j)); a > alphaMax {
			alphaMax = a
		}
	}
	if alphaMax == 0 {
		return 0, nil
	}
	grid := make([]float64, cvGridSize)
	floats.LogSpan(grid, cvGridLow, 1)
	for i := range grid {
		grid[i] *= alphaMax
	}

	scores := make([]float64, cvGridSize)
	usable := make([]bool, cvGridSize)
	for i := range usable {
		usable[i] = true
	}

	for fold := 0; fold < cvFolds; fold++ {
		var trainRows, testRows []int
		for i := 0; i < n; i++ {
			if i%cvFolds == fold {
				testRows = append(testRows, i)
			} else {
				trainRows = append(trainRows, i)
			}
		}
		dt := mat.NewDense(len(trainRows), p, nil)
		yt := mat.NewVecDense(len(trainRows), nil)
		for r, i := range trainRows {
			for j := 0; j < p; j++ {
				dt.Set(r, j, d.At(i, j))
			}
			yt.SetVec(r, y.AtVec(i))
		}
		g := regularizedNormal(normalMatrix(dt), l, lam)
		var bt mat.VecDense
		bt.MulVec(dt.T(), yt)
		b := rawVec(&bt)

		// Descend the path from sparse to dense with warm starts.
		var warm []float64
		for gi := cvGridSize - 1; gi >= 0; gi-- {
			if !usable[gi] {
				continue
			}
			c, err := coordinateDescent(g, b, grid[gi], warm)
			if err != nil {
				usable[gi] = false
				continue
			}
			warm = c
			for _, i := range testRows {
				pred := 0.0
				for j := 0; j < p; j++ {
					pred += d.At(i, j) * c[j]
				}
				r := y.AtVec(i) - pred
				scores[gi] += r * r
			}
		}
	}

	best, bestScore := math.NaN(), math.Inf(1)
	for gi := range grid {
		if usable[gi] && scores[gi] < bestScore {
			best, bestScore = grid[gi], scores[gi]
		}
	}
	if math.IsNaN(best) {
		return 0, fmt.Errorf("%w: cross-validation found no usable sparsity weight",
			ErrNumericalFailure)
	}
	return best, nil
}
