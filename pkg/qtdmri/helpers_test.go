package qtdmri

import (
	"testing"

	"github.com/stretchr/testify/require"

	"qtdmri/pkg/acquisition"
	"qtdmri/pkg/qtsim"
	"qtdmri/pkg/sphere"
)

// testTable builds a four-shell qt acquisition: pulse separations from 20 to
// 50 ms at 10 ms pulse duration, each with one unweighted sample and four
// q shells of 15 directions (244 samples in total).
func testTable(t *testing.T) *acquisition.Table {
	t.Helper()
	dirs := sphere.New(15).Vertices
	separations := []float64{0.020, 0.030, 0.040, 0.050}
	qshells := []float64{10, 20, 30, 40}
	const duration = 0.010

	var (
		qvals      []float64
		bvecs      [][3]float64
		bigDelta   []float64
		smallDelta []float64
	)
	for _, sep := range separations {
		qvals = append(qvals, 0)
		bvecs = append(bvecs, [3]float64{0, 0, 0})
		bigDelta = append(bigDelta, sep)
		smallDelta = append(smallDelta, duration)
		for _, q := range qshells {
			for _, d := range dirs {
				qvals = append(qvals, q)
				bvecs = append(bvecs, d)
				bigDelta = append(bigDelta, sep)
				smallDelta = append(smallDelta, duration)
			}
		}
	}
	tab, err := acquisition.NewTable(qvals, bvecs, bigDelta, smallDelta)
	require.NoError(t, err)
	return tab
}

// smallTable builds an acquisition with fewer samples than an order (4, 2)
// basis has coefficients.
func smallTable(t *testing.T) *acquisition.Table {
	t.Helper()
	dirs := sphere.New(9).Vertices
	var (
		qvals      []float64
		bvecs      [][3]float64
		bigDelta   []float64
		smallDelta []float64
	)
	for _, sep := range []float64{0.020, 0.040} {
		qvals = append(qvals, 0)
		bvecs = append(bvecs, [3]float64{0, 0, 0})
		bigDelta = append(bigDelta, sep)
		smallDelta = append(smallDelta, 0.010)
		for _, d := range dirs {
			qvals = append(qvals, 25)
			bvecs = append(bvecs, d)
			bigDelta = append(bigDelta, sep)
			smallDelta = append(smallDelta, 0.010)
		}
	}
	tab, err := acquisition.NewTable(qvals, bvecs, bigDelta, smallDelta)
	require.NoError(t, err)
	return tab
}

// crossingSignal simulates two equal-fraction fiber populations crossing at
// 60 degrees in the xy plane.
func crossingSignal(t *testing.T, tab *acquisition.Table) []float64 {
	t.Helper()
	tensors := []qtsim.Tensor{
		{Evals: [3]float64{1.5e-3, 0.3e-3, 0.3e-3}, Theta: 90, Phi: 0},
		{Evals: [3]float64{1.5e-3, 0.3e-3, 0.3e-3}, Theta: 90, Phi: 60},
	}
	signal, err := qtsim.MultiTensorSignal(tab, tensors, []float64{0.5, 0.5})
	require.NoError(t, err)
	return signal
}

// mse returns the mean squared difference of two equal-length vectors.
func mse(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s / float64(len(a))
}
