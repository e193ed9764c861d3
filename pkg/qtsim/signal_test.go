package qtsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtdmri/pkg/acquisition"
)

func simTable(t *testing.T) *acquisition.Table {
	t.Helper()
	tab, err := acquisition.NewTable(
		[]float64{0, 20, 20, 30},
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {1, 0, 0}},
		[]float64{0.030, 0.030, 0.030, 0.050},
		[]float64{0.010, 0.010, 0.010, 0.010},
	)
	require.NoError(t, err)
	return tab
}

func TestMultiTensorSignalIsotropic(t *testing.T) {
	tab := simTable(t)
	const d = 0.7e-3
	signal, err := MultiTensorSignal(tab, []Tensor{{Evals: [3]float64{d, d, d}}}, []float64{1})
	require.NoError(t, err)

	for i := range signal {
		q := tab.QMag(i)
		want := math.Exp(-4 * math.Pi * math.Pi * q * q * tab.Tau(i) * d)
		assert.InDelta(t, want, signal[i], 1e-12, "sample %d", i)
	}
	assert.Equal(t, 1.0, signal[0], "unweighted sample")
}

func TestMultiTensorSignalAnisotropy(t *testing.T) {
	tab := simTable(t)
	// Principal axis along x (Theta 90, Phi 0): decay along x beats decay
	// along z at the same q.
	signal, err := MultiTensorSignal(tab,
		[]Tensor{{Evals: [3]float64{1.5e-3, 0.3e-3, 0.3e-3}, Theta: 90, Phi: 0}},
		[]float64{1})
	require.NoError(t, err)
	assert.Less(t, signal[1], signal[2])
}

func TestMultiTensorSignalFractionsNormalized(t *testing.T) {
	tab := simTable(t)
	tensors := []Tensor{
		{Evals: [3]float64{1.5e-3, 0.3e-3, 0.3e-3}, Theta: 90},
		{Evals: [3]float64{1.5e-3, 0.3e-3, 0.3e-3}, Theta: 90, Phi: 60},
	}
	a, err := MultiTensorSignal(tab, tensors, []float64{0.5, 0.5})
	require.NoError(t, err)
	b, err := MultiTensorSignal(tab, tensors, []float64{2, 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = MultiTensorSignal(tab, tensors, []float64{0.5})
	assert.Error(t, err, "fraction count mismatch")
	_, err = MultiTensorSignal(tab, tensors, []float64{-1, 2})
	assert.Error(t, err, "negative fraction")
	_, err = MultiTensorSignal(tab, tensors, []float64{0, 0})
	assert.Error(t, err, "zero total")
}

func TestAddRicianNoise(t *testing.T) {
	signal := make([]float64, 2000)
	for i := range signal {
		signal[i] = 0.5
	}

	a := AddRicianNoise(signal, 1, 20, 7)
	b := AddRicianNoise(signal, 1, 20, 7)
	c := AddRicianNoise(signal, 1, 20, 8)
	assert.Equal(t, a, b, "same seed reproduces")
	assert.NotEqual(t, a, c, "different seed differs")

	// Magnitudes stay non-negative and scatter around the true value.
	mean := 0.0
	for _, v := range a {
		assert.GreaterOrEqual(t, v, 0.0)
		mean += v
	}
	mean /= float64(len(a))
	assert.InDelta(t, 0.5, mean, 0.02)
}
