// Package qtsim generates synthetic qt-dMRI signals for test harnesses and
// demos. It simulates free (Gaussian) diffusion for mixtures of tensors and
// injects Rician noise at a chosen SNR. The fitting core never depends on
// this package; it only ever consumes a real-valued signal vector.
package qtsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"qtdmri/pkg/acquisition"
)

// Tensor is a diagonalized diffusion tensor: eigenvalues in mm^2/s and the
// polar/azimuthal orientation of its principal axis in degrees.
type Tensor struct {
	Evals [3]float64
	Theta float64
	Phi   float64
}

// MultiTensorSignal evaluates the normalized signal attenuation of a mixture
// of freely diffusing tensors at every sample of the acquisition table:
//
//	E(q, tau) = sum_k f_k * exp(-4 pi^2 q^2 tau * u^T D_k u)
//
// Fractions are normalized to sum to one.
func MultiTensorSignal(tab *acquisition.Table, tensors []Tensor, fractions []float64) ([]float64, error) {
	if len(tensors) == 0 || len(tensors) != len(fractions) {
		return nil, fmt.Errorf("qtsim: need one fraction per tensor, got %d tensors and %d fractions",
			len(tensors), len(fractions))
	}
	total := 0.0
	for _, f := range fractions {
		if f < 0 {
			return nil, fmt.Errorf("qtsim: negative fraction %g", f)
		}
		total += f
	}
	if total == 0 {
		return nil, fmt.Errorf("qtsim: fractions sum to zero")
	}

	ds := make([][3][3]float64, len(tensors))
	for k, tns := range tensors {
		ds[k] = tensorMatrix(tns)
	}

	signal := make([]float64, tab.Len())
	for i := 0; i < tab.Len(); i++ {
		q := tab.Q(i)
		tau := tab.Tau(i)
		e := 0.0
		for k := range tensors {
			qDq := 0.0
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					qDq += q[a] * ds[k][a][b] * q[b]
				}
			}
			e += fractions[k] / total * math.Exp(-4*math.Pi*math.Pi*tau*qDq)
		}
		signal[i] = e
	}
	return signal, nil
}

// tensorMatrix rotates diag(Evals) so its first eigenvector points along the
// (Theta, Phi) direction, with Theta measured from the z axis in degrees.
func tensorMatrix(t Tensor) [3][3]float64 {
	st, ct := math.Sincos(t.Theta * math.Pi / 180)
	sp, cp := math.Sincos(t.Phi * math.Pi / 180)
	// Orthonormal frame with e1 along the principal axis.
	e1 := [3]float64{st * cp, st * sp, ct}
	e2 := [3]float64{ct * cp, ct * sp, -st}
	e3 := [3]float64{-sp, cp, 0}
	basis := [3][3]float64{e1, e2, e3}

	var d [3][3]float64
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			for k := 0; k < 3; k++ {
				d[a][b] += t.Evals[k] * basis[k][a] * basis[k][b]
			}
		}
	}
	return d
}

// AddRicianNoise perturbs a magnitude signal with Rician noise at the given
// SNR relative to s0, using a seeded source so tests are reproducible.
func AddRicianNoise(signal []float64, s0, snr float64, seed uint64) []float64 {
	sigma := s0 / snr
	normal := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	noisy := make([]float64, len(signal))
	for i, s := range signal {
		re := s + normal.Rand()
		im := normal.Rand()
		noisy[i] = math.Hypot(re, im)
	}
	return noisy
}
