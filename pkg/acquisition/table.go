// Package acquisition describes qt-dMRI acquisition geometry: the set of
// (q-vector, pulse separation, pulse duration) samples a scanner acquired.
// It maps pulse timings to effective diffusion times and groups samples into
// tau shells, which the fitting core uses for per-shell signal normalization.
package acquisition

import (
	"fmt"
	"math"
)

// B0Threshold is the q magnitude (in 1/mm) below which a sample is treated
// as an unweighted (b0) measurement.
const B0Threshold = 1e-6

// Table holds one acquisition sample per row. It is immutable once
// constructed; the fitting model keeps a reference and never mutates it.
type Table struct {
	qvals      []float64
	bvecs      [][3]float64
	bigDelta   []float64
	smallDelta []float64
	taus       []float64
}

// NewTable builds an acquisition table from per-sample q-value magnitudes
// (1/mm), unit gradient directions, gradient pulse separations and durations
// (seconds). The effective diffusion time of a sample is bigDelta - smallDelta/3.
func NewTable(qvals []float64, bvecs [][3]float64, bigDelta, smallDelta []float64) (*Table, error) {
	n := len(qvals)
	if len(bvecs) != n || len(bigDelta) != n || len(smallDelta) != n {
		return nil, fmt.Errorf("acquisition: mismatched sample counts: %d qvals, %d bvecs, %d separations, %d durations",
			n, len(bvecs), len(bigDelta), len(smallDelta))
	}
	if n == 0 {
		return nil, fmt.Errorf("acquisition: empty table")
	}
	t := &Table{
		qvals:      append([]float64(nil), qvals...),
		bvecs:      append([][3]float64(nil), bvecs...),
		bigDelta:   append([]float64(nil), bigDelta...),
		smallDelta: append([]float64(nil), smallDelta...),
		taus:       make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if qvals[i] < 0 {
			return nil, fmt.Errorf("acquisition: negative q value at sample %d", i)
		}
		tau := bigDelta[i] - smallDelta[i]/3
		if tau <= 0 {
			return nil, fmt.Errorf("acquisition: non-positive diffusion time at sample %d (bigDelta=%g smallDelta=%g)",
				i, bigDelta[i], smallDelta[i])
		}
		t.taus[i] = tau
		if qvals[i] > B0Threshold {
			norm := math.Sqrt(bvecs[i][0]*bvecs[i][0] + bvecs[i][1]*bvecs[i][1] + bvecs[i][2]*bvecs[i][2])
			if math.Abs(norm-1) > 1e-3 {
				return nil, fmt.Errorf("acquisition: direction of sample %d is not unit length (|v|=%g)", i, norm)
			}
		}
	}
	return t, nil
}

// Len returns the number of acquisition samples.
func (t *Table) Len() int { return len(t.qvals) }

// Q returns the full q-vector of sample i (magnitude times direction).
func (t *Table) Q(i int) [3]float64 {
	q := t.qvals[i]
	v := t.bvecs[i]
	return [3]float64{q * v[0], q * v[1], q * v[2]}
}

// QMag returns the q magnitude of sample i.
func (t *Table) QMag(i int) float64 { return t.qvals[i] }

// Tau returns the effective diffusion time of sample i.
func (t *Table) Tau(i int) float64 { return t.taus[i] }

// IsB0 reports whether sample i is an unweighted measurement.
func (t *Table) IsB0(i int) bool { return t.qvals[i] <= B0Threshold }

// shellKey identifies a tau shell by its pulse timings.
type shellKey struct {
	bigDelta   float64
	smallDelta float64
}

// TauShells groups sample indices by identical pulse timings. The order of
// the returned groups follows first appearance in the table.
func (t *Table) TauShells() [][]int {
	order := make([]shellKey, 0)
	groups := make(map[shellKey][]int)
	for i := range t.qvals {
		k := shellKey{t.bigDelta[i], t.smallDelta[i]}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	shells := make([][]int, len(order))
	for j, k := range order {
		shells[j] = groups[k]
	}
	return shells
}
