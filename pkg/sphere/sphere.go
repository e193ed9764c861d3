// Package sphere provides fixed discrete orientation sets on the unit sphere,
// used for sampling orientation distribution functions.
package sphere

import "math"

// Sphere is a fixed set of unit directions.
type Sphere struct {
	// Vertices are the unit direction vectors.
	Vertices [][3]float64
}

// New returns a deterministic Fibonacci-spiral point set with n directions.
// The spiral gives a near-uniform angular coverage without randomness, so
// repeated runs sample the ODF at identical orientations.
func New(n int) *Sphere {
	if n < 1 {
		n = 1
	}
	golden := (1 + math.Sqrt(5)) / 2
	s := &Sphere{Vertices: make([][3]float64, n)}
	for i := 0; i < n; i++ {
		// Latitude from an offset midpoint rule, longitude from the golden angle.
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := 2 * math.Pi * float64(i) / golden
		s.Vertices[i] = [3]float64{r * math.Cos(phi), r * math.Sin(phi), z}
	}
	return s
}

// Len returns the number of directions.
func (s *Sphere) Len() int { return len(s.Vertices) }
