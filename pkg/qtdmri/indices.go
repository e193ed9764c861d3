package qtdmri

// CartesianIndex identifies one Cartesian basis function: the Hermite orders
// along the three (rotated) axes and the temporal order.
type CartesianIndex struct {
	N1, N2, N3 int
	O          int
}

// SphericalIndex identifies one spherical basis function: radial index J,
// angular degree L and order M, and the temporal order.
type SphericalIndex struct {
	J, L, M int
	O       int
}

// NumberOfCoefficients returns the exact number of basis functions for the
// given radial and temporal orders. The spatial count is the closed-form
// (F+1)(F+2)(4F+3)/6 with F = radialOrder/2, identical for both spatial
// parameterizations; each spatial function carries timeOrder+1 temporal
// companions.
func NumberOfCoefficients(radialOrder, timeOrder int) int {
	f := radialOrder / 2
	spatial := (f + 1) * (f + 2) * (4*f + 3) / 6
	return spatial * (timeOrder + 1)
}

// CartesianIndices enumerates the Cartesian basis index set in its canonical
// order: ascending even total order, the axis split nested inside, and the
// temporal order innermost.
func CartesianIndices(radialOrder, timeOrder int) []CartesianIndex {
	idx := make([]CartesianIndex, 0, NumberOfCoefficients(radialOrder, timeOrder))
	for n := 0; n <= radialOrder; n += 2 {
		for i := 0; i <= n; i++ {
			for j := 0; j <= n-i; j++ {
				for o := 0; o <= timeOrder; o++ {
					idx = append(idx, CartesianIndex{N1: n - i - j, N2: j, N3: i, O: o})
				}
			}
		}
	}
	return idx
}

// SphericalIndices enumerates the spherical basis index set in its canonical
// order: ascending even total order n, radial index j from 1 to 1+n/2 with
// angular degree l = n+2-2j, angular order m from -l to l, and the temporal
// order innermost.
func SphericalIndices(radialOrder, timeOrder int) []SphericalIndex {
	idx := make([]SphericalIndex, 0, NumberOfCoefficients(radialOrder, timeOrder))
	for n := 0; n <= radialOrder; n += 2 {
		for j := 1; j <= 1+n/2; j++ {
			l := n + 2 - 2*j
			for m := -l; m <= l; m++ {
				for o := 0; o <= timeOrder; o++ {
					idx = append(idx, SphericalIndex{J: j, L: l, M: m, O: o})
				}
			}
		}
	}
	return idx
}
