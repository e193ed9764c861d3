package qtdmri

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// assembleLaplacian builds the Gram matrix of the full space-time Laplacian
// over the basis,
//
//	L[ij] = int (Lap Phi_i theta_oi) (Lap Phi_j theta_oj) dq dtau,
//
// with Lap = Lap_q + d^2/dtau^2. The separable structure reduces it to three
// spatial Gram matrices combined with exact temporal derivative matrices; no
// quadrature is involved. The result is symmetric positive semidefinite, and
// identical across the two spatial parameterizations at equal order and
// isotropic scale because both span the same space.
func (m *Model) assembleLaplacian(us [3]float64, ut float64) *mat.SymDense {
	var uSpat, mSpat, llSpat *mat.Dense
	if m.opts.Cartesian {
		uSpat, mSpat, llSpat = m.cartesianSpatialGrams(us)
	} else {
		uSpat, mSpat, llSpat = m.sphericalSpatialGrams(us[0])
	}

	cross, second := temporalGrams(m.opts.TimeOrder, ut)
	nt := m.opts.TimeOrder + 1

	l := mat.NewSymDense(m.ncoef, nil)
	for i := 0; i < m.ncoef; i++ {
		si, oi := i/nt, i%nt
		for j := i; j < m.ncoef; j++ {
			sj, oj := j/nt, j%nt
			v := mSpat.At(si, sj) * (cross.At(oi, oj) + cross.At(oj, oi))
			v += uSpat.At(si, sj) * second.At(oi, oj)
			if oi == oj {
				v += llSpat.At(si, sj)
			}
			l.SetSym(i, j, v)
		}
	}
	return l
}

// cartesianSpatialGrams returns the spatial overlap, Laplacian-cross and
// Laplacian-Laplacian Gram matrices of the Cartesian basis, assembled from
// per-axis one-dimensional matrices.
func (m *Model) cartesianSpatialGrams(us [3]float64) (uSpat, mSpat, llSpat *mat.Dense) {
	size := m.opts.RadialOrder + 1
	s1, t1, u1 := cartesianAxisGrams(size, us[0])
	s2, t2, u2 := cartesianAxisGrams(size, us[1])
	s3, t3, u3 := cartesianAxisGrams(size, us[2])

	nt := m.opts.TimeOrder + 1
	ns := m.ncoef / nt
	spatial := make([]CartesianIndex, ns)
	signs := make([]float64, ns)
	for k := 0; k < ns; k++ {
		spatial[k] = m.cartIdx[k*nt]
		signs[k] = m.cartSigns[k*nt]
	}

	uSpat = mat.NewDense(ns, ns, nil)
	mSpat = mat.NewDense(ns, ns, nil)
	llSpat = mat.NewDense(ns, ns, nil)
	for i := 0; i < ns; i++ {
		a := spatial[i]
		for j := 0; j < ns; j++ {
			b := spatial[j]
			sg := signs[i] * signs[j]
			u12 := u1.At(a.N1, b.N1)
			u22 := u2.At(a.N2, b.N2)
			u32 := u3.At(a.N3, b.N3)
			t12 := t1.At(a.N1, b.N1)
			t22 := t2.At(a.N2, b.N2)
			t32 := t3.At(a.N3, b.N3)

			uSpat.Set(i, j, sg*u12*u22*u32)
			mSpat.Set(i, j, sg*(t12*u22*u32+u12*t22*u32+u12*u22*t32))
			ll := s1.At(a.N1, b.N1)*u22*u32 +
				u12*s2.At(a.N2, b.N2)*u32 +
				u12*u22*s3.At(a.N3, b.N3) +
				2*(t12*t22*u32+t12*u22*t32+u12*t22*t32)
			llSpat.Set(i, j, sg*ll)
		}
	}
	return uSpat, mSpat, llSpat
}

// sphericalSpatialGrams returns the same three spatial Gram matrices for the
// spherical basis. Angular orthonormality makes them block diagonal over
// (l, m); within a block the q-Laplacian acts through the tridiagonal
// oscillator matrix returned by sphericalLaplaceOp.
func (m *Model) sphericalSpatialGrams(u float64) (uSpat, mSpat, llSpat *mat.Dense) {
	nt := m.opts.TimeOrder + 1
	ns := m.ncoef / nt
	spatial := make([]SphericalIndex, ns)
	for k := 0; k < ns; k++ {
		spatial[k] = m.sphIdx[k*nt]
	}

	// One oscillator matrix and its square per angular degree.
	ct := make(map[int]*mat.Dense)
	ct2 := make(map[int]*mat.Dense)
	for l := 0; l <= m.opts.RadialOrder; l += 2 {
		nmax := (m.opts.RadialOrder - l) / 2
		c := sphericalLaplaceOp(nmax, l)
		ct[l] = c
		sq := mat.NewDense(nmax+1, nmax+1, nil)
		sq.Mul(c, c)
		ct2[l] = sq
	}

	a := 2 * math.Pi * u
	uSpat = mat.NewDense(ns, ns, nil)
	mSpat = mat.NewDense(ns, ns, nil)
	llSpat = mat.NewDense(ns, ns, nil)
	for i := 0; i < ns; i++ {
		ii := spatial[i]
		for j := 0; j < ns; j++ {
			jj := spatial[j]
			if ii.L != jj.L || ii.M != jj.M {
				continue
			}
			n1, n2 := ii.J-1, jj.J-1
			if n1 == n2 {
				uSpat.Set(i, j, 1/(a*a*a))
			}
			mSpat.Set(i, j, ct[ii.L].At(n1, n2)/a)
			llSpat.Set(i, j, a*ct2[ii.L].At(n1, n2))
		}
	}
	return uSpat, mSpat, llSpat
}
