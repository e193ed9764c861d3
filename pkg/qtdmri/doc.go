// Package qtdmri estimates a continuous representation of the q-space-time
// diffusion MRI signal from measurements acquired at multiple q-vectors and
// diffusion times, following the functional basis approach of Fick et al.
//
// The signal attenuation E(q, tau) is expanded in a separable basis: a
// spatial part (either a Cartesian Hermite-function basis or a spherical
// radial-angular basis, both spanning the same function space) times an
// orthonormal exponential-Laguerre basis over diffusion time. Fitting the
// basis coefficients is a regularized least-squares problem; the package
// supports Laplacian (roughness) regularization with generalized
// cross-validation for the weight, L1 sparsity regularization with k-fold
// cross-validation, and the elastic combination of both.
//
// A fitted model exposes the reconstructed signal, the displacement
// probability density, the orientation distribution function, and the scalar
// q-space indices (return-to-origin/axis/plane probabilities, mean squared
// displacement and q-space inverse variance) at any diffusion time.
package qtdmri
