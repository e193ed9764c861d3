package qtdmri

import "errors"

// Error taxonomy of the fitting core. All errors returned by the package wrap
// one of these sentinels, so callers can classify failures with errors.Is.
var (
	// ErrInvalidConfiguration marks conflicting or out-of-range model options,
	// detected at construction before any matrix assembly.
	ErrInvalidConfiguration = errors.New("qtdmri: invalid configuration")

	// ErrInvalidWeighting marks a regularization weighting that is neither a
	// non-negative number nor a recognized selection keyword.
	ErrInvalidWeighting = errors.New("qtdmri: invalid regularization weighting")

	// ErrUnderdeterminedFit marks a fit with fewer usable samples than active
	// basis coefficients while no regularization is enabled.
	ErrUnderdeterminedFit = errors.New("qtdmri: underdetermined fit")

	// ErrNumericalFailure marks a singular or non-convergent solve. Weight
	// searches raise it only when every candidate weight fails.
	ErrNumericalFailure = errors.New("qtdmri: numerical failure")
)
