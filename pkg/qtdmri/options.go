package qtdmri

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Weighting selection keywords.
const (
	weightGCV = "GCV"
	weightCV  = "CV"
)

// Weighting is a regularization weight: either a fixed non-negative value or
// a data-driven selection method ("GCV" for the Laplacian weight, "CV" for
// the sparsity weight). The zero value is a fixed weight of zero.
type Weighting struct {
	auto   bool
	method string
	value  float64
}

// FixedWeight returns a Weighting pinned to value.
func FixedWeight(value float64) Weighting {
	return Weighting{value: value}
}

// GCVWeight returns a Weighting selected by generalized cross-validation.
func GCVWeight() Weighting {
	return Weighting{auto: true, method: weightGCV}
}

// CVWeight returns a Weighting selected by k-fold cross-validation.
func CVWeight() Weighting {
	return Weighting{auto: true, method: weightCV}
}

// IsAuto reports whether the weight is chosen from the data.
func (w Weighting) IsAuto() bool { return w.auto }

// Value returns the fixed weight; meaningful only when IsAuto is false.
func (w Weighting) Value() float64 { return w.value }

// String renders the weighting the way it is written in configuration files.
func (w Weighting) String() string {
	if w.auto {
		return w.method
	}
	return fmt.Sprintf("%g", w.value)
}

// UnmarshalYAML accepts either a number or a selection keyword. Keyword
// validity against its use site is checked by NewModel, not here.
func (w *Weighting) UnmarshalYAML(node *yaml.Node) error {
	var f float64
	if err := node.Decode(&f); err == nil {
		*w = Weighting{value: f}
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("weighting must be a number or a keyword: %w", err)
	}
	*w = Weighting{auto: true, method: strings.ToUpper(strings.TrimSpace(s))}
	return nil
}

// MarshalYAML renders the weighting as the value UnmarshalYAML accepts.
func (w Weighting) MarshalYAML() (interface{}, error) {
	if w.auto {
		return w.method, nil
	}
	return w.value, nil
}

// validate checks the weighting against the selection method its use site
// supports.
func (w Weighting) validate(name, allowedMethod string) error {
	if w.auto {
		if w.method != allowedMethod {
			return fmt.Errorf("%w: %s weighting %q (only %q or a fixed value)",
				ErrInvalidWeighting, name, w.method, allowedMethod)
		}
		return nil
	}
	if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
		return fmt.Errorf("%w: %s weighting %g must be finite and non-negative",
			ErrInvalidWeighting, name, w.value)
	}
	return nil
}

// Options configures a Model. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// RadialOrder is the maximum total spatial order, even and non-negative.
	RadialOrder int `yaml:"radial_order"`
	// TimeOrder is the maximum temporal order, non-negative.
	TimeOrder int `yaml:"time_order"`

	// Cartesian selects the Hermite-function spatial parameterization; false
	// selects the spherical one.
	Cartesian bool `yaml:"cartesian"`
	// AnisotropicScaling lets the spatial scales differ per axis, with the
	// frame rotated to the data. Only the Cartesian parameterization supports
	// it; the spherical basis always uses the isotropic scale.
	AnisotropicScaling bool `yaml:"anisotropic_scaling"`
	// Normalization rescales every basis column to unit continuous norm. The
	// reported coefficients change accordingly; every reconstructed quantity
	// is invariant.
	Normalization bool `yaml:"normalization"`

	// LaplacianRegularization penalizes the squared norm of the signal
	// Laplacian, weighted by LaplacianWeighting (fixed or "GCV").
	LaplacianRegularization bool      `yaml:"laplacian_regularization"`
	LaplacianWeighting      Weighting `yaml:"laplacian_weighting"`

	// L1Regularization penalizes the l1 norm of the coefficients, weighted by
	// L1Weighting (fixed or "CV").
	L1Regularization bool      `yaml:"l1_regularization"`
	L1Weighting      Weighting `yaml:"l1_weighting"`
}

// DefaultOptions returns the configuration used throughout the examples:
// order (6, 2) anisotropic Cartesian basis with GCV-weighted Laplacian
// regularization.
func DefaultOptions() Options {
	return Options{
		RadialOrder:             6,
		TimeOrder:               2,
		Cartesian:               true,
		AnisotropicScaling:      true,
		LaplacianRegularization: true,
		LaplacianWeighting:      GCVWeight(),
	}
}

// validate rejects invalid option combinations eagerly.
func (o Options) validate() error {
	if o.RadialOrder < 0 || o.RadialOrder%2 != 0 {
		return fmt.Errorf("%w: radial order %d must be even and non-negative",
			ErrInvalidConfiguration, o.RadialOrder)
	}
	if o.TimeOrder < 0 {
		return fmt.Errorf("%w: time order %d must be non-negative",
			ErrInvalidConfiguration, o.TimeOrder)
	}
	if o.LaplacianRegularization {
		if err := o.LaplacianWeighting.validate("laplacian", weightGCV); err != nil {
			return err
		}
	}
	if o.L1Regularization {
		if err := o.L1Weighting.validate("l1", weightCV); err != nil {
			return err
		}
	}
	return nil
}
