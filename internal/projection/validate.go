package projection

import (
	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// ErrInvalidPolicy is returned when policy values fall outside their ranges.
var ErrInvalidPolicy = eris.New("projection: invalid policy")

// Policy ranges.
const (
	MinDurationYears = 1
	MaxDurationYears = 10
)

// ValidatePolicy checks access and funding are within 0-100 and the duration
// within 1-10 years.
func ValidatePolicy(p model.Policy) error {
	if !(p.Access >= 0 && p.Access <= 100) {
		return eris.Wrapf(ErrInvalidPolicy, "access %v not in [0, 100]", p.Access)
	}
	if !(p.Funding >= 0 && p.Funding <= 100) {
		return eris.Wrapf(ErrInvalidPolicy, "funding %v not in [0, 100]", p.Funding)
	}
	if p.DurationYears < MinDurationYears || p.DurationYears > MaxDurationYears {
		return eris.Wrapf(ErrInvalidPolicy, "duration %d years not in [%d, %d]",
			p.DurationYears, MinDurationYears, MaxDurationYears)
	}
	return nil
}
