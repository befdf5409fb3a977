package projection

import (
	"math"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/refdata"
)

// field indexes one accumulated output quantity.
type field int

const (
	fieldMortality field = iota
	fieldCapacity
	fieldAccess
	fieldResilience
	fieldCardiometabolic
	fieldAccessBarriers
	fieldPrematureMortality
	fieldPediatricAsthma
	fieldSubstanceUse
	numFields
)

// vector holds one value per field.
type vector [numFields]float64

func (v vector) add(o vector, scale float64) vector {
	for i := range v {
		v[i] += o[i] * scale
	}
	return v
}

// effect is the coefficient record for one intervention type. When lever is
// set, the lever's capped, policy-scaled effect lands on primary and
// accessGain·|effect| is added to the access score. perUnit is added once per
// placed intervention, scaled by the policy multiplier.
type effect struct {
	kind       model.InterventionType
	lever      string
	primary    field
	accessGain float64
	perUnit    vector
}

// effects is evaluated in slice order so float accumulation is reproducible.
// Types without a record have no modeled effect.
var effects = []effect{
	{
		kind:       model.InterventionClinic,
		lever:      refdata.LeverAddClinic,
		primary:    fieldAccessBarriers,
		accessGain: 0.15,
		perUnit: vector{
			fieldCardiometabolic: -2,
			fieldResilience:      0.2,
		},
	},
	{
		kind: model.InterventionHospital,
		perUnit: vector{
			fieldMortality:          -0.15,
			fieldCapacity:           -3,
			fieldPrematureMortality: -4,
			fieldResilience:         0.35,
		},
	},
	{
		kind:    model.InterventionVaccination,
		lever:   refdata.LeverAirFiltering,
		primary: fieldPediatricAsthma,
		perUnit: vector{
			fieldSubstanceUse:    -3,
			fieldCardiometabolic: -2,
			fieldAccess:          0.25,
			fieldResilience:      0.25,
		},
	},
}

// LeverFor returns the lever driving the primary effect of an intervention
// type. The bool is false for types with no lever-driven effect.
func LeverFor(t model.InterventionType) (string, bool) {
	for _, e := range effects {
		if e.kind == t && e.lever != "" {
			return e.lever, true
		}
	}
	return "", false
}

// Modeled reports whether an intervention type contributes to projections.
func Modeled(t model.InterventionType) bool {
	for _, e := range effects {
		if e.kind == t {
			return true
		}
	}
	return false
}

// leverEffect accrues a lever over the simulation period for n units and
// caps the total at n times the lever's saturation, keeping whichever of the
// two is smaller in magnitude.
func leverEffect(l model.Lever, durationYears, n int) float64 {
	total := l.EffectPerMonth * float64(durationYears*12) * float64(n)
	limit := l.MaxEffect * float64(n)
	if math.Abs(total) > math.Abs(limit) {
		return limit
	}
	return total
}

type bound struct{ lo, hi float64 }

var bounds = [numFields]bound{
	fieldMortality:          {0.5, math.Inf(1)},
	fieldCapacity:           {50, math.Inf(1)},
	fieldAccess:             {math.Inf(-1), 10},
	fieldResilience:         {math.Inf(-1), 10},
	fieldCardiometabolic:    {-50, math.Inf(1)},
	fieldAccessBarriers:     {-20, math.Inf(1)},
	fieldPrematureMortality: {-30, math.Inf(1)},
	fieldPediatricAsthma:    {-20, math.Inf(1)},
	fieldSubstanceUse:       {-15, math.Inf(1)},
}

func clamp(v vector) vector {
	for i, b := range bounds {
		v[i] = math.Min(math.Max(v[i], b.lo), b.hi)
	}
	return v
}

// round1 rounds half-up to one decimal.
func round1(x float64) float64 {
	return zero(math.Floor(x*10+0.5) / 10)
}

// round0 rounds half-up to an integer.
func round0(x float64) float64 {
	return zero(math.Floor(x + 0.5))
}

// zero folds negative zero into zero.
func zero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return x
}
