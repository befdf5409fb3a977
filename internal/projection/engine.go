// Package projection maps placed interventions and policy settings to a
// deterministic metrics snapshot over a reference dataset. The engine holds
// no per-call state and is safe for concurrent use.
package projection

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/refdata"
)

// Fixed starting values; the reference data carries no indicator for them.
const (
	baseMortality          = 3.2
	baseHospitalCapacity   = 85
	baseResilience         = 6.5
	prematureFallback      = -18
	lifeExpectancyTarget   = 85
	prematureMortalityRate = 0.2
)

// Engine computes projections over one dataset.
type Engine struct {
	ds       *refdata.Dataset
	base     vector
	baseline model.Snapshot
}

// New builds an engine over ds and precomputes the baseline.
func New(ds *refdata.Dataset) (*Engine, error) {
	if ds == nil {
		return nil, eris.Wrap(refdata.ErrEmptyDataset, "projection: nil dataset")
	}
	e := &Engine{ds: ds, base: clamp(derive(ds.Baseline()))}
	e.baseline = e.finish(e.base)
	return e, nil
}

// Dataset returns the reference dataset the engine reads.
func (e *Engine) Dataset() *refdata.Dataset {
	return e.ds
}

// derive turns the weighted indicator averages into starting values for each
// output field, rounded to one decimal.
func derive(b model.Baseline) vector {
	var v vector
	v[fieldMortality] = baseMortality
	v[fieldCapacity] = baseHospitalCapacity
	v[fieldAccess] = round1(math.Max(1, 10-b.UninsuredRate))
	v[fieldResilience] = baseResilience
	v[fieldCardiometabolic] = round1(-(b.DiabetesPrevalence + b.HypertensionRate + b.ObesityRate) / 3)
	v[fieldAccessBarriers] = round1(-b.UninsuredRate)
	v[fieldPrematureMortality] = prematureFallback
	if b.LifeExpectancy > 0 {
		v[fieldPrematureMortality] = round1(-(lifeExpectancyTarget - b.LifeExpectancy) * prematureMortalityRate)
	}
	v[fieldPediatricAsthma] = round1(-b.AsthmaPrevalence)
	v[fieldSubstanceUse] = round1(-b.OverdoseRate)
	return v
}

// PolicyMultiplier scales every intervention effect by infrastructure and
// funding. It is 0.15 at (0, 0) and 1.0 at (100, 100).
func PolicyMultiplier(access, funding float64) float64 {
	return (0.5 + access/100*0.5) * (0.3 + funding/100*0.7)
}

// Baseline returns the snapshot with no interventions placed.
func (e *Engine) Baseline() model.Snapshot {
	return e.baseline
}

// Project computes the snapshot for the given interventions under p.
// Interventions whose type has no modeled effect, or whose lever is missing
// from the dataset, are skipped. Policy values outside their documented
// ranges are not rejected here; use ProjectValidated for that.
func (e *Engine) Project(interventions []model.Intervention, p model.Policy) model.Snapshot {
	pm := PolicyMultiplier(p.Access, p.Funding)
	counts := model.CountByType(interventions)

	v := e.base
	for _, eff := range effects {
		n := counts[eff.kind]
		if n == 0 {
			continue
		}
		if eff.lever != "" {
			lever, ok := e.ds.Lever(eff.lever)
			if !ok {
				continue
			}
			amount := leverEffect(lever, p.DurationYears, n) * pm
			v[eff.primary] += amount
			v[fieldAccess] += math.Abs(amount) * eff.accessGain
		}
		v = v.add(eff.perUnit, float64(n)*pm)
	}

	zap.L().Debug("projection: computed",
		zap.Int("interventions", len(interventions)),
		zap.Float64("policy_multiplier", pm),
		zap.Int("duration_years", p.DurationYears),
	)
	return e.finish(v)
}

// ProjectValidated rejects out-of-range policy values before projecting.
func (e *Engine) ProjectValidated(interventions []model.Intervention, p model.Policy) (model.Snapshot, error) {
	if err := ValidatePolicy(p); err != nil {
		return model.Snapshot{}, err
	}
	return e.Project(interventions, p), nil
}

// finish clamps v, then rounds values and their changes from the baseline.
func (e *Engine) finish(v vector) model.Snapshot {
	v = clamp(v)
	change := func(f field) float64 { return round1(v[f] - e.base[f]) }

	return model.Snapshot{
		Mortality:        model.Metric{Value: round1(v[fieldMortality]), Change: change(fieldMortality)},
		HospitalCapacity: model.Metric{Value: round0(v[fieldCapacity]), Change: change(fieldCapacity)},
		AccessScore:      model.Metric{Value: round1(v[fieldAccess]), Change: change(fieldAccess)},
		ResilienceScore:  model.Metric{Value: round1(v[fieldResilience]), Change: change(fieldResilience)},
		HealthProblems: model.HealthProblems{
			Cardiometabolic:    round0(v[fieldCardiometabolic]),
			AccessBarriers:     round0(v[fieldAccessBarriers]),
			PrematureMortality: round0(v[fieldPrematureMortality]),
			PediatricAsthma:    round0(v[fieldPediatricAsthma]),
			SubstanceUse:       round0(v[fieldSubstanceUse]),
		},
	}
}
