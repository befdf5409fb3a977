// Package scenario edits scenarios as plain values. Every operation returns a
// new Scenario and leaves its input untouched, so a scenario can be shared
// between goroutines without locking.
package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/refdata"
)

// DefaultBaselineYear is the data year new scenarios are anchored to.
const DefaultBaselineYear = 2024

// ErrInterventionNotFound is returned when an edit names an unknown intervention.
var ErrInterventionNotFound = eris.New("scenario: intervention not found")

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// New returns an empty scenario with default policy settings.
func New(name, description string) model.Scenario {
	ts := now()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled scenario"
	}
	return model.Scenario{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   description,
		BaselineYear:  DefaultBaselineYear,
		Policy:        model.DefaultPolicy(),
		Interventions: []model.Intervention{},
		CreatedAt:     ts,
		LastModified:  ts,
	}
}

// NewIntervention builds an intervention with a fresh id. An empty name is
// derived from the type.
func NewIntervention(t model.InterventionType, name string, loc model.Location, params model.InterventionParams) model.Intervention {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("New %s", t)
	}
	return model.Intervention{
		ID:         uuid.New().String(),
		Type:       t,
		Name:       name,
		Location:   loc,
		Parameters: params,
	}
}

// DefaultParams returns the capacity and cost a freshly placed intervention
// of type t starts with.
func DefaultParams(t model.InterventionType) model.InterventionParams {
	switch t {
	case model.InterventionHospital:
		return model.InterventionParams{Capacity: 100, Cost: 5_000_000}
	case model.InterventionClinic:
		return model.InterventionParams{Capacity: 50, Cost: 500_000}
	default:
		return model.InterventionParams{Capacity: 1000, Cost: 100_000}
	}
}

// Place builds an intervention at a map point and assigns it to the district
// with the nearest centroid. Zero capacity and cost take the type defaults.
func Place(ds *refdata.Dataset, t model.InterventionType, name string, p model.Point, params model.InterventionParams) model.Intervention {
	d, _ := ds.NearestDistrict(p)
	def := DefaultParams(t)
	if params.Capacity == 0 {
		params.Capacity = def.Capacity
	}
	if params.Cost == 0 {
		params.Cost = def.Cost
	}
	return NewIntervention(t, name, model.Location{DistrictID: d.ID, Point: p}, params)
}

// AddIntervention appends iv.
func AddIntervention(s model.Scenario, iv model.Intervention) model.Scenario {
	out := clone(s)
	out.Interventions = append(out.Interventions, iv)
	return touch(out)
}

// RemoveIntervention drops the intervention with the given id.
func RemoveIntervention(s model.Scenario, id string) (model.Scenario, error) {
	i := indexOf(s.Interventions, id)
	if i < 0 {
		return s, eris.Wrapf(ErrInterventionNotFound, "remove %s", id)
	}
	out := clone(s)
	out.Interventions = append(out.Interventions[:i], out.Interventions[i+1:]...)
	return touch(out), nil
}

// ReplaceIntervention swaps the intervention sharing iv's id for iv.
func ReplaceIntervention(s model.Scenario, iv model.Intervention) (model.Scenario, error) {
	i := indexOf(s.Interventions, iv.ID)
	if i < 0 {
		return s, eris.Wrapf(ErrInterventionNotFound, "replace %s", iv.ID)
	}
	out := clone(s)
	out.Interventions[i] = iv
	return touch(out), nil
}

// SetPolicy replaces the policy settings.
func SetPolicy(s model.Scenario, p model.Policy) model.Scenario {
	out := clone(s)
	out.Policy = p
	return touch(out)
}

// Reset clears every intervention and restores the default policy.
func Reset(s model.Scenario) model.Scenario {
	out := clone(s)
	out.Interventions = []model.Intervention{}
	out.Policy = model.DefaultPolicy()
	return touch(out)
}

// Counts returns the number of interventions of each type.
func Counts(s model.Scenario) map[model.InterventionType]int {
	return model.CountByType(s.Interventions)
}

func clone(s model.Scenario) model.Scenario {
	s.Interventions = append([]model.Intervention{}, s.Interventions...)
	return s
}

func touch(s model.Scenario) model.Scenario {
	s.LastModified = now()
	return s
}

func indexOf(ivs []model.Intervention, id string) int {
	for i, iv := range ivs {
		if iv.ID == id {
			return i
		}
	}
	return -1
}
