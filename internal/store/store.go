package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/geo"
	"github.com/adialm/health-resilience-sim/internal/model"
)

// Sentinel errors callers branch on.
var (
	ErrNotFound = eris.New("store: not found")
	ErrExists   = eris.New("store: already exists")
)

// ScenarioFilter specifies paging for ListScenarios.
type ScenarioFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ScenarioSummary is a list row: scenario metadata without its interventions.
type ScenarioSummary struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Policy        model.Policy `json:"policy"`
	Interventions int          `json:"interventions"`
	LastModified  time.Time    `json:"last_modified"`
}

// Store defines the persistence interface for scenarios and projection results.
type Store interface {
	// Scenarios
	CreateScenario(ctx context.Context, s model.Scenario) error
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)
	ListScenarios(ctx context.Context, filter ScenarioFilter) ([]ScenarioSummary, error)
	SaveScenario(ctx context.Context, s model.Scenario) error
	DeleteScenario(ctx context.Context, id string) error

	// Results
	SaveResult(ctx context.Context, scenarioID string, p model.Policy, interventions int, snap model.Snapshot) (*model.Result, error)
	ListResults(ctx context.Context, scenarioID string, limit int) ([]model.Result, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// interventionColumns is the column order used by every intervention insert.
var interventionColumns = []string{
	"scenario_id", "id", "position", "type", "name", "district_id", "location", "parameters",
}

// interventionRows encodes a scenario's interventions in interventionColumns order.
func interventionRows(s model.Scenario) ([][]any, error) {
	rows := make([][]any, 0, len(s.Interventions))
	for i, iv := range s.Interventions {
		loc, err := geo.EncodePoint(iv.Location.Point)
		if err != nil {
			return nil, eris.Wrapf(err, "store: encode location of %s", iv.ID)
		}
		params, err := json.Marshal(iv.Parameters)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal parameters of %s", iv.ID)
		}
		rows = append(rows, []any{
			s.ID, iv.ID, i, string(iv.Type), iv.Name, iv.Location.DistrictID, loc, params,
		})
	}
	return rows, nil
}

// decodeIntervention fills the encoded columns of an intervention.
func decodeIntervention(iv *model.Intervention, typ string, loc, params []byte) error {
	iv.Type = model.InterventionType(typ)
	p, err := geo.DecodePoint(loc)
	if err != nil {
		return eris.Wrapf(err, "store: decode location of %s", iv.ID)
	}
	iv.Location.Point = p
	if len(params) > 0 {
		if err := json.Unmarshal(params, &iv.Parameters); err != nil {
			return eris.Wrapf(err, "store: unmarshal parameters of %s", iv.ID)
		}
	}
	return nil
}

// newResult builds a result record and its encoded policy and snapshot.
func newResult(id, scenarioID string, p model.Policy, interventions int, snap model.Snapshot, now time.Time) (*model.Result, []byte, []byte, error) {
	policyJSON, err := json.Marshal(p)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "store: marshal policy")
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "store: marshal snapshot")
	}
	r := &model.Result{
		ID:            id,
		ScenarioID:    scenarioID,
		Policy:        p,
		Interventions: interventions,
		Snapshot:      snap,
		CreatedAt:     now,
	}
	return r, policyJSON, snapJSON, nil
}

func decodeResult(r *model.Result, policyJSON, snapJSON []byte) error {
	if err := json.Unmarshal(policyJSON, &r.Policy); err != nil {
		return eris.Wrap(err, "store: unmarshal policy")
	}
	if err := json.Unmarshal(snapJSON, &r.Snapshot); err != nil {
		return eris.Wrap(err, "store: unmarshal snapshot")
	}
	return nil
}
