package model

import "time"

// Metric is an outcome value with its change from baseline.
type Metric struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// HealthProblems holds the composite indices, each a signed percent change
// from baseline. Negative is improvement.
type HealthProblems struct {
	Cardiometabolic    float64 `json:"cardiometabolic"`
	AccessBarriers     float64 `json:"access_barriers"`
	PrematureMortality float64 `json:"premature_mortality"`
	PediatricAsthma    float64 `json:"pediatric_asthma"`
	SubstanceUse       float64 `json:"substance_use"`
}

// Snapshot is the output of one projection. It is a plain value; two
// snapshots compare equal with == when every field matches.
type Snapshot struct {
	Mortality        Metric         `json:"mortality"`
	HospitalCapacity Metric         `json:"hospital_capacity"`
	AccessScore      Metric         `json:"access_score"`
	ResilienceScore  Metric         `json:"resilience_score"`
	HealthProblems   HealthProblems `json:"health_problems"`
}

// Scenario is a named set of placed interventions plus policy settings.
type Scenario struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	BaselineYear  int            `json:"baseline_year"`
	Policy        Policy         `json:"policy"`
	Interventions []Intervention `json:"interventions"`
	CreatedAt     time.Time      `json:"created_at"`
	LastModified  time.Time      `json:"last_modified"`
}

// Result records one projection run for a scenario.
type Result struct {
	ID            string    `json:"id"`
	ScenarioID    string    `json:"scenario_id"`
	Policy        Policy    `json:"policy"`
	Interventions int       `json:"interventions"`
	Snapshot      Snapshot  `json:"snapshot"`
	CreatedAt     time.Time `json:"created_at"`
}
