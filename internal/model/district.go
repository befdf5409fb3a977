package model

// RiskLevel classifies a district's overall health risk.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lng float64 `json:"lng" yaml:"lng" mapstructure:"lng"`
	Lat float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
}

// Indicators holds the baseline health indicators recorded for a district.
// Percentages are 0-100. A value of 0 may mean the datum is unavailable.
type Indicators struct {
	AsthmaPrevalence   float64 `json:"asthma_prevalence" yaml:"asthma_prevalence"`
	DiabetesPrevalence float64 `json:"diabetes_prevalence" yaml:"diabetes_prevalence"`
	HypertensionRate   float64 `json:"hypertension_rate" yaml:"hypertension_rate"`
	ObesityRate        float64 `json:"obesity_rate" yaml:"obesity_rate"`
	PhysicalInactivity float64 `json:"physical_inactivity" yaml:"physical_inactivity"`
	Smoking            float64 `json:"smoking" yaml:"smoking"`
	UninsuredRate      float64 `json:"uninsured_rate" yaml:"uninsured_rate"`
	LifeExpectancy     float64 `json:"life_expectancy" yaml:"life_expectancy"`
	OverdoseRate       float64 `json:"overdose_rate" yaml:"overdose_rate"`
	InfantMortality    float64 `json:"infant_mortality_per_1k" yaml:"infant_mortality_per_1k"`
	LowBirthweight     float64 `json:"low_birthweight" yaml:"low_birthweight"`
	CliniciansPer10k   float64 `json:"clinicians_per_10k" yaml:"clinicians_per_10k"`
	ResilienceScore0   float64 `json:"resilience_score_0" yaml:"resilience_score_0"`
}

// District is one geographic sub-area of the city with its baseline indicators.
type District struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Population int        `json:"population" yaml:"population"`
	Indicators Indicators `json:"indicators" yaml:"indicators"`
	Centroid   Point      `json:"centroid" yaml:"centroid"`
	RiskLevel  RiskLevel  `json:"risk_level" yaml:"risk_level"`
}

// Lever is a quantified cause-effect relationship between an intervention
// and one health indicator.
type Lever struct {
	Name           string  `json:"name" yaml:"name"`
	Cost           float64 `json:"cost" yaml:"cost"`
	TargetMetric   string  `json:"target_metric" yaml:"target_metric"`
	EffectPerMonth float64 `json:"effect_per_month" yaml:"effect_per_month"`
	MaxEffect      float64 `json:"max_effect" yaml:"max_effect"`
}

// Baseline is the population-weighted average of the tracked indicators
// across every district in a dataset.
type Baseline struct {
	AsthmaPrevalence   float64 `json:"asthma_prevalence"`
	DiabetesPrevalence float64 `json:"diabetes_prevalence"`
	HypertensionRate   float64 `json:"hypertension_rate"`
	ObesityRate        float64 `json:"obesity_rate"`
	UninsuredRate      float64 `json:"uninsured_rate"`
	LifeExpectancy     float64 `json:"life_expectancy"`
	OverdoseRate       float64 `json:"overdose_rate"`
	InfantMortality    float64 `json:"infant_mortality_per_1k"`
}
