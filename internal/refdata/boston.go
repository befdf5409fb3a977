package refdata

import "github.com/adialm/health-resilience-sim/internal/model"

// Lever names referenced by the projection effect table.
const (
	LeverAddClinic          = "Add_Clinic"
	LeverScreeningVan       = "Screening_Van"
	LeverAirFiltering       = "Air_Filtering"
	LeverMaternalProgram    = "Maternal_Program"
	LeverAddictionTreatment = "Addiction_Treatment"
)

// bostonDistricts is census-tract data aggregated to ZIP level.
var bostonDistricts = []model.District{
	{
		ID: "02119", Name: "Roxbury", Population: 8424,
		Indicators: model.Indicators{
			AsthmaPrevalence: 13.37, DiabetesPrevalence: 12.98, HypertensionRate: 31.83, ObesityRate: 34.0,
			PhysicalInactivity: 31.37, Smoking: 16.53, UninsuredRate: 8.86, LifeExpectancy: 48.02,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.0837, Lat: 42.3287},
		RiskLevel: model.RiskHigh,
	},
	{
		ID: "02121", Name: "Dorchester", Population: 22602,
		Indicators: model.Indicators{
			AsthmaPrevalence: 13.53, DiabetesPrevalence: 12.71, HypertensionRate: 31.62, ObesityRate: 32.92,
			PhysicalInactivity: 30.84, Smoking: 16.32, UninsuredRate: 8.32, LifeExpectancy: 77.56,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.0840, Lat: 42.3002},
		RiskLevel: model.RiskHigh,
	},
	{
		ID: "02130", Name: "Jamaica Plain", Population: 8429,
		Indicators: model.Indicators{
			AsthmaPrevalence: 10.5, DiabetesPrevalence: 7.35, HypertensionRate: 20.72, ObesityRate: 23.25,
			PhysicalInactivity: 18.43, Smoking: 8.74, UninsuredRate: 3.59, LifeExpectancy: 81.18,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.1103, Lat: 42.3098},
		RiskLevel: model.RiskMedium,
	},
	{
		ID: "02134", Name: "Allston", Population: 20263,
		Indicators: model.Indicators{
			AsthmaPrevalence: 11.38, DiabetesPrevalence: 3.84, HypertensionRate: 13.86, ObesityRate: 18.96,
			PhysicalInactivity: 17.98, Smoking: 8.41, UninsuredRate: 3.83,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.1310, Lat: 42.3530},
		RiskLevel: model.RiskLow,
	},
	{
		ID: "02135", Name: "Brighton", Population: 10584,
		Indicators: model.Indicators{
			AsthmaPrevalence: 10.79, DiabetesPrevalence: 6.75, HypertensionRate: 19.91, ObesityRate: 25.17,
			PhysicalInactivity: 19.49, Smoking: 9.29, UninsuredRate: 3.44,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.1518, Lat: 42.3466},
		RiskLevel: model.RiskMedium,
	},
	{
		ID: "02215", Name: "Fenway/Kenmore", Population: 2416,
		Indicators: model.Indicators{
			AsthmaPrevalence: 12.04, DiabetesPrevalence: 7.84, HypertensionRate: 22.28, ObesityRate: 30.23,
			PhysicalInactivity: 27.56, Smoking: 13.78, UninsuredRate: 6.19,
			ResilienceScore0: 0.5,
		},
		Centroid:  model.Point{Lng: -71.1028, Lat: 42.3467},
		RiskLevel: model.RiskMedium,
	},
}

var bostonLevers = []model.Lever{
	{Name: LeverAddClinic, Cost: 50000, TargetMetric: "Uninsured_%", EffectPerMonth: -0.3, MaxEffect: -6.0},
	{Name: LeverScreeningVan, Cost: 10000, TargetMetric: "Diabetes_Prevalence", EffectPerMonth: -0.2, MaxEffect: -4.0},
	{Name: LeverAirFiltering, Cost: 5000, TargetMetric: "Asthma_Prevalence", EffectPerMonth: -0.4, MaxEffect: -8.0},
	{Name: LeverMaternalProgram, Cost: 20000, TargetMetric: "InfantMortality_per1k", EffectPerMonth: -0.25, MaxEffect: -5.0},
	{Name: LeverAddictionTreatment, Cost: 15000, TargetMetric: "OverdoseRate", EffectPerMonth: -0.3, MaxEffect: -6.0},
}

// Default returns the built-in Boston dataset. It panics only if the
// embedded tables are malformed, which the package tests rule out.
func Default() *Dataset {
	ds, err := New(bostonDistricts, bostonLevers)
	if err != nil {
		panic(err)
	}
	return ds
}
