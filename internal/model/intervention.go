package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// InterventionType identifies a category of placed action.
type InterventionType string

const (
	InterventionClinic      InterventionType = "clinic"
	InterventionHospital    InterventionType = "hospital"
	InterventionVaccination InterventionType = "vaccination"
	InterventionPolicy      InterventionType = "policy"
	InterventionEvent       InterventionType = "event"
)

// InterventionTypes lists every known type in display order.
var InterventionTypes = []InterventionType{
	InterventionClinic,
	InterventionHospital,
	InterventionVaccination,
	InterventionPolicy,
	InterventionEvent,
}

// ParseInterventionType maps a case-insensitive name to an InterventionType.
func ParseInterventionType(s string) (InterventionType, error) {
	t := InterventionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range InterventionTypes {
		if t == known {
			return t, nil
		}
	}
	return "", eris.Errorf("model: unknown intervention type %q", s)
}

// Location places an intervention in a district at a map coordinate.
type Location struct {
	DistrictID string `json:"district_id"`
	Point      Point  `json:"point"`
}

// InterventionParams is display-only metadata; the projection never reads it.
type InterventionParams struct {
	Capacity  int     `json:"capacity,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
	Specialty string  `json:"specialty,omitempty"`
	StartYear int     `json:"start_year,omitempty"`
	Duration  int     `json:"duration,omitempty"`
}

// Intervention is a placed action. Edits replace it wholesale.
type Intervention struct {
	ID         string             `json:"id"`
	Type       InterventionType   `json:"type"`
	Name       string             `json:"name"`
	Location   Location           `json:"location"`
	Parameters InterventionParams `json:"parameters"`
}

// Policy holds the slider settings supplied with every projection.
type Policy struct {
	Access        float64 `json:"access" mapstructure:"access"`                 // 0-100
	Funding       float64 `json:"funding" mapstructure:"funding"`               // 0-100
	DurationYears int     `json:"duration_years" mapstructure:"duration_years"` // 1-10
}

// DefaultPolicy returns the slider positions a new scenario starts with.
func DefaultPolicy() Policy {
	return Policy{Access: 60, Funding: 40, DurationYears: 5}
}
