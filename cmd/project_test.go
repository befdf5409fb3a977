package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adialm/health-resilience-sim/internal/config"
	"github.com/adialm/health-resilience-sim/internal/model"
)

func TestMixInterventions(t *testing.T) {
	ivs, err := mixInterventions(2, 1, 3)
	require.NoError(t, err)
	require.Len(t, ivs, 6)

	counts := model.CountByType(ivs)
	assert.Equal(t, 2, counts[model.InterventionClinic])
	assert.Equal(t, 1, counts[model.InterventionHospital])
	assert.Equal(t, 3, counts[model.InterventionVaccination])

	ids := make(map[string]bool)
	for _, iv := range ivs {
		assert.NotEmpty(t, iv.ID)
		ids[iv.ID] = true
	}
	assert.Len(t, ids, 6)
	assert.Equal(t, "New clinic", ivs[0].Name)
}

func TestMixInterventions_Empty(t *testing.T) {
	ivs, err := mixInterventions(0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, ivs)
}

func TestMixInterventions_Negative(t *testing.T) {
	_, err := mixInterventions(0, -1, 0)
	assert.Error(t, err)
}

func TestPolicyFromFlags(t *testing.T) {
	cfg = &config.Config{Simulation: config.SimulationConfig{Access: 70, Funding: 20, DurationYears: 3}}

	newCmd := func() (*cobra.Command, *float64, *float64, *int) {
		var a, f float64
		var y int
		c := &cobra.Command{Use: "x"}
		addPolicyFlags(c, &a, &f, &y)
		return c, &a, &f, &y
	}

	// Unset flags use the configured defaults, not the flag defaults.
	c, a, f, y := newCmd()
	require.NoError(t, c.ParseFlags(nil))
	assert.Equal(t, model.Policy{Access: 70, Funding: 20, DurationYears: 3}, policyFromFlags(c, *a, *f, *y))

	c, a, f, y = newCmd()
	require.NoError(t, c.ParseFlags([]string{"--funding", "90", "--years", "10"}))
	assert.Equal(t, model.Policy{Access: 70, Funding: 90, DurationYears: 10}, policyFromFlags(c, *a, *f, *y))
}
