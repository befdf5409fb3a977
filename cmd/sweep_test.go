package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/refdata"
)

func newSweepEngine(t *testing.T) *projection.Engine {
	t.Helper()
	engine, err := projection.New(refdata.Default())
	require.NoError(t, err)
	return engine
}

func TestRunSweep_GridOrder(t *testing.T) {
	engine := newSweepEngine(t)
	ivs, err := mixInterventions(1, 1, 0)
	require.NoError(t, err)

	rows, err := runSweep(context.Background(), engine, ivs, []float64{0, 100}, []float64{40}, 8)
	require.NoError(t, err)
	require.Len(t, rows, 20)

	for i, r := range rows {
		wantAccess := 0.0
		if i >= 10 {
			wantAccess = 100
		}
		assert.InDelta(t, wantAccess, r.Policy.Access, 0)
		assert.Equal(t, i%10+1, r.Policy.DurationYears)
		assert.Equal(t, engine.Project(ivs, r.Policy), r.Snapshot)
	}
}

func TestRunSweep_MatchesSequential(t *testing.T) {
	engine := newSweepEngine(t)
	ivs, err := mixInterventions(2, 0, 1)
	require.NoError(t, err)

	parallel, err := runSweep(context.Background(), engine, ivs, []float64{60}, []float64{40}, 10)
	require.NoError(t, err)
	serial, err := runSweep(context.Background(), engine, ivs, []float64{60}, []float64{40}, 1)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestRunSweep_ClinicCapAcrossDurations(t *testing.T) {
	engine := newSweepEngine(t)
	ivs, err := mixInterventions(1, 0, 0)
	require.NoError(t, err)

	rows, err := runSweep(context.Background(), engine, ivs, []float64{60}, []float64{40}, 4)
	require.NoError(t, err)

	// Access barriers improve with duration until the lever cap is reached.
	assert.InDelta(t, -7, rows[0].Snapshot.HealthProblems.AccessBarriers, 1e-9)
	assert.InDelta(t, -9, rows[9].Snapshot.HealthProblems.AccessBarriers, 1e-9)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i].Snapshot.HealthProblems.AccessBarriers, rows[i-1].Snapshot.HealthProblems.AccessBarriers)
	}
}

func TestRunSweep_InvalidGrid(t *testing.T) {
	engine := newSweepEngine(t)

	_, err := runSweep(context.Background(), engine, nil, []float64{150}, []float64{40}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, projection.ErrInvalidPolicy)
}

func TestRunSweep_Cancelled(t *testing.T) {
	engine := newSweepEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runSweep(ctx, engine, nil, []float64{60}, []float64{40}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteSweepCSV(t *testing.T) {
	rows := []sweepRow{{
		Policy:     model.Policy{Access: 60, Funding: 40, DurationYears: 5},
		Multiplier: 0.464,
		Snapshot: model.Snapshot{
			Mortality:        model.Metric{Value: 3.1, Change: -0.1},
			HospitalCapacity: model.Metric{Value: 84, Change: -1.4},
			HealthProblems:   model.HealthProblems{PrematureMortality: -11},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeSweepCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, sweepHeader, records[0])
	assert.Equal(t, []string{"60", "40", "5", "0.4640", "3.1", "-0.1", "84", "-1.4"}, records[1][:8])
	assert.Equal(t, "-11", records[1][14])
}

func TestWriteSweepXLSX(t *testing.T) {
	engine := newSweepEngine(t)
	rows, err := runSweep(context.Background(), engine, nil, []float64{60}, []float64{40}, 2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sweep.xlsx")
	require.NoError(t, writeSweepXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["sweep"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 11)
	assert.Equal(t, "access", sheet.Rows[0].Cells[0].String())

	years, err := sheet.Rows[10].Cells[2].Int()
	require.NoError(t, err)
	assert.Equal(t, 10, years)

	mortality, err := sheet.Rows[1].Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 3.2, mortality, 1e-9)
}

func TestWriteSweepTable(t *testing.T) {
	var buf bytes.Buffer
	writeSweepTable(&buf, []sweepRow{{Policy: model.Policy{Access: 60, Funding: 40, DurationYears: 5}}})

	out := buf.String()
	assert.Contains(t, out, "ACCESS")
	assert.Contains(t, out, "SUBSTANCE")
	assert.Contains(t, out, "60")
}
