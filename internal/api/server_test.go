package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/refdata"
	"github.com/adialm/health-resilience-sim/internal/store"
)

func newTestServer(t *testing.T, opts Options) (http.Handler, *projection.Engine) {
	t.Helper()
	engine, err := projection.New(refdata.Default())
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	return New(engine, st, opts).Handler(), engine
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func createScenario(t *testing.T, h http.Handler, name string) model.Scenario {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/scenarios", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[model.Scenario](t, rr)
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rr)["status"])
}

func TestBaseline(t *testing.T) {
	h, engine := newTestServer(t, Options{})

	rr := do(t, h, http.MethodGet, "/v1/baseline", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, engine.Baseline(), decodeBody[model.Snapshot](t, rr))
}

func TestProject(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	body := map[string]any{
		"interventions": []map[string]any{{"id": "h1", "type": "hospital"}},
		"policy":        map[string]any{"access": 60, "funding": 40, "duration_years": 5},
	}
	rr := do(t, h, http.MethodPost, "/v1/projections", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeBody[projectResponse](t, rr)
	assert.InDelta(t, 0.464, resp.PolicyMultiplier, 1e-9)
	assert.InDelta(t, 3.1, resp.Snapshot.Mortality.Value, 1e-9)
	assert.InDelta(t, -0.1, resp.Snapshot.Mortality.Change, 1e-9)
}

func TestProject_MixedCaseType(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	body := map[string]any{
		"interventions": []map[string]any{{"id": "h1", "type": " Hospital"}},
		"policy":        map[string]any{"access": 60, "funding": 40, "duration_years": 5},
	}
	rr := do(t, h, http.MethodPost, "/v1/projections", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeBody[projectResponse](t, rr)
	assert.InDelta(t, 3.1, resp.Snapshot.Mortality.Value, 1e-9)
	assert.InDelta(t, -0.1, resp.Snapshot.Mortality.Change, 1e-9)
}

func TestNormalizeTypes(t *testing.T) {
	ivs := []model.Intervention{{ID: "a", Type: "CLINIC"}, {ID: "b", Type: "vaccination"}}
	require.NoError(t, normalizeTypes(ivs))
	assert.Equal(t, model.InterventionClinic, ivs[0].Type)
	assert.Equal(t, model.InterventionVaccination, ivs[1].Type)

	err := normalizeTypes([]model.Intervention{{ID: "x", Type: "helipad"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `intervention "x"`)
}

func TestProject_DefaultPolicy(t *testing.T) {
	h, engine := newTestServer(t, Options{})

	rr := do(t, h, http.MethodPost, "/v1/projections", map[string]any{"interventions": []any{}})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody[projectResponse](t, rr)
	assert.Equal(t, model.DefaultPolicy(), resp.Policy)
	assert.Equal(t, engine.Baseline(), resp.Snapshot)
}

func TestProject_BadRequests(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"duration out of range", map[string]any{
			"policy": map[string]any{"access": 60, "funding": 40, "duration_years": 11},
		}, "duration"},
		{"access out of range", map[string]any{
			"policy": map[string]any{"access": 120, "funding": 40, "duration_years": 5},
		}, "access"},
		{"unknown type", map[string]any{
			"interventions": []map[string]any{{"id": "x", "type": "helipad"}},
		}, "unknown intervention type"},
		{"unknown field", map[string]any{"sliders": 1}, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/projections", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decodeBody[map[string]string](t, rr)["error"], tt.wantErr)
		})
	}
}

func TestProject_RateLimited(t *testing.T) {
	h, _ := newTestServer(t, Options{RateLimit: 0.001, Burst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, http.MethodPost, "/v1/projections", map[string]any{}).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/baseline", nil).Code)
}

func TestReferenceData(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := do(t, h, http.MethodGet, "/v1/districts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.District](t, rr), 6)

	rr = do(t, h, http.MethodGet, "/v1/districts?sort=risk", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sorted := decodeBody[[]model.District](t, rr)
	require.Len(t, sorted, 6)
	assert.Equal(t, "Dorchester", sorted[0].Name)

	rr = do(t, h, http.MethodGet, "/v1/districts?sort=name", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/districts/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decodeBody[refdata.Summary](t, rr)
	assert.Equal(t, 72718, sum.TotalPopulation)
	assert.Equal(t, 2, sum.HighRisk)

	rr = do(t, h, http.MethodGet, "/v1/levers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.Lever](t, rr), 5)
}

func TestCORS(t *testing.T) {
	h, _ := newTestServer(t, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/projections", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestScenarioLifecycle(t *testing.T) {
	h, _ := newTestServer(t, Options{})
	sc := createScenario(t, h, "  Roxbury access  ")
	assert.Equal(t, "Roxbury access", sc.Name)
	assert.Equal(t, model.DefaultPolicy(), sc.Policy)

	// Add a clinic by map point; it lands in the nearest district.
	rr := do(t, h, http.MethodPost, "/v1/scenarios/"+sc.ID+"/interventions", map[string]any{
		"type":  "clinic",
		"point": map[string]any{"lng": -71.0837, "lat": 42.3287},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	clinic := decodeBody[model.Intervention](t, rr)
	assert.Equal(t, "02119", clinic.Location.DistrictID)
	assert.Equal(t, "New clinic", clinic.Name)

	// Add a hospital with an explicit district.
	rr = do(t, h, http.MethodPost, "/v1/scenarios/"+sc.ID+"/interventions", map[string]any{
		"type":        "hospital",
		"name":        "General",
		"district_id": "02121",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	hospital := decodeBody[model.Intervention](t, rr)

	rr = do(t, h, http.MethodGet, "/v1/scenarios/"+sc.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[model.Scenario](t, rr)
	require.Len(t, got.Interventions, 2)
	assert.Equal(t, clinic.ID, got.Interventions[0].ID)

	// Replace the hospital with a vaccination site.
	rr = do(t, h, http.MethodPut, "/v1/scenarios/"+sc.ID+"/interventions/"+hospital.ID, map[string]any{
		"type":        "vaccination",
		"district_id": "02121",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	replaced := decodeBody[model.Intervention](t, rr)
	assert.Equal(t, hospital.ID, replaced.ID)
	assert.Equal(t, model.InterventionVaccination, replaced.Type)

	// Policy update.
	rr = do(t, h, http.MethodPut, "/v1/scenarios/"+sc.ID+"/policy", map[string]any{
		"access": 100, "funding": 100, "duration_years": 10,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 10, decodeBody[model.Scenario](t, rr).Policy.DurationYears)

	// Remove the clinic.
	rr = do(t, h, http.MethodDelete, "/v1/scenarios/"+sc.ID+"/interventions/"+clinic.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]store.ScenarioSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Interventions)

	// Reset clears interventions and restores the default policy.
	rr = do(t, h, http.MethodPost, "/v1/scenarios/"+sc.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	reset := decodeBody[model.Scenario](t, rr)
	assert.Empty(t, reset.Interventions)

	rr = do(t, h, http.MethodDelete, "/v1/scenarios/"+sc.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, h, http.MethodGet, "/v1/scenarios/"+sc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScenarioRunAndResults(t *testing.T) {
	h, engine := newTestServer(t, Options{})
	sc := createScenario(t, h, "run")

	rr := do(t, h, http.MethodPost, "/v1/scenarios/"+sc.ID+"/interventions", map[string]any{
		"type": "hospital", "district_id": "02119",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	iv := decodeBody[model.Intervention](t, rr)

	rr = do(t, h, http.MethodPost, "/v1/scenarios/"+sc.ID+"/run", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decodeBody[model.Result](t, rr)
	assert.Equal(t, sc.ID, res.ScenarioID)
	assert.Equal(t, 1, res.Interventions)
	assert.Equal(t, engine.Project([]model.Intervention{iv}, model.DefaultPolicy()), res.Snapshot)

	rr = do(t, h, http.MethodGet, "/v1/scenarios/"+sc.ID+"/results?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	results := decodeBody[[]model.Result](t, rr)
	require.Len(t, results, 1)
	assert.Equal(t, res.ID, results[0].ID)
}

func TestScenarioErrors(t *testing.T) {
	h, _ := newTestServer(t, Options{})
	sc := createScenario(t, h, "errors")
	base := "/v1/scenarios/" + sc.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"get missing", http.MethodGet, "/v1/scenarios/nope", nil, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/v1/scenarios/nope", nil, http.StatusNotFound},
		{"run missing", http.MethodPost, "/v1/scenarios/nope/run", nil, http.StatusNotFound},
		{"results missing", http.MethodGet, "/v1/scenarios/nope/results", nil, http.StatusNotFound},
		{"policy missing scenario", http.MethodPut, "/v1/scenarios/nope/policy", model.DefaultPolicy(), http.StatusNotFound},
		{"invalid policy", http.MethodPut, base + "/policy", map[string]any{"access": 60, "funding": 40, "duration_years": 0}, http.StatusBadRequest},
		{"unknown type", http.MethodPost, base + "/interventions", map[string]any{"type": "helipad"}, http.StatusBadRequest},
		{"unknown district", http.MethodPost, base + "/interventions", map[string]any{"type": "clinic", "district_id": "99999"}, http.StatusBadRequest},
		{"replace missing intervention", http.MethodPut, base + "/interventions/nope", map[string]any{"type": "clinic"}, http.StatusNotFound},
		{"remove missing intervention", http.MethodDelete, base + "/interventions/nope", nil, http.StatusNotFound},
		{"bad limit", http.MethodGet, "/v1/scenarios?limit=-1", nil, http.StatusBadRequest},
		{"bad create policy", http.MethodPost, "/v1/scenarios", map[string]any{
			"name": "x", "policy": map[string]any{"access": -1, "funding": 40, "duration_years": 5},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody[map[string]string](t, rr)["error"])
		})
	}
}

func TestNoStore_ScenarioRoutesAbsent(t *testing.T) {
	engine, err := projection.New(refdata.Default())
	require.NoError(t, err)
	h := New(engine, nil, Options{}).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/baseline", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/scenarios", nil).Code)
}
