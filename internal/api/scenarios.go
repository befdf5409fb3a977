package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/scenario"
	"github.com/adialm/health-resilience-sim/internal/store"
)

type createScenarioRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Policy      *model.Policy `json:"policy,omitempty"`
}

type interventionRequest struct {
	Type       string                   `json:"type"`
	Name       string                   `json:"name"`
	DistrictID string                   `json:"district_id,omitempty"`
	Point      model.Point              `json:"point"`
	Parameters model.InterventionParams `json:"parameters"`
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc := scenario.New(req.Name, req.Description)
	if req.Policy != nil {
		if err := projection.ValidatePolicy(*req.Policy); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sc.Policy = *req.Policy
	}

	if err := s.store.CreateScenario(r.Context(), sc); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("scenario created", zap.String("scenario_id", sc.ID), zap.String("name", sc.Name))
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.store.ListScenarios(r.Context(), store.ScenarioFilter{Limit: limit, Offset: offset})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []store.ScenarioSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScenario(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var p model.Policy
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := projection.ValidatePolicy(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.edit(w, r, http.StatusOK, func(sc model.Scenario) (model.Scenario, any, error) {
		sc = scenario.SetPolicy(sc, p)
		return sc, sc, nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, http.StatusOK, func(sc model.Scenario) (model.Scenario, any, error) {
		sc = scenario.Reset(sc)
		return sc, sc, nil
	})
}

func (s *Server) handleAddIntervention(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.readIntervention(w, r)
	if !ok {
		return
	}
	s.edit(w, r, http.StatusCreated, func(sc model.Scenario) (model.Scenario, any, error) {
		return scenario.AddIntervention(sc, iv), iv, nil
	})
}

func (s *Server) handleReplaceIntervention(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.readIntervention(w, r)
	if !ok {
		return
	}
	iv.ID = chi.URLParam(r, "iid")
	s.edit(w, r, http.StatusOK, func(sc model.Scenario) (model.Scenario, any, error) {
		sc, err := scenario.ReplaceIntervention(sc, iv)
		return sc, iv, err
	})
}

func (s *Server) handleRemoveIntervention(w http.ResponseWriter, r *http.Request) {
	iid := chi.URLParam(r, "iid")
	s.edit(w, r, http.StatusNoContent, func(sc model.Scenario) (model.Scenario, any, error) {
		sc, err := scenario.RemoveIntervention(sc, iid)
		return sc, nil, err
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, err := s.store.GetScenario(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	snap, err := s.engine.ProjectValidated(sc.Interventions, sc.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.store.SaveResult(ctx, sc.ID, sc.Policy, len(sc.Interventions), snap)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("scenario run",
		zap.String("scenario_id", sc.ID),
		zap.Int("interventions", len(sc.Interventions)),
		zap.Float64("mortality_change", snap.Mortality.Change),
	)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.store.GetScenario(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	results, err := s.store.ListResults(ctx, id, limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

// edit loads the scenario named in the path, applies fn and saves the
// result. Edits are serialized so concurrent requests cannot drop each
// other's changes. fn returns the value to write back to the client.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, status int, fn func(model.Scenario) (model.Scenario, any, error)) {
	ctx := r.Context()
	s.editMu.Lock()
	defer s.editMu.Unlock()

	sc, err := s.store.GetScenario(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	updated, body, err := fn(*sc)
	if err != nil {
		if eris.Is(err, scenario.ErrInterventionNotFound) {
			writeError(w, http.StatusNotFound, "intervention not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SaveScenario(ctx, updated); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, body)
}

// readIntervention decodes and validates an intervention body. Placements
// without a district are assigned to the nearest district centroid.
func (s *Server) readIntervention(w http.ResponseWriter, r *http.Request) (model.Intervention, bool) {
	var req interventionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Intervention{}, false
	}
	t, err := model.ParseInterventionType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Intervention{}, false
	}

	ds := s.engine.Dataset()
	if req.DistrictID == "" {
		return scenario.Place(ds, t, req.Name, req.Point, req.Parameters), true
	}
	if _, ok := ds.District(req.DistrictID); !ok {
		writeError(w, http.StatusBadRequest, "unknown district "+strconv.Quote(req.DistrictID))
		return model.Intervention{}, false
	}
	loc := model.Location{DistrictID: req.DistrictID, Point: req.Point}
	return scenario.NewIntervention(t, req.Name, loc, req.Parameters), true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
