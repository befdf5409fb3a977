package api

import (
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
)

type projectRequest struct {
	Interventions []model.Intervention `json:"interventions"`
	Policy        *model.Policy        `json:"policy,omitempty"`
}

type projectResponse struct {
	Policy           model.Policy   `json:"policy"`
	PolicyMultiplier float64        `json:"policy_multiplier"`
	Snapshot         model.Snapshot `json:"snapshot"`
}

func (s *Server) handleBaseline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Baseline())
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := s.defaults
	if req.Policy != nil {
		p = *req.Policy
	}
	if err := normalizeTypes(req.Interventions); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.engine.ProjectValidated(req.Interventions, p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{
		Policy:           p,
		PolicyMultiplier: projection.PolicyMultiplier(p.Access, p.Funding),
		Snapshot:         snap,
	})
}

// normalizeTypes rewrites each intervention type to its canonical form and
// rejects types that are not a known category. Known types without a modeled
// effect are accepted.
func normalizeTypes(ivs []model.Intervention) error {
	for i, iv := range ivs {
		t, err := model.ParseInterventionType(string(iv.Type))
		if err != nil {
			return eris.Wrapf(err, "intervention %q", iv.ID)
		}
		ivs[i].Type = t
	}
	return nil
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	ds := s.engine.Dataset()
	switch r.URL.Query().Get("sort") {
	case "":
		writeJSON(w, http.StatusOK, ds.Districts())
	case "risk":
		writeJSON(w, http.StatusOK, ds.SortedByRisk())
	default:
		writeError(w, http.StatusBadRequest, "sort must be empty or risk")
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Dataset().Summary())
}

func (s *Server) handleLevers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Dataset().Levers())
}
