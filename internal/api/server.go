// Package api exposes projections, reference data and scenario editing over
// HTTP with a chi router.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string
	// RateLimit caps projection requests per second. Zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	// DefaultPolicy applies to projection requests that omit a policy.
	DefaultPolicy model.Policy
}

// Server serves the HTTP API.
type Server struct {
	engine   *projection.Engine
	store    store.Store
	limiter  *rate.Limiter
	defaults model.Policy
	origins  []string
	log      *zap.Logger

	editMu sync.Mutex
}

// New creates a Server. st may be nil, in which case scenario routes are
// not mounted.
func New(engine *projection.Engine, st store.Store, opts Options) *Server {
	s := &Server{
		engine:   engine,
		store:    st,
		defaults: opts.DefaultPolicy,
		origins:  opts.CORSOrigins,
		log:      zap.L().With(zap.String("component", "api")),
	}
	if s.defaults == (model.Policy{}) {
		s.defaults = model.DefaultPolicy()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/baseline", s.handleBaseline)
		r.With(s.rateLimit).Post("/projections", s.handleProject)

		r.Get("/districts", s.handleDistricts)
		r.Get("/districts/summary", s.handleSummary)
		r.Get("/levers", s.handleLevers)

		if s.store == nil {
			return
		}
		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/", s.handleCreateScenario)
			r.Get("/", s.handleListScenarios)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScenario)
				r.Delete("/", s.handleDeleteScenario)
				r.Put("/policy", s.handleSetPolicy)
				r.Post("/reset", s.handleReset)
				r.Post("/interventions", s.handleAddIntervention)
				r.Put("/interventions/{iid}", s.handleReplaceIntervention)
				r.Delete("/interventions/{iid}", s.handleRemoveIntervention)
				r.With(s.rateLimit).Post("/run", s.handleRun)
				r.Get("/results", s.handleListResults)
			})
		})
	})
	return r
}

// rateLimit rejects requests beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store and edit errors to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "scenario not found")
	case eris.Is(err, store.ErrExists):
		writeError(w, http.StatusConflict, "scenario already exists")
	default:
		s.log.Error("api: store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}
