package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clearcomply/compliance-cli/internal/engine"
	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

type policyAnalyzer interface {
	Analyze(ctx context.Context, policyID string, frameworks []string) (*engine.AnalysisSummary, error)
}

type scoreProjector interface {
	Simulate(ctx context.Context, policyID string, controlIDs []string) (*engine.Projection, error)
}

type reportCompiler interface {
	Compile(ctx context.Context, policyID string, reportType model.ReportType, format string, frameworks []string) (*model.Report, error)
}

type apiServer struct {
	store     store.Store
	analyzer  policyAnalyzer
	projector scoreProjector
	reporter  reportCompiler
	limiter   *rate.Limiter
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/reports", s.handleReport)
		r.Get("/policies", s.handleListPolicies)
		r.Get("/policies/{id}/gaps", s.handleListGaps)
		r.Get("/policies/{id}/insights", s.handleListInsights)
	})
	return r
}

func (s *apiServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PolicyID   string   `json:"policy_id"`
		Frameworks []string `json:"frameworks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	frameworks := req.Frameworks
	if len(frameworks) == 0 {
		var err error
		frameworks, err = s.store.ListFrameworks(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
	}

	summary, err := s.analyzer.Analyze(r.Context(), req.PolicyID, frameworks)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *apiServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PolicyID   string   `json:"policy_id"`
		ControlIDs []string `json:"control_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	projection, err := s.projector.Simulate(r.Context(), req.PolicyID, req.ControlIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PolicyID   string   `json:"policy_id"`
		ReportType string   `json:"report_type"`
		Format     string   `json:"format"`
		Frameworks []string `json:"frameworks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.ReportType == "" {
		req.ReportType = string(model.ReportExecutiveSummary)
	}
	if req.Format == "" {
		req.Format = "PDF"
	}

	rep, err := s.reporter.Compile(r.Context(), req.PolicyID, model.ReportType(req.ReportType), req.Format, req.Frameworks)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *apiServer) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := s.store.ListPolicies(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

func (s *apiServer) handleListGaps(w http.ResponseWriter, r *http.Request) {
	gaps, err := s.store.ListGaps(r.Context(), store.GapFilter{
		PolicyID:  chi.URLParam(r, "id"),
		Framework: r.URL.Query().Get("framework"),
		Status:    model.GapStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gaps)
}

func (s *apiServer) handleListInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.store.ListInsights(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, engine.ErrExtraction):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
