package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/parts.report/internal/httputil"
	"github.com/banshee-data/parts.report/internal/triage"
	"github.com/banshee-data/parts.report/internal/triage/report"
)

// Server exposes the triage engine and run history over HTTP. All
// analysis endpoints are read-only with respect to the scene; the host
// application owns the actual collection commit.
type Server struct {
	manager *triage.RunManager
}

func NewServer(manager *triage.RunManager) *Server {
	return &Server{manager: manager}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/impact", s.handleImpact)
	mux.HandleFunc("/api/triage", s.handleTriage)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/report/histogram", s.handleHistogram)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	scene := s.manager.Engine().Scene()
	fmt.Fprintf(w, "parts.report scene triage (%d objects from %s)\n", scene.Len(), scene.Source)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	stats, err := s.manager.Engine().AnalyzeScene(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, stats)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cutoff, err := strconv.ParseFloat(r.URL.Query().Get("cutoff"), 64)
	if err != nil || cutoff <= 0 {
		httputil.BadRequest(w, "cutoff must be a positive number")
		return
	}
	stats, err := s.manager.Engine().AnalyzeScene(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, stats.ImpactForCutoff(cutoff))
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req triage.TriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}

	runID, res, err := s.manager.Execute(r.Context(), req)
	if err != nil {
		httputil.WriteJSONError(w, statusForError(err), err.Error())
		return
	}
	httputil.WriteJSONOK(w, newTriageResponse(runID, res))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	store := s.manager.Store()
	if store == nil {
		httputil.NotFound(w, "run persistence is disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	store := s.manager.Store()
	if store == nil {
		httputil.NotFound(w, "run persistence is disabled")
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		httputil.BadRequest(w, "run id required")
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	objects, err := store.ListRunObjects(runID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"run": run, "objects": objects})
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	stats, err := s.manager.Engine().AnalyzeScene(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	var threshold *triage.ThresholdResult
	if v := r.URL.Query().Get("cutoff"); v != "" {
		cutoff, err := strconv.ParseFloat(v, 64)
		if err != nil || cutoff <= 0 {
			httputil.BadRequest(w, "cutoff must be a positive number")
			return
		}
		threshold = &triage.ThresholdResult{
			Method:    triage.MethodAbsolute,
			Cutoff:    cutoff,
			HasCutoff: true,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHistogram(w, stats, threshold); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}

// statusForError maps the triage error taxonomy onto HTTP statuses:
// caller mistakes are 400s, everything else is a 500.
func statusForError(err error) int {
	var verr *triage.ValidationError
	var cerr *triage.ConfigurationError
	if errors.As(err, &verr) || errors.As(err, &cerr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
