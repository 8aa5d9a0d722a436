package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/cwygoda/jobwatch/internal/metrics"
	"github.com/cwygoda/jobwatch/internal/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Monitor is the control surface of the orchestrator.
type Monitor interface {
	Start() error
	Stop()
	SetInterval(minutes int) error
	Status() monitor.Status
	TriggerTick() bool
}

// Server is the HTTP adapter for the control API.
type Server struct {
	apps   *domain.ApplicationService
	watch  *domain.WatchListStore
	mon    Monitor
	log    *zap.SugaredLogger
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(apps *domain.ApplicationService, watch *domain.WatchListStore, mon Monitor, log *zap.SugaredLogger, addr string) *Server {
	s := &Server{
		apps:  apps,
		watch: watch,
		mon:   mon,
		log:   log,
		mux:   http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/jobs/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/jobs/apply", s.handleApply)
	s.mux.HandleFunc("GET /api/applications", s.handleApplications)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	s.mux.HandleFunc("GET /api/monitor/watch", s.handleListWatch)
	s.mux.HandleFunc("POST /api/monitor/watch", s.handleAddWatch)
	s.mux.HandleFunc("PUT /api/monitor/watch/{id}", s.handleUpdateWatch)
	s.mux.HandleFunc("DELETE /api/monitor/watch/{id}", s.handleRemoveWatch)

	s.mux.HandleFunc("POST /api/monitor/start", s.handleStart)
	s.mux.HandleFunc("POST /api/monitor/stop", s.handleStop)
	s.mux.HandleFunc("GET /api/monitor/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/monitor/interval", s.handleInterval)
	s.mux.HandleFunc("POST /api/monitor/run", s.handleRun)
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Keywords  string   `json:"keywords"`
	Location  string   `json:"location"`
	Platforms []string `json:"platforms"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	jobs, err := s.apps.Search(r.Context(), req.Keywords, req.Location, req.Platforms)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(jobs),
		"jobs":    jobs,
	})
}

type applyRequest struct {
	Jobs        []domain.Job `json:"jobs"`
	ResumePath  string       `json:"resumePath"`
	CoverLetter string       `json:"coverLetter"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.apps.Apply(r.Context(), req.Jobs, req.ResumePath, req.CoverLetter)
	for _, res := range results {
		metrics.Applications.WithLabelValues(string(res.Status), "manual").Inc()
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// applicationResponse is the JSON form of a ledger entry.
type applicationResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Platform        string `json:"platform"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	Timestamp       string `json:"timestamp"`
	AutoApplied     bool   `json:"autoApplied"`
	WatchCriteriaID string `json:"watchCriteriaId,omitempty"`
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	apps := s.apps.Applications()
	out := make([]applicationResponse, len(apps))
	for i, a := range apps {
		out[i] = applicationToResponse(a)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"applications": out,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   s.apps.Stats(),
	})
}

// watchRequest is the body for creating or updating a watch item. Absent
// fields keep their current or default value.
type watchRequest struct {
	Keywords   *string         `json:"keywords"`
	Location   *string         `json:"location"`
	Platforms  []string        `json:"platforms"`
	AutoApply  *bool           `json:"autoApply"`
	Filters    *domain.Filters `json:"filters"`
	Enabled    *bool           `json:"enabled"`
	UserEmail  *string         `json:"userEmail"`
	ResumePath *string         `json:"resumePath"`
}

// watchResponse is the JSON form of a watch item.
type watchResponse struct {
	ID         string         `json:"id"`
	Keywords   string         `json:"keywords"`
	Location   string         `json:"location"`
	Platforms  []string       `json:"platforms"`
	AutoApply  bool           `json:"autoApply"`
	Filters    domain.Filters `json:"filters"`
	Enabled    bool           `json:"enabled"`
	UserEmail  string         `json:"userEmail,omitempty"`
	ResumePath string         `json:"resumePath,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

func (s *Server) handleListWatch(w http.ResponseWriter, r *http.Request) {
	items := s.watch.List()
	out := make([]watchResponse, len(items))
	for i, c := range items {
		out[i] = watchToResponse(c)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"watchList": out,
	})
}

func (s *Server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if !s.decode(w, r, &req) {
		return
	}

	in := domain.NewWatchCriteria{
		Keywords:   deref(req.Keywords),
		Location:   deref(req.Location),
		Platforms:  req.Platforms,
		AutoApply:  req.AutoApply,
		UserEmail:  deref(req.UserEmail),
		ResumePath: deref(req.ResumePath),
	}
	if req.Filters != nil {
		in.Filters = *req.Filters
	}

	c, err := s.watch.Add(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.log.Infow("watch item added", "id", c.ID, "keywords", c.Keywords, "location", c.Location)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"watchItem": watchToResponse(c),
	})
}

func (s *Server) handleUpdateWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.watch.Update(r.Context(), r.PathValue("id"), domain.WatchUpdate{
		Keywords:   req.Keywords,
		Location:   req.Location,
		Platforms:  req.Platforms,
		AutoApply:  req.AutoApply,
		Filters:    req.Filters,
		Enabled:    req.Enabled,
		UserEmail:  req.UserEmail,
		ResumePath: req.ResumePath,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"watchItem": watchToResponse(c),
	})
}

func (s *Server) handleRemoveWatch(w http.ResponseWriter, r *http.Request) {
	if err := s.watch.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.mon.Start(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Job monitor started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mon.Stop()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Job monitor stopped",
	})
}

// statusResponse is the JSON form of monitor.Status.
type statusResponse struct {
	IsMonitoring          bool   `json:"isMonitoring"`
	WatchListCount        int    `json:"watchListCount"`
	SeenJobsCount         int    `json:"seenJobsCount"`
	DailyApplicationCount int    `json:"dailyApplicationCount"`
	DailyLimit            int    `json:"dailyLimit"`
	CheckIntervalMinutes  int    `json:"checkIntervalMinutes"`
	TickInProgress        bool   `json:"tickInProgress"`
	LastTickAt            string `json:"lastTickAt,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.mon.Status()
	resp := statusResponse{
		IsMonitoring:          st.IsMonitoring,
		WatchListCount:        st.WatchListCount,
		SeenJobsCount:         st.SeenJobsCount,
		DailyApplicationCount: st.DailyApplicationCount,
		DailyLimit:            st.DailyLimit,
		CheckIntervalMinutes:  st.CheckIntervalMinutes,
		TickInProgress:        st.TickInProgress,
	}
	if !st.LastTickAt.IsZero() {
		resp.LastTickAt = st.LastTickAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  resp,
	})
}

type intervalRequest struct {
	Minutes json.Number `json:"minutes"`
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if !s.decode(w, r, &req) {
		return
	}
	minutes, err := strconv.Atoi(req.Minutes.String())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "minutes must be an integer")
		return
	}

	if err := s.mon.SetInterval(minutes); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Check interval set to " + strconv.Itoa(minutes) + " minutes",
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.mon.TriggerTick() {
		s.writeError(w, http.StatusConflict, "a check is already running")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Check started",
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.IsAny(err, domain.ErrInvalidCriteria, domain.ErrInvalidRequest,
		domain.ErrUnknownPlatform, domain.ErrInvalidInterval):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "error", err)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Hint:  strings.Join(errors.GetAllHints(err), "; "),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func applicationToResponse(a domain.Application) applicationResponse {
	return applicationResponse{
		ID:              a.ID,
		Title:           a.Title,
		Company:         a.Company,
		Location:        a.Location,
		Platform:        a.Platform,
		URL:             a.URL,
		Status:          string(a.Status),
		Message:         a.Message,
		Timestamp:       a.Timestamp.UTC().Format(time.RFC3339),
		AutoApplied:     a.AutoApplied,
		WatchCriteriaID: a.WatchCriteriaID,
	}
}

func watchToResponse(c domain.WatchCriteria) watchResponse {
	platforms := c.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	return watchResponse{
		ID:         c.ID,
		Keywords:   c.Keywords,
		Location:   c.Location,
		Platforms:  platforms,
		AutoApply:  c.AutoApply,
		Filters:    c.Filters,
		Enabled:    c.Enabled,
		UserEmail:  c.UserEmail,
		ResumePath: c.ResumePath,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}
