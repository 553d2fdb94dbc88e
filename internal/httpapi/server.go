// Package httpapi exposes bills, citizen sessions and notifications over
// JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/catalog"
	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

const (
	maxPageSize  = 100
	maxBodyBytes = 64 << 10
	checkTimeout = 2 * time.Second
)

// Catalog serves bill listings and detail pages. catalog.Catalog implements it.
type Catalog interface {
	List(ctx context.Context, pageSize int) (catalog.Listing, error)
	Refresh(ctx context.Context, pageSize int) (catalog.Listing, error)
	Details(ctx context.Context, id string) (catalog.DetailView, error)
	Bill(ctx context.Context, id string) (bill.Bill, error)
}

// Checker is a dependency probed by /readyz.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// Config holds the dependencies of the HTTP surface.
type Config struct {
	Catalog Catalog
	Engine  *session.Engine
	// Notifications serves GET /ws. Optional.
	Notifications http.Handler
	Checks        []Checker
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins  []string
	DefaultPageSize int
	Logger          *slog.Logger
}

// Server routes HTTP requests to the catalog and the session engine.
type Server struct {
	catalog  Catalog
	engine   *session.Engine
	notify   http.Handler
	checks   []Checker
	origins  map[string]bool
	pageSize int
	logger   *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.DefaultPageSize
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = true
	}
	return &Server{
		catalog:  cfg.Catalog,
		engine:   cfg.Engine,
		notify:   cfg.Notifications,
		checks:   cfg.Checks,
		origins:  origins,
		pageSize: pageSize,
		logger:   logger.With("component", "http"),
	}
}

// Handler returns the routed handler wrapped in logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	return s.cors(s.withLogging(s.routes()))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /bills", s.handleListBills)
	mux.HandleFunc("POST /bills/refresh", s.handleRefreshBills)
	mux.HandleFunc("GET /bills/export.xlsx", s.handleExportBills)
	mux.HandleFunc("GET /bills/{id}", s.handleBillDetails)
	mux.HandleFunc("GET /bills/{id}/share", s.handleShareBill)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleEndSession)
	mux.HandleFunc("POST /sessions/{id}/votes", s.handleCastVote)
	mux.HandleFunc("POST /sessions/{id}/quiz", s.handleAnswerQuiz)
	mux.HandleFunc("PUT /sessions/{id}/filters", s.handleSetFilters)
	mux.HandleFunc("DELETE /sessions/{id}/filters", s.handleClearFilters)

	if s.notify != nil {
		mux.Handle("GET /ws", s.notify)
	}
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("readiness check failed", "check", c.Name(), "error", err)
			failed[c.Name()] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}

// fail maps domain errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status, message = http.StatusNotFound, "Sessão não encontrada."
	case errors.Is(err, catalog.ErrNotFound):
		status, message = http.StatusNotFound, "Projeto não encontrado."
	case errors.Is(err, session.ErrAlreadyVoted):
		status, message = http.StatusConflict, "Você já votou neste projeto."
	case errors.Is(err, session.ErrNoActiveQuiz):
		status, message = http.StatusConflict, "Nenhum quiz ativo para esta sessão."
	case errors.Is(err, session.ErrInvalidVote),
		errors.Is(err, session.ErrInvalidAnswer),
		errors.Is(err, session.ErrInvalidFilter):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "A requisição expirou."
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		status, message = http.StatusBadGateway, "Não foi possível falar com a Câmara dos Deputados agora."
	}
	writeError(w, status, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
