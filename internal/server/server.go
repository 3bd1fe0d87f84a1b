package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
	"github.com/fintrack-labs/budgetguard/pkg/tracker"
)

// Server exposes the budget API over HTTP. It is a thin adapter; all
// semantics live in the tracker.
type Server struct {
	manager *tracker.Manager
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server.
func NewServer(manager *tracker.Manager, logger *slog.Logger) *Server {
	s := &Server{
		manager: manager,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("POST /api/v1/budgets", s.handleCreate)
	s.mux.HandleFunc("GET /api/v1/budgets", s.handleList)
	s.mux.HandleFunc("GET /api/v1/budgets/{id}", s.handleGet)
	s.mux.HandleFunc("PATCH /api/v1/budgets/{id}", s.handleEdit)
	s.mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.handleDeactivate)
	s.mux.HandleFunc("POST /api/v1/budgets/{id}/spend", s.handleSpend)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequest struct {
	UserID         string  `json:"user_id"`
	Category       string  `json:"category"`
	Amount         float64 `json:"amount"`
	Period         string  `json:"period"`
	AlertThreshold float64 `json:"alert_threshold"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	budget, err := s.manager.Create(ctx, req.UserID, req.Category, req.Amount,
		model.BudgetPeriod(req.Period), req.AlertThreshold)
	if err != nil {
		s.writeError(w, "create budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	budgets, err := s.manager.ListActive(ctx, userID, page, limit)
	if err != nil {
		s.writeError(w, "list budgets", err)
		return
	}
	if budgets == nil {
		budgets = []model.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	budget, err := s.manager.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, "get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

type editRequest struct {
	Amount         float64 `json:"amount"`
	AlertThreshold float64 `json:"alert_threshold"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	budget, err := s.manager.Edit(ctx, r.PathValue("id"), req.Amount, req.AlertThreshold)
	if err != nil {
		s.writeError(w, "edit budget", err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.manager.Deactivate(ctx, r.PathValue("id")); err != nil {
		s.writeError(w, "deactivate budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type spendRequest struct {
	Delta float64 `json:"delta"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	budget, err := s.manager.Increment(ctx, r.PathValue("id"), req.Delta)
	if err != nil {
		s.writeError(w, "increment spend", err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "budget not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrDuplicateCategory):
		http.Error(w, "active budget already exists for category and period", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidDelta),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidThreshold),
		errors.Is(err, model.ErrInvalidPeriod),
		errors.Is(err, storage.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error(op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 10*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
