package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/budgets"
	"github.com/dvloznov/budgetiq/internal/dashboard"
	"github.com/dvloznov/budgetiq/internal/recurring"
	"github.com/rs/zerolog"
)

// PlanningHandler serves budgets, recurring rules and the dashboard.
type PlanningHandler struct {
	budgets   *budgets.Service
	recurring *recurring.Service
	dashboard *dashboard.Service
	log       zerolog.Logger
}

// NewPlanningHandler creates a planning handler.
func NewPlanningHandler(b *budgets.Service, rec *recurring.Service, dash *dashboard.Service, log zerolog.Logger) *PlanningHandler {
	return &PlanningHandler{
		budgets:   b,
		recurring: rec,
		dashboard: dash,
		log:       log,
	}
}

// ListBudgets handles GET /api/v1/budgets
func (h *PlanningHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	items, err := h.budgets.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"budgets": items})
}

// CreateBudget handles POST /api/v1/budgets
func (h *PlanningHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgets.CreateRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	b, err := h.budgets.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"budget": b})
}

// ListRecurring handles GET /api/v1/recurring
func (h *PlanningHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := h.recurring.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CreateRecurring handles POST /api/v1/recurring
func (h *PlanningHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurring.CreateRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	rule, err := h.recurring.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"recurringRule": rule})
}

// Dashboard handles GET /api/v1/dashboard
func (h *PlanningHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}
