package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/groups"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// GroupsHandler handles shared-expense groups.
type GroupsHandler struct {
	svc *groups.Service
	log zerolog.Logger
}

// NewGroupsHandler creates a groups handler.
func NewGroupsHandler(svc *groups.Service, log zerolog.Logger) *GroupsHandler {
	return &GroupsHandler{svc: svc, log: log}
}

// ListGroups handles GET /api/v1/groups
func (h *GroupsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"groups": items})
}

// CreateGroup handles POST /api/v1/groups
func (h *GroupsHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groups.CreateGroupRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	g, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"group": g})
}

// ListExpenses handles GET /api/v1/groups/{id}/expenses
func (h *GroupsHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Expenses(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"expenses": items})
}

// AddExpense handles POST /api/v1/groups/{id}/expenses
func (h *GroupsHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req groups.CreateExpenseRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	e, err := h.svc.AddExpense(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"expense": e})
}

// Balances handles GET /api/v1/groups/{id}/balances
func (h *GroupsHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.Balances(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"balances": balances})
}
