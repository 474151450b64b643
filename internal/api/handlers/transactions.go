package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/transactions"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc *transactions.Service
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *transactions.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		svc: svc,
		log: log,
	}
}

// ListTransactions handles GET /api/v1/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := h.svc.List(r.Context(), middleware.UserID(r.Context()), transactions.ListQuery{
		Limit:    queryInt(r, "limit"),
		From:     query.Get("from"),
		To:       query.Get("to"),
		Category: query.Get("category"),
		Query:    query.Get("q"),
		Cursor:   query.Get("cursor"),
	})
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, page)
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactions.CreateRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// Categorize handles POST /api/v1/transactions/{id}/categorize
func (h *TransactionsHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	tx, err := h.svc.Categorize(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req.Category)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// Split handles POST /api/v1/transactions/{id}/split
func (h *TransactionsHandler) Split(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Splits []transactions.SplitInput `json:"splits"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	tx, err := h.svc.Split(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req.Splits)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// Suggestions handles GET /api/v1/transactions/suggestions
func (h *TransactionsHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Suggestions(r.Context(), middleware.UserID(r.Context()), queryInt(r, "limit"))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
