package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const conversionMessage = "Currency conversion completed successfully"

// CurrencyHandler serves accounts, transfers and advisory rates.
type CurrencyHandler struct {
	accounts  *currency.AccountService
	transfers *currency.TransferService
	rates     currency.RatesProvider
	log       zerolog.Logger
}

// NewCurrencyHandler creates a currency handler.
func NewCurrencyHandler(accounts *currency.AccountService, transfers *currency.TransferService, rates currency.RatesProvider, log zerolog.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		accounts:  accounts,
		transfers: transfers,
		rates:     rates,
		log:       log,
	}
}

// ListAccounts handles GET /api/v1/currency/accounts
func (h *CurrencyHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// CreateAccount handles POST /api/v1/currency/accounts
func (h *CurrencyHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency       string          `json:"currency"`
		AccountName    string          `json:"accountName"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), currency.CreateAccountRequest{
		UserID:         middleware.UserID(r.Context()),
		Currency:       req.Currency,
		AccountName:    req.AccountName,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"account": account})
}

// Convert handles POST /api/v1/currency/convert
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string           `json:"fromAccountId"`
		ToAccountID   string           `json:"toAccountId"`
		FromAmount    *decimal.Decimal `json:"fromAmount"`
		ExchangeRate  *decimal.Decimal `json:"exchangeRate"`
		Description   string           `json:"description"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	if req.FromAmount == nil || req.ExchangeRate == nil {
		middleware.WriteErr(w, r, domain.Validation("Missing required fields"))
		return
	}

	conv, err := h.transfers.Transfer(r.Context(), currency.TransferRequest{
		UserID:        middleware.UserID(r.Context()),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        *req.FromAmount,
		Rate:          *req.ExchangeRate,
		Description:   req.Description,
	})
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      conversionMessage,
		"fromAmount":   conv.FromAmount,
		"toAmount":     conv.ToAmount,
		"exchangeRate": conv.ExchangeRate,
		"conversion":   conv,
	})
}

// ListConversions handles GET /api/v1/currency/convert
func (h *CurrencyHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	convs, err := h.transfers.History(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"conversions": convs})
}

// Rates handles GET /api/v1/currency/rates?base=USD
func (h *CurrencyHandler) Rates(w http.ResponseWriter, r *http.Request) {
	base := domain.NormalizeCurrency(r.URL.Query().Get("base"))
	if !domain.ValidCurrency(base) {
		base = currency.DefaultBase
	}

	table, err := h.rates.Rates(r.Context(), base)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, table)
}
