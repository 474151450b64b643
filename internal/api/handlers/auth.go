package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/auth"
	"github.com/rs/zerolog"
)

// AuthHandler handles signup, login and session endpoints.
type AuthHandler struct {
	svc    *auth.Service
	secure bool
	log    zerolog.Logger
}

// NewAuthHandler creates an auth handler. secure marks the session cookie Secure.
func NewAuthHandler(svc *auth.Service, secure bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, secure: secure, log: log}
}

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	sess, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	http.SetCookie(w, h.svc.SessionCookie(sess.Token, h.secure))
	middleware.WriteJSON(w, http.StatusCreated, sess)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	http.SetCookie(w, h.svc.SessionCookie(sess.Token, h.secure))
	middleware.WriteJSON(w, http.StatusOK, sess)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearCookie(h.secure))
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}
