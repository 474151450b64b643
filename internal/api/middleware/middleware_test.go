package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/budgetiq/internal/auth"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type mockTokenParser struct {
	ParseTokenFunc func(token string) (*auth.Claims, error)
}

func (m *mockTokenParser) ParseToken(token string) (*auth.Claims, error) {
	return m.ParseTokenFunc(token)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "client error",
			err:     domain.ErrInsufficientFunds,
			status:  http.StatusBadRequest,
			code:    domain.CodeInsufficientFunds,
			message: "Insufficient balance in source account",
		},
		{
			name:    "wrapped client error",
			err:     errors.Join(errors.New("context"), domain.NotFound("Receipt not found")),
			status:  http.StatusNotFound,
			code:    domain.CodeNotFound,
			message: "Receipt not found",
		},
		{
			name:    "unexpected error",
			err:     errors.New("connection reset by peer"),
			status:  http.StatusInternalServerError,
			code:    domain.CodeInternal,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			env := decodeEnvelope(t, rec)
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Error.Code)
			require.Equal(t, tt.message, env.Error.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"cafe"}`))
	require.NoError(t, DecodeJSON(r, &v))
	require.Equal(t, "cafe", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeJSON(r, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	require.ErrorIs(t, DecodeJSON(r, &v), domain.ErrValidation)
}

func TestAuth(t *testing.T) {
	parser := &mockTokenParser{
		ParseTokenFunc: func(token string) (*auth.Claims, error) {
			if token != "good" {
				return nil, domain.ErrInvalidToken
			}
			c := &auth.Claims{}
			c.Subject = "user_1"
			return c, nil
		},
	}

	var seen string
	h := Auth(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		WriteJSON(w, http.StatusOK, nil)
	}))

	tests := []struct {
		name    string
		setup   func(r *http.Request)
		status  int
		message string
	}{
		{name: "missing", setup: func(r *http.Request) {}, status: http.StatusUnauthorized, message: "Authentication required"},
		{name: "invalid cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "bad"})
		}, status: http.StatusUnauthorized, message: "Invalid token"},
		{name: "cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "good"})
		}, status: http.StatusOK},
		{name: "bearer", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "bearer good")
		}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, "user_1", seen)
				return
			}
			require.Empty(t, seen)
			require.Equal(t, tt.message, decodeEnvelope(t, rec).Error.Message)
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, domain.CodeInternal, decodeEnvelope(t, rec).Error.Code)
}

func TestCORSAndRequestID(t *testing.T) {
	h := RequestID(CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"id": RequestIDFrom(r.Context())})
	})))

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	require.Contains(t, rec.Body.String(), `"id":"req-42"`)
}
