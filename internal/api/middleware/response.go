package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/logger"
	"github.com/goccy/go-json"
)

const (
	internalMessage = "Internal server error"

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a success envelope around data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// WriteErr maps err to an error envelope. Client errors are returned verbatim;
// anything else is logged with the request logger and becomes a 500.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	if de, ok := domain.AsError(err); ok && de.Status < http.StatusInternalServerError {
		WriteError(w, de.Status, de.Code, de.Message)
		return
	}

	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")

	if de, ok := domain.AsError(err); ok {
		WriteError(w, de.Status, de.Code, de.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, domain.CodeInternal, internalMessage)
}

// DecodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return domain.Validation("Invalid request body")
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.Validation("Invalid value for " + typeErr.Field)
		}
		return domain.Validation("Invalid JSON body")
	}
	return nil
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
