// Package render writes the JSON bodies shared by every API handler.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/auth"
	"github.com/MrJamesThe3rd/propledger/internal/property"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

// Failure is the body of every error response.
type Failure struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Failure{Message: message})
}

// Err maps domain errors to a status code. Unknown errors are logged and reported as 500.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, property.ErrNotMember), errors.Is(err, property.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, property.ErrNotFound), errors.Is(err, transaction.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, property.ErrNameRequired),
		errors.Is(err, property.ErrInvalidRole),
		errors.Is(err, transaction.ErrInvalidType):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// User returns the authenticated user, writing 401 when there is none.
func User(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserFrom(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "Unauthorized")
	}

	return id, ok
}

// PathID parses the named URL parameter as a UUID, writing 400 when it is not one.
func PathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}

	return id, true
}
