// Package web holds the JSON response envelope and the request-context
// plumbing shared by every handler.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/internal/user/entity"
)

// Envelope is the uniform result shape: {success, data?, error?}.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError maps the error taxonomy onto HTTP statuses. Storage and
// unclassified errors are reported as a generic server error so raw
// causes never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	if kind, ok := apperror.KindOf(err); ok {
		switch kind {
		case apperror.KindValidation:
			status = http.StatusBadRequest
		case apperror.KindAuth:
			status = http.StatusUnauthorized
		case apperror.KindPermission:
			status = http.StatusForbidden
		case apperror.KindNotFound:
			status = http.StatusNotFound
		case apperror.KindStorage:
			status = http.StatusInternalServerError
		}
		if kind != apperror.KindStorage {
			message = err.Error()
		}
	}
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// WriteValidationError is a convenience for malformed request bodies.
func WriteValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{Success: false, Error: message})
}

type ctxKey int

const actorKey ctxKey = iota

// WithActor stores the authenticated acting user on the context.
func WithActor(ctx context.Context, u entity.PublicUser) context.Context {
	return context.WithValue(ctx, actorKey, u)
}

// Actor retrieves the acting user placed by the auth middleware.
func Actor(ctx context.Context) (entity.PublicUser, bool) {
	u, ok := ctx.Value(actorKey).(entity.PublicUser)
	return u, ok
}

// ErrNoActor is returned when a protected handler runs without an
// authenticated user on the context.
func ErrNoActor() error {
	return apperror.Auth("authentication required")
}
