package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/middleware"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondAppError maps err onto a status and a client-safe message.
// Server-side failures are logged with their cause.
func respondAppError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("user_id", middleware.GetUserID(r.Context())).
			Str("path", r.URL.Path).
			Msg(msg)
	}
	respondJSON(w, status, ErrorResponse{
		Error: apperr.MessageOf(err),
		Code:  string(apperr.CodeOf(err)),
	})
}

// decodeJSON decodes a bounded JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondAppError(w, r, apperr.ErrUploadTooLarge, "Request body too large")
			return false
		}
		respondAppError(w, r, apperr.InvalidArg("invalid request body"), "Invalid request body")
		return false
	}
	return true
}

// profileLoader resolves the authenticated user's profile
type profileLoader interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

var _ profileLoader = (*services.UserService)(nil)

// currentUser loads the caller's profile, writing the error response on failure
func currentUser(w http.ResponseWriter, r *http.Request, users profileLoader) (*models.User, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondAppError(w, r, apperr.ErrInvalidToken, "Missing user")
		return nil, false
	}
	user, err := users.GetProfile(r.Context(), userID)
	if err != nil {
		respondAppError(w, r, err, "Failed to load profile")
		return nil, false
	}
	return user, true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArg(name + " must be an integer")
	}
	return n, nil
}
