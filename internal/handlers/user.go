package handlers

import (
	"net/http"

	"festival-tracker-backend/internal/middleware"
	"festival-tracker-backend/internal/services"
)

// UserHandler handles account and session HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SignUpRequest represents the request body for signing up
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// SignInRequest represents the request body for signing in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PushTokenRequest represents the request body for registering a device
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.userService.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondAppError(w, r, err, "Failed to sign up")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// SignIn handles POST /api/v1/auth/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.userService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAppError(w, r, err, "Failed to sign in")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/v1/auth/signout
func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.SignOut(r.Context(), middleware.GetToken(r.Context())); err != nil {
		respondAppError(w, r, err, "Failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondAppError(w, r, err, "Failed to update push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
