package handlers

import (
	"net/http"

	"festival-tracker-backend/internal/services"
)

// MediaHandler issues direct-upload URLs
type MediaHandler struct {
	mediaService *services.MediaService
	userService  *services.UserService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *services.MediaService, userService *services.UserService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		userService:  userService,
	}
}

// UploadURLRequest represents a request to get a pre-signed URL
type UploadURLRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

// UploadURL handles POST /api/v1/media/upload-url
func (h *MediaHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	var req UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ticket, err := h.mediaService.PresignUpload(r.Context(), user, req.Kind, req.ContentType)
	if err != nil {
		respondAppError(w, r, err, "Failed to generate upload URL")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}
