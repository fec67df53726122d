package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// VoiceHandler handles voice message HTTP requests
type VoiceHandler struct {
	voiceService *services.VoiceService
	userService  *services.UserService
	maxBytes     int64
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(voiceService *services.VoiceService, userService *services.UserService, maxBytes int64) *VoiceHandler {
	return &VoiceHandler{
		voiceService: voiceService,
		userService:  userService,
		maxBytes:     maxBytes,
	}
}

// CreateVoiceRequest registers a clip uploaded through a pre-signed URL
type CreateVoiceRequest struct {
	AudioURL string `json:"audio_url"`
	Duration int    `json:"duration"`
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// Create handles POST /api/v1/voice-messages. It accepts either a multipart
// upload (audio, duration) or JSON pointing at an already uploaded clip.
func (h *VoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	var (
		msg *models.VoiceMessage
		err error
	)
	if isMultipart(r) {
		msg, err = h.createFromUpload(w, r, user)
	} else {
		var req CreateVoiceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		msg, err = h.voiceService.CreateVoice(r.Context(), user, req.AudioURL, req.Duration)
	}
	if err != nil {
		respondAppError(w, r, err, "Failed to send voice message")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (h *VoiceHandler) createFromUpload(w http.ResponseWriter, r *http.Request, user *models.User) (*models.VoiceMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+maxJSONBody)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, apperr.ErrUploadTooLarge
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, apperr.InvalidArg("audio file is required")
	}
	defer file.Close()

	duration, err := strconv.Atoi(r.FormValue("duration"))
	if err != nil {
		return nil, apperr.InvalidArg("duration must be a whole number of seconds")
	}

	return h.voiceService.SendVoice(r.Context(), user, file, header.Header.Get("Content-Type"), duration)
}

// List handles GET /api/v1/voice-messages
func (h *VoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondAppError(w, r, err, "Invalid limit")
		return
	}

	messages, err := h.voiceService.List(r.Context(), user, limit)
	if err != nil {
		respondAppError(w, r, err, "Failed to list voice messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkPlayed handles POST /api/v1/voice-messages/{id}/played
func (h *VoiceHandler) MarkPlayed(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	msg, err := h.voiceService.MarkPlayed(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err, "Failed to mark voice message played")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
