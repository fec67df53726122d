package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/services"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
	userService  *services.UserService
	maxBytes     int64
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, userService *services.UserService, maxBytes int64) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		userService:  userService,
		maxBytes:     maxBytes,
	}
}

// CreatePhotoRequest registers a photo uploaded through a pre-signed URL
type CreatePhotoRequest struct {
	ImageURL string `json:"image_url"`
	services.PhotoInput
}

// Create handles POST /api/v1/photos. It accepts either a multipart upload
// (image, caption, latitude, longitude) or JSON pointing at an uploaded image.
func (h *PhotoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	var (
		photo *models.FestivalPhoto
		err   error
	)
	if isMultipart(r) {
		photo, err = h.createFromUpload(w, r, user)
	} else {
		var req CreatePhotoRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		photo, err = h.photoService.CreatePhoto(r.Context(), user, req.ImageURL, req.PhotoInput)
	}
	if err != nil {
		respondAppError(w, r, err, "Failed to share photo")
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

func (h *PhotoHandler) createFromUpload(w http.ResponseWriter, r *http.Request, user *models.User) (*models.FestivalPhoto, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+maxJSONBody)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, apperr.ErrUploadTooLarge
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, apperr.InvalidArg("image file is required")
	}
	defer file.Close()

	var in services.PhotoInput
	if caption := r.FormValue("caption"); caption != "" {
		in.Caption = &caption
	}
	if in.Latitude, err = formFloat(r, "latitude"); err != nil {
		return nil, err
	}
	if in.Longitude, err = formFloat(r, "longitude"); err != nil {
		return nil, err
	}

	return h.photoService.SendPhoto(r.Context(), user, file, in)
}

func formFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.InvalidArg(name + " must be a number")
	}
	return &v, nil
}

// List handles GET /api/v1/photos
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondAppError(w, r, err, "Invalid limit")
		return
	}

	photos, err := h.photoService.List(r.Context(), user, limit)
	if err != nil {
		respondAppError(w, r, err, "Failed to list photos")
		return
	}
	respondJSON(w, http.StatusOK, photos)
}
