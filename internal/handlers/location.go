package handlers

import (
	"net/http"

	"festival-tracker-backend/internal/services"
	"festival-tracker-backend/internal/validation"
)

// LocationHandler handles location HTTP requests
type LocationHandler struct {
	locationService *services.LocationService
	userService     *services.UserService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locationService *services.LocationService, userService *services.UserService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		userService:     userService,
	}
}

// Record handles POST /api/v1/locations
func (h *LocationHandler) Record(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, false)
}

// FindMe handles POST /api/v1/locations/find-me
func (h *LocationHandler) FindMe(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, true)
}

func (h *LocationHandler) record(w http.ResponseWriter, r *http.Request, findMe bool) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	var in services.LocationInput
	if !decodeJSON(w, r, &in) {
		return
	}

	record := h.locationService.Record
	if findMe {
		record = h.locationService.FindMe
	}
	loc, err := record(r.Context(), user, in)
	if err != nil {
		respondAppError(w, r, err, "Failed to record location")
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

// Active handles GET /api/v1/locations/active
func (h *LocationHandler) Active(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	rows, err := h.locationService.Active(r.Context(), user)
	if err != nil {
		respondAppError(w, r, err, "Failed to get active locations")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Latest handles GET /api/v1/locations/latest. 204 when the caller never shared.
func (h *LocationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	loc, err := h.locationService.LatestOwn(r.Context(), user)
	if err != nil {
		respondAppError(w, r, err, "Failed to get latest location")
		return
	}
	if loc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

// History handles GET /api/v1/locations/history?hours=N
func (h *LocationHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	hours, err := queryInt(r, "hours", validation.DefaultHistoryPeriod)
	if err != nil {
		respondAppError(w, r, err, "Invalid history period")
		return
	}

	rows, err := h.locationService.History(r.Context(), user, hours)
	if err != nil {
		respondAppError(w, r, err, "Failed to get location history")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Summary handles GET /api/v1/locations/summary?history=N
func (h *LocationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}
	hours, err := queryInt(r, "history", 0)
	if err != nil {
		respondAppError(w, r, err, "Invalid history period")
		return
	}

	summary, err := h.locationService.Summary(r.Context(), user, hours)
	if err != nil {
		respondAppError(w, r, err, "Failed to build location summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
