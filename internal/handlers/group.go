package handlers

import (
	"net/http"

	"festival-tracker-backend/internal/middleware"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/services"
)

// GroupHandler handles pairing HTTP requests
type GroupHandler struct {
	groupService *services.GroupService
	userService  *services.UserService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *services.GroupService, userService *services.UserService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		userService:  userService,
	}
}

// CreateGroupRequest represents the request body for creating a group
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// JoinGroupRequest represents the request body for joining a group
type JoinGroupRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// GroupResponse is returned once the caller is paired. Pairing turns
// sharing on.
type GroupResponse struct {
	GroupID     string       `json:"group_id"`
	DisplayName string       `json:"display_name"`
	Sharing     bool         `json:"sharing"`
	User        *models.User `json:"user"`
}

func groupResponse(user *models.User) GroupResponse {
	return GroupResponse{
		GroupID:     user.Group(),
		DisplayName: user.DisplayName,
		Sharing:     true,
		User:        user,
	}
}

// CreateGroup handles POST /api/v1/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.groupService.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		respondAppError(w, r, err, "Failed to create group")
		return
	}
	respondJSON(w, http.StatusCreated, groupResponse(user))
}

// JoinGroup handles POST /api/v1/groups/join
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req JoinGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.groupService.JoinGroup(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Code)
	if err != nil {
		respondAppError(w, r, err, "Failed to join group")
		return
	}
	respondJSON(w, http.StatusOK, groupResponse(user))
}

// Members handles GET /api/v1/groups/members
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	members, err := h.groupService.Members(r.Context(), user)
	if err != nil {
		respondAppError(w, r, err, "Failed to list members")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"group_id": user.Group(),
		"members":  members,
	})
}
