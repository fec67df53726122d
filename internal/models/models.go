package models

import "time"

// User represents an account. GroupID and DisplayName are set at pairing time.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	GroupID      *string   `json:"group_id,omitempty"`
	PushToken    *string   `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// InGroup reports whether the user has paired into a group
func (u *User) InGroup() bool {
	return u.GroupID != nil && *u.GroupID != ""
}

// Group returns the user's group code or an empty string
func (u *User) Group() string {
	if u.GroupID == nil {
		return ""
	}
	return *u.GroupID
}

// LocationUpdate is an append-only point fix published by a group member
type LocationUpdate struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Accuracy       float64   `json:"accuracy"`
	BatteryLevel   *int      `json:"battery_level"`
	PartnerName    string    `json:"partner_name"`
	IsActive       bool      `json:"is_active"`
	CreatedByEmail string    `json:"created_by_email"`
	CreatedAt      time.Time `json:"created_at"`
}

// VoiceMessage is a recorded clip shared with the group
type VoiceMessage struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	AudioURL       string    `json:"audio_url"`
	Duration       int       `json:"duration"`
	PartnerName    string    `json:"partner_name"`
	IsPlayed       bool      `json:"is_played"`
	CreatedByEmail string    `json:"created_by_email"`
	CreatedAt      time.Time `json:"created_at"`
}

// FestivalPhoto is a captioned, optionally geotagged photo shared with the group
type FestivalPhoto struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	ImageURL       string    `json:"image_url"`
	Caption        *string   `json:"caption,omitempty"`
	PartnerName    string    `json:"partner_name"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	CreatedByEmail string    `json:"created_by_email"`
	CreatedAt      time.Time `json:"created_at"`
}
