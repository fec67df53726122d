package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub event types
const (
	EventLocationUpdated = "location_updated"
	EventFindMe          = "find_me"
	EventVoiceMessage    = "voice_message"
	EventVoicePlayed     = "voice_played"
	EventPhoto           = "photo"
	EventMemberJoined    = "member_joined"
	EventSessionEnded    = "session_ended"
	EventPong            = "pong"
	EventError           = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Conn is the part of a websocket connection the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type wsClient struct {
	conn    Conn
	groupID string
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user, and fans events out to
// the members of a group. Polling stays authoritative; the hub only shortens
// the time until a client sees a change.
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]*wsClient)}
}

// Register registers a connection for a user, replacing any previous one
func (h *WSHub) Register(userID, groupID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.clients[userID]; exists {
		existing.conn.Close()
	}
	h.clients[userID] = &wsClient{conn: conn, groupID: groupID}

	log.Info().Str("user_id", userID).Str("group_id", groupID).Msg("WebSocket connection registered")
}

// Unregister removes the user's connection if it is still conn
func (h *WSHub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[userID]; exists && client.conn == conn {
		client.conn.Close()
		delete(h.clients, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SetGroup moves a connected user to a new group after pairing
func (h *WSHub) SetGroup(userID, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, exists := h.clients[userID]; exists {
		client.groupID = groupID
	}
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := encode(message)
	if err != nil {
		return err
	}
	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// BroadcastToGroup sends a message to every connected member of a group
// except exceptUserID. Failed connections are dropped.
func (h *WSHub) BroadcastToGroup(groupID string, message WSMessage, exceptUserID string) {
	if groupID == "" {
		return
	}
	data, err := encode(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to encode broadcast")
		return
	}

	type target struct {
		userID string
		client *wsClient
	}
	h.mu.RLock()
	var targets []target
	for userID, client := range h.clients {
		if client.groupID == groupID && userID != exceptUserID {
			targets = append(targets, target{userID, client})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		if err := t.client.write(data); err != nil {
			log.Warn().Err(err).Str("user_id", t.userID).Msg("Dropping unreachable WebSocket client")
			h.Unregister(t.userID, t.client.conn)
		}
	}
}

// Disconnect sends a final message and closes the user's connection
func (h *WSHub) Disconnect(userID string, message WSMessage) {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()
	if !exists {
		return
	}
	if data, err := encode(message); err == nil {
		_ = client.write(data)
	}
	h.Unregister(userID, client.conn)
}

func encode(message WSMessage) ([]byte, error) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// CloseAll ends every connection with a session_ended message
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	data, _ := encode(WSMessage{Type: EventSessionEnded, Message: "server shutting down"})
	for _, client := range clients {
		_ = client.write(data)
		client.conn.Close()
	}
	log.Info().Int("connections", len(clients)).Msg("WebSocket connections closed")
}
