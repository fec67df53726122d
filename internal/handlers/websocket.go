package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/middleware"
	"festival-tracker-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsReadLimit  = 64 << 10
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; the token authenticates
	},
}

// inboundMessage is what clients send over the socket
type inboundMessage struct {
	Type     string                 `json:"type"`
	Location services.LocationInput `json:"location"`
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub             *services.WSHub
	userService     *services.UserService
	locationService *services.LocationService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	locationService *services.LocationService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		userService:     userService,
		locationService: locationService,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := middleware.ValidateWebSocketToken(r.Context(), token, h.userService)
	if err != nil {
		respondError(w, apperr.MessageOf(err), apperr.HTTPStatus(err))
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		respondError(w, apperr.MessageOf(err), apperr.HTTPStatus(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, user.Group(), conn)
	defer h.hub.Unregister(userID, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.keepAlive(ctx, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendErrorToUser(userID, "invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, msg); err != nil {
			if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
				log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			}
			h.sendErrorToUser(userID, apperr.MessageOf(err))
		}
	}
}

// keepAlive pings the client until ctx is done
func (h *WebSocketHandler) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg inboundMessage) error {
	switch msg.Type {
	case "ping":
		return h.hub.SendToUser(userID, services.WSMessage{Type: services.EventPong})
	case "location", services.EventFindMe:
		// the profile is reloaded so a re-pair since connecting is honored
		user, err := h.userService.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if msg.Type == services.EventFindMe {
			_, err = h.locationService.FindMe(ctx, user, msg.Location)
		} else {
			_, err = h.locationService.Record(ctx, user, msg.Location)
		}
		return err
	default:
		return apperr.InvalidArg("unknown message type")
	}
}

// sendErrorToUser sends an error message to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) {
	msg := services.WSMessage{
		Type:    services.EventError,
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to deliver WebSocket error")
	}
}
