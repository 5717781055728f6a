package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"medwatch-server/internal/websocket"
	"medwatch-server/pkg/jwt"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
	logger    *zap.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBufferSize, writeBufferSize int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleConnection authenticates and upgrades a realtime connection. The
// token is rejected before the upgrade; the room is derived from the verified
// claims, never from client input.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
		if strings.HasPrefix(token, "Bearer ") {
			token = strings.TrimPrefix(token, "Bearer ")
		}
	}

	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		h.logger.Warn("websocket token validation failed", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, claims.Role, conn, h.manager)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler processes inbound client messages.
type WebSocketMessageHandler struct {
	logger *zap.Logger
}

func NewWebSocketMessageHandler(logger *zap.Logger) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{logger: logger}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Event {
	case websocket.EventAcknowledgeAlarm:
		return h.handleAcknowledge(client, msg)

	case websocket.EventPing:
		return h.handlePing(client)

	default:
		h.logger.Warn("unknown websocket event", zap.String("event", msg.Event))
	}

	return nil
}

// handleAcknowledge records that the doctor saw the alarm. Acknowledgements
// are not persisted; the log is the audit trail.
func (h *WebSocketMessageHandler) handleAcknowledge(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.AcknowledgePayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	h.logger.Info("alarm acknowledged",
		zap.String("alarm_id", payload.AlarmID),
		zap.String("user_id", client.UserID),
		zap.String("role", client.Role),
	)
	return nil
}

func (h *WebSocketMessageHandler) handlePing(client *websocket.Client) error {
	msg, err := websocket.NewMessage(websocket.EventPong, nil)
	if err != nil {
		return err
	}

	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case client.Send <- bytes:
	default:
	}
	return nil
}
