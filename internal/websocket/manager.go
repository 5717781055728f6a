package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

// Manager owns the room membership tables for all realtime sessions. Each
// connection joins exactly one room named "{role}:{userID}"; emitting to an
// empty room is a silent drop (at-most-once, no queuing).
type Manager struct {
	clients        map[string]*Client
	rooms          map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	logger         *zap.Logger
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		rooms:          make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		logger:         logger,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	room := client.Room()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]bool)
	}

	if len(m.rooms[room]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", zap.String("room", room))
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.rooms[room][client.ID] = true

	m.logger.Info("client joined room",
		zap.String("client_id", client.ID),
		zap.String("room", room),
	)

	if msg, err := NewMessage(EventConnected, &ConnectedPayload{
		Message: "Connected to notification server",
		UserID:  client.UserID,
		Role:    client.Role,
	}); err == nil {
		if bytes, err := json.Marshal(msg); err == nil {
			select {
			case client.Send <- bytes:
			default:
			}
		}
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		room := client.Room()
		delete(m.clients, client.ID)
		delete(m.rooms[room], client.ID)

		if len(m.rooms[room]) == 0 {
			delete(m.rooms, room)
		}

		close(client.Send)
		m.logger.Info("client left room",
			zap.String("client_id", client.ID),
			zap.String("room", room),
		)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Warn("error unmarshaling message", zap.Error(err))
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.logger.Warn("error handling message", zap.Error(err))
		}
	}
}

// EmitToUser delivers an event to every connection in the "{role}:{userID}"
// room. An empty room drops the event silently; delivery is best-effort.
func (m *Manager) EmitToUser(role, userID, event string, payload interface{}) error {
	msg, err := NewMessage(event, payload)
	if err != nil {
		return err
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	room := role + ":" + userID
	clientIDs, exists := m.rooms[room]
	if !exists {
		m.logger.Debug("emit to empty room dropped", zap.String("room", room), zap.String("event", event))
		return nil
	}

	for clientID := range clientIDs {
		client := m.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Warn("client send buffer full, closing connection", zap.String("client_id", clientID))
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}

	m.logger.Info("event emitted", zap.String("room", room), zap.String("event", event))
	return nil
}

// RoomConnections reports how many connections are joined to a room.
func (m *Manager) RoomConnections(role, userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.rooms[role+":"+userID]; exists {
		return len(clients)
	}
	return 0
}
