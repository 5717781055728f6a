package websocket

import (
	"encoding/json"
	"time"
)

const (
	EventConnected         = "connected"
	EventAlarmNotification = "alarm-notification"
	EventAcknowledgeAlarm  = "acknowledge-alarm"
	EventPing              = "ping"
	EventPong              = "pong"
)

type Message struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

type AcknowledgePayload struct {
	AlarmID string `json:"alarm_id"`
}

func NewMessage(event string, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
