package domain

import "time"

const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

// AlarmPayload is the body ThingsBoard posts to the alarm webhook.
type AlarmPayload struct {
	DeviceID  string                 `json:"deviceId" validate:"required"`
	AlarmType string                 `json:"alarmType" validate:"required"`
	Severity  string                 `json:"severity"`
	Data      map[string]interface{} `json:"data"`
}

// AlarmEvent is what gets delivered to the doctor's realtime channel. Events
// are transient: built per webhook, delivered at most once, never persisted.
type AlarmEvent struct {
	ID        string                 `json:"id"`
	DeviceID  string                 `json:"deviceId"`
	AlarmType string                 `json:"alarmType"`
	Severity  string                 `json:"severity"`
	Data      map[string]interface{} `json:"data"`
	Patient   AlarmPatientSnapshot   `json:"patient"`
	Timestamp time.Time              `json:"timestamp"`
	Read      bool                   `json:"read"`
}

type AlarmPatientSnapshot struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	CCCD     string `json:"cccd"`
	Room     string `json:"room"`
}

type AlarmResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Patient string `json:"patient,omitempty"`
	Doctor  string `json:"doctor,omitempty"`
}
