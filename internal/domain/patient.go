package domain

import "time"

// CCCDLength is the fixed width of the national identifier. ThingsBoard may
// store the attribute as a bare integer, so values read back from the platform
// are left-padded with zeros to this width before comparison.
const CCCDLength = 12

type Patient struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	CCCD     string `json:"cccd"`
	FullName string `json:"full_name"`
	Birthday string `json:"birthday,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Room     string `json:"room"`

	// DoctorID is the portal user id of the supervising doctor.
	DoctorID string `json:"doctor_id"`

	// DeviceID is the ThingsBoard device bound to this patient. Empty while
	// the patient has no allocated device; acts as the discovery cache.
	DeviceID string `json:"device_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePatientRequest struct {
	CCCD     string `json:"cccd" validate:"required,len=12,numeric"`
	FullName string `json:"full_name" validate:"required"`
	Birthday string `json:"birthday,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Room     string `json:"room" validate:"required"`
}

type UpdatePatientRequest struct {
	FullName string `json:"full_name,omitempty"`
	Birthday string `json:"birthday,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Room     string `json:"room,omitempty"`
}

// HealthInfo is the latest vitals snapshot parsed from platform timeseries.
// Nil fields mean the platform has no reading for that key yet.
type HealthInfo struct {
	HeartRate       *float64  `json:"heart_rate"`
	SpO2            *float64  `json:"SpO2"`
	Temperature     *float64  `json:"temperature"`
	LastMeasurement time.Time `json:"last_measurement"`
	AlarmStatus     string    `json:"alarm_status,omitempty"`
}
