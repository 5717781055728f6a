package domain

import "time"

// DeviceBinding links a ThingsBoard device to a patient record and the
// supervising doctor. At most one active binding exists per patient; the
// binding is created on allocation and removed on recall or patient deletion.
type DeviceBinding struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DeviceID    string    `json:"device_id"`
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id,omitempty"`
	PatientCCCD string    `json:"patient_cccd"`
	DoctorCCCD  string    `json:"doctor_cccd,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type DeviceSummary struct {
	BindingID string         `json:"binding_id"`
	Name      string         `json:"device_name"`
	DeviceID  string         `json:"thingsboard_device_id"`
	Doctor    *PersonSummary `json:"doctor"`
	Patient   *PersonSummary `json:"patient"`
}

type PersonSummary struct {
	ID       string `json:"id"`
	FullName string `json:"name"`
	CCCD     string `json:"cccd"`
	Phone    string `json:"phone,omitempty"`
	Room     string `json:"room,omitempty"`
}
