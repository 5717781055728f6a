package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"

	// RolePatient accounts are created alongside patient records so patients
	// can be granted portal access later. They cannot log into the doctor
	// portal today.
	RolePatient = "patient"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
