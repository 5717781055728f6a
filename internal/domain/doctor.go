package domain

import "time"

type Doctor struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CCCD           string    `json:"cccd"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Birthday       string    `json:"birthday,omitempty"`
	Address        string    `json:"address,omitempty"`
	Specialization string    `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateDoctorRequest struct {
	CCCD           string `json:"cccd" validate:"required,len=12,numeric"`
	FullName       string `json:"full_name" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Birthday       string `json:"birthday" validate:"required"`
	Address        string `json:"address" validate:"required,min=5,max=200"`
	Specialization string `json:"specialization" validate:"required,min=2,max=100"`
}

type UpdateDoctorRequest struct {
	FullName       string `json:"full_name,omitempty"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string `json:"phone,omitempty"`
	Birthday       string `json:"birthday,omitempty"`
	Address        string `json:"address,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}
