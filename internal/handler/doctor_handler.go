package handler

import (
	"encoding/json"
	"net/http"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/middleware"
	"medwatch-server/internal/service"
	"medwatch-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type DoctorHandler struct {
	doctorService *service.DoctorService
	validator     *validator.Validate
}

func NewDoctorHandler(doctorService *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{
		doctorService: doctorService,
		validator:     validator.New(),
	}
}

// Create registers a new doctor and portal account. Admin only.
func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	doctor, err := h.doctorService.Create(&req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, "Doctor created successfully", doctor)
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.doctorService.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if doctors == nil {
		doctors = []*domain.Doctor{}
	}
	response.Success(w, "Doctors retrieved", doctors)
}

func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.doctorService.GetByID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Doctor retrieved", doctor)
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	doctor, err := h.doctorService.UpdateByID(mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Doctor updated successfully", doctor)
}

func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.doctorService.Delete(mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Doctor deleted successfully", nil)
}

func (h *DoctorHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.doctorService.GetByUserID(middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Profile retrieved", doctor)
}

func (h *DoctorHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	doctor, err := h.doctorService.UpdateByUserID(middleware.GetUserID(r), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Profile updated successfully", doctor)
}
