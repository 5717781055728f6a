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

type PatientHandler struct {
	patientService *service.PatientService
	deviceService  *service.DeviceService
	validator      *validator.Validate
}

func NewPatientHandler(patientService *service.PatientService, deviceService *service.DeviceService) *PatientHandler {
	return &PatientHandler{
		patientService: patientService,
		deviceService:  deviceService,
		validator:      validator.New(),
	}
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	patient, err := h.patientService.Create(&req, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, "Patient created successfully", patient)
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientService.List(middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if patients == nil {
		patients = []*domain.Patient{}
	}
	response.Success(w, "Patients retrieved", patients)
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	patient, err := h.patientService.Get(patientID, middleware.GetUserID(r), middleware.GetUserRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Patient retrieved", patient)
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req domain.UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	patient, err := h.patientService.Update(patientID, &req, middleware.GetUserID(r), middleware.GetUserRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Patient updated successfully", patient)
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	err := h.patientService.Delete(r.Context(), patientID, middleware.GetUserID(r), middleware.GetUserRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Patient deleted successfully", nil)
}

func (h *PatientHandler) GetHealthInfo(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	info, err := h.patientService.GetHealthInfo(r.Context(), patientID, middleware.GetUserID(r), middleware.GetUserRole(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Health info retrieved", map[string]interface{}{
		"patient_id":  patientID,
		"health_info": info,
	})
}

func (h *PatientHandler) AllocateDevice(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	deviceID, err := h.deviceService.AllocateDevice(r.Context(), patientID, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Device allocated successfully", map[string]string{
		"device_id": deviceID,
	})
}

func (h *PatientHandler) RecallDevice(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	deviceID, err := h.deviceService.RecallDevice(r.Context(), patientID, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Device recalled successfully", map[string]string{
		"device_id": deviceID,
	})
}
