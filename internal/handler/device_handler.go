package handler

import (
	"net/http"

	"medwatch-server/internal/service"
	"medwatch-server/pkg/response"
)

type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// List returns every device binding with the joined doctor and patient
// records. Admin only.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.deviceService.ListDevices(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Devices retrieved", summaries)
}
