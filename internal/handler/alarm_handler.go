package handler

import (
	"encoding/json"
	"net/http"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/service"
	"medwatch-server/pkg/response"

	"go.uber.org/zap"
)

// AlarmHandler receives alarm webhooks from ThingsBoard. The routes are
// unauthenticated: the platform's rule engine cannot carry portal tokens.
type AlarmHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewAlarmHandler(notificationService *service.NotificationService, logger *zap.Logger) *AlarmHandler {
	return &AlarmHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// HandleAlarm processes a platform alarm webhook. Delivery problems are
// reported inside a 200 body so the platform does not retry alarms that can
// never resolve; only a malformed payload earns a 400.
func (h *AlarmHandler) HandleAlarm(w http.ResponseWriter, r *http.Request) {
	var payload domain.AlarmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid alarm payload")
		return
	}

	if payload.DeviceID == "" || payload.AlarmType == "" {
		response.BadRequest(w, "Invalid alarm payload")
		return
	}

	result, err := h.notificationService.ProcessAlarm(&payload)
	if err != nil {
		h.logger.Error("alarm processing failed", zap.Error(err))
		response.InternalError(w, "Failed to process alarm")
		return
	}

	response.Success(w, "Alarm processed", result)
}

// TestAlarm simulates a platform alarm for integration checks.
func (h *AlarmHandler) TestAlarm(w http.ResponseWriter, r *http.Request) {
	var payload domain.AlarmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid alarm payload")
		return
	}

	if payload.DeviceID == "" {
		response.BadRequest(w, "deviceId is required")
		return
	}
	if payload.AlarmType == "" {
		payload.AlarmType = "TEST_ALARM"
	}
	if payload.Severity == "" {
		payload.Severity = domain.SeverityInfo
	}
	if payload.Data == nil {
		payload.Data = map[string]interface{}{}
	}

	result, err := h.notificationService.ProcessAlarm(&payload)
	if err != nil {
		h.logger.Error("test alarm processing failed", zap.Error(err))
		response.InternalError(w, "Failed to process test alarm")
		return
	}

	response.Success(w, "Test alarm processed", result)
}
