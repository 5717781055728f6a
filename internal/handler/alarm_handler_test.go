package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/service"

	"go.uber.org/zap"
)

type stubPatientRepo struct {
	repository.PatientRepository
	patient *domain.Patient
}

func (s *stubPatientRepo) FindByDeviceID(deviceID string) (*domain.Patient, error) {
	if s.patient != nil && s.patient.DeviceID == deviceID {
		return s.patient, nil
	}
	return nil, fmt.Errorf("patient: %w", repository.ErrNotFound)
}

type stubDoctorRepo struct {
	repository.DoctorRepository
	doctor *domain.Doctor
}

func (s *stubDoctorRepo) FindByUserID(userID string) (*domain.Doctor, error) {
	if s.doctor != nil && s.doctor.UserID == userID {
		return s.doctor, nil
	}
	return nil, fmt.Errorf("doctor: %w", repository.ErrNotFound)
}

type stubEmitter struct{ emits int }

func (s *stubEmitter) EmitToUser(_, _, _ string, _ interface{}) error {
	s.emits++
	return nil
}

type stubMailer struct{ sends int }

func (s *stubMailer) SendAlarmEmail(_ *domain.Doctor, _ *domain.Patient, _ *domain.AlarmPayload) error {
	s.sends++
	return nil
}

func newAlarmHandler(t *testing.T) (*AlarmHandler, *stubEmitter, *stubMailer) {
	t.Helper()

	patients := &stubPatientRepo{patient: &domain.Patient{
		ID:       "p1",
		FullName: "Nguyen Van A",
		CCCD:     "000000000123",
		Room:     "301",
		DoctorID: "u1",
		DeviceID: "dev-1",
	}}
	doctors := &stubDoctorRepo{doctor: &domain.Doctor{
		ID:       "d1",
		UserID:   "u1",
		FullName: "Dr. Tran",
		Email:    "tran@hospital.example",
	}}

	emitter := &stubEmitter{}
	mailer := &stubMailer{}
	svc := service.NewNotificationService(patients, doctors, emitter, mailer, time.Minute, zap.NewNop())
	return NewAlarmHandler(svc, zap.NewNop()), emitter, mailer
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestHandleAlarm(t *testing.T) {
	t.Run("valid alarm returns 200 with result", func(t *testing.T) {
		h, emitter, mailer := newAlarmHandler(t)

		rec := postJSON(t, h.HandleAlarm, map[string]interface{}{
			"deviceId":  "dev-1",
			"alarmType": "HIGH_HEART_RATE",
			"severity":  "CRITICAL",
			"data":      map[string]interface{}{"heart_rate": 145},
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Status string             `json:"status"`
			Data   domain.AlarmResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if body.Status != "success" || !body.Data.Success {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
		if emitter.emits != 1 || mailer.sends != 1 {
			t.Errorf("expected delivery on both channels, got emits=%d emails=%d", emitter.emits, mailer.sends)
		}
	})

	t.Run("unknown device still returns 200", func(t *testing.T) {
		h, _, _ := newAlarmHandler(t)

		rec := postJSON(t, h.HandleAlarm, map[string]interface{}{
			"deviceId":  "dev-unknown",
			"alarmType": "HIGH_HEART_RATE",
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body struct {
			Data domain.AlarmResult `json:"data"`
		}
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Data.Success || body.Data.Message != "Patient not found" {
			t.Errorf("unexpected result: %+v", body.Data)
		}
	})

	t.Run("missing deviceId is rejected", func(t *testing.T) {
		h, _, _ := newAlarmHandler(t)

		rec := postJSON(t, h.HandleAlarm, map[string]interface{}{
			"alarmType": "HIGH_HEART_RATE",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing alarmType is rejected", func(t *testing.T) {
		h, _, _ := newAlarmHandler(t)

		rec := postJSON(t, h.HandleAlarm, map[string]interface{}{
			"deviceId": "dev-1",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		h, _, _ := newAlarmHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		h.HandleAlarm(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTestAlarm(t *testing.T) {
	t.Run("defaults alarm type and severity", func(t *testing.T) {
		h, emitter, _ := newAlarmHandler(t)

		rec := postJSON(t, h.TestAlarm, map[string]interface{}{
			"deviceId": "dev-1",
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if emitter.emits != 1 {
			t.Errorf("expected 1 emit, got %d", emitter.emits)
		}
	})

	t.Run("requires deviceId", func(t *testing.T) {
		h, _, _ := newAlarmHandler(t)

		rec := postJSON(t, h.TestAlarm, map[string]interface{}{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
