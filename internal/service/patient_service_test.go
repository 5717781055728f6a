package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"
	"medwatch-server/pkg/hash"

	"go.uber.org/zap"
)

func newTestPatientService(patients *mockPatientRepo, users *mockUserRepo, devices *mockDeviceRepo, platform *mockPlatform) (*PatientService, *tokenstore.Store) {
	tokens := tokenstore.New()
	svc := NewPatientService(patients, users, devices, tokens, platform, zap.NewNop())
	return svc, tokens
}

func TestCreatePatient(t *testing.T) {
	t.Run("creates record and linked account", func(t *testing.T) {
		patients := newMockPatientRepo()
		users := newMockUserRepo()
		svc, _ := newTestPatientService(patients, users, newMockDeviceRepo(), &mockPlatform{})

		patient, err := svc.Create(&domain.CreatePatientRequest{
			CCCD:     "000000000123",
			FullName: "Nguyen Van A",
			Phone:    "0912345678",
			Room:     "301",
		}, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if patient.DoctorID != "u1" {
			t.Errorf("expected doctor user id u1, got %q", patient.DoctorID)
		}

		user, err := users.FindByUsername("000000000123")
		if err != nil {
			t.Fatalf("expected linked account: %v", err)
		}
		if user.Role != domain.RolePatient {
			t.Errorf("expected patient role, got %q", user.Role)
		}
		if err := hash.Compare(user.Password, "0912345678"); err != nil {
			t.Error("expected phone number as initial password")
		}
		if patient.UserID != user.ID {
			t.Errorf("patient not linked to account: %q vs %q", patient.UserID, user.ID)
		}
	})

	t.Run("rejects duplicate CCCD", func(t *testing.T) {
		patients := newMockPatientRepo()
		patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123"})

		svc, _ := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), &mockPlatform{})

		_, err := svc.Create(&domain.CreatePatientRequest{
			CCCD:     "000000000123",
			FullName: "Nguyen Van A",
			Room:     "301",
		}, "u1")
		if !errors.Is(err, ErrBadRequest) {
			t.Errorf("expected ErrBadRequest, got %v", err)
		}
	})
}

func TestGetPatient(t *testing.T) {
	patients := newMockPatientRepo()
	patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123", DoctorID: "u1"})

	svc, _ := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), &mockPlatform{})

	t.Run("supervising doctor", func(t *testing.T) {
		if _, err := svc.Get("p1", "u1", domain.RoleDoctor); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("foreign doctor is forbidden", func(t *testing.T) {
		_, err := svc.Get("p1", "u2", domain.RoleDoctor)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		if _, err := svc.Get("p1", "admin-user", domain.RoleAdmin); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := svc.Get("nope", "u1", domain.RoleDoctor)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeletePatient(t *testing.T) {
	t.Run("cascades account, binding and platform device", func(t *testing.T) {
		patients := newMockPatientRepo()
		users := newMockUserRepo()
		devices := newMockDeviceRepo()
		platform := &mockPlatform{}

		users.Create(&domain.User{ID: "acc1", Username: "000000000123", Role: domain.RolePatient})
		patients.Create(&domain.Patient{ID: "p1", UserID: "acc1", CCCD: "000000000123", DoctorID: "u1", DeviceID: "dev-1"})
		devices.Create(&domain.DeviceBinding{ID: "b1", DeviceID: "dev-1", PatientID: "p1", PatientCCCD: "000000000123"})

		svc, tokens := newTestPatientService(patients, users, devices, platform)
		tokens.SavePlatformToken("u1", "cached-token", time.Now().Add(time.Hour))

		if err := svc.Delete(context.Background(), "p1", "u1", domain.RoleDoctor); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := patients.FindByID("p1"); err == nil {
			t.Error("expected patient removed")
		}
		if _, err := users.FindByID("acc1"); err == nil {
			t.Error("expected linked account removed")
		}
		if _, err := devices.FindByDeviceID("dev-1"); err == nil {
			t.Error("expected binding removed")
		}
		if len(platform.deletedIDs) != 1 || platform.deletedIDs[0] != "dev-1" {
			t.Errorf("expected platform delete, got %v", platform.deletedIDs)
		}
	})

	t.Run("platform failure does not block local cleanup", func(t *testing.T) {
		patients := newMockPatientRepo()
		users := newMockUserRepo()
		devices := newMockDeviceRepo()
		platform := &mockPlatform{deleteErr: errors.New("gone away")}

		users.Create(&domain.User{ID: "acc1"})
		patients.Create(&domain.Patient{ID: "p1", UserID: "acc1", CCCD: "000000000123", DoctorID: "u1", DeviceID: "dev-1"})
		devices.Create(&domain.DeviceBinding{ID: "b1", DeviceID: "dev-1", PatientID: "p1", PatientCCCD: "000000000123"})

		svc, tokens := newTestPatientService(patients, users, devices, platform)
		tokens.SavePlatformToken("u1", "cached-token", time.Now().Add(time.Hour))

		if err := svc.Delete(context.Background(), "p1", "u1", domain.RoleDoctor); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := patients.FindByID("p1"); err == nil {
			t.Error("expected patient removed despite platform failure")
		}
	})
}

func TestGetHealthInfo(t *testing.T) {
	t.Run("parses latest sample per key", func(t *testing.T) {
		patients := newMockPatientRepo()
		patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123", DoctorID: "u1", DeviceID: "dev-1"})

		platform := &mockPlatform{
			tsResult: map[string][]thingsboard.TimeseriesValue{
				"heart_rate": {
					{TS: 1, Value: "70"},
					{TS: 2, Value: "88"},
				},
				"SpO2":        {{TS: 2, Value: "97"}},
				"temperature": {{TS: 2, Value: 36.8}},
				"alarm":       {{TS: 2, Value: "NONE"}},
			},
		}

		svc, tokens := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), platform)
		tokens.SavePlatformToken("u1", "cached-token", time.Now().Add(time.Hour))

		info, err := svc.GetHealthInfo(context.Background(), "p1", "u1", domain.RoleDoctor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if info.HeartRate == nil || *info.HeartRate != 88 {
			t.Errorf("expected latest heart rate 88, got %v", info.HeartRate)
		}
		if info.SpO2 == nil || *info.SpO2 != 97 {
			t.Errorf("expected SpO2 97, got %v", info.SpO2)
		}
		if info.Temperature == nil || *info.Temperature != 36.8 {
			t.Errorf("expected temperature 36.8, got %v", info.Temperature)
		}
		if info.AlarmStatus != "NONE" {
			t.Errorf("expected alarm status NONE, got %q", info.AlarmStatus)
		}
	})

	t.Run("requires an allocated device", func(t *testing.T) {
		patients := newMockPatientRepo()
		patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123", DoctorID: "u1"})

		svc, _ := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), &mockPlatform{})

		_, err := svc.GetHealthInfo(context.Background(), "p1", "u1", domain.RoleDoctor)
		if !errors.Is(err, ErrBadRequest) {
			t.Errorf("expected ErrBadRequest, got %v", err)
		}
	})

	t.Run("platform outage surfaces as service unavailable", func(t *testing.T) {
		patients := newMockPatientRepo()
		patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123", DoctorID: "u1", DeviceID: "dev-1"})

		platform := &mockPlatform{tsErr: errors.New("connection refused")}

		svc, tokens := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), platform)
		tokens.SavePlatformToken("u1", "cached-token", time.Now().Add(time.Hour))

		_, err := svc.GetHealthInfo(context.Background(), "p1", "u1", domain.RoleDoctor)
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("missing telemetry keys stay nil", func(t *testing.T) {
		patients := newMockPatientRepo()
		patients.Create(&domain.Patient{ID: "p1", CCCD: "000000000123", DoctorID: "u1", DeviceID: "dev-1"})

		platform := &mockPlatform{
			tsResult: map[string][]thingsboard.TimeseriesValue{
				"heart_rate": {{TS: 1, Value: "72"}},
			},
		}

		svc, tokens := newTestPatientService(patients, newMockUserRepo(), newMockDeviceRepo(), platform)
		tokens.SavePlatformToken("u1", "cached-token", time.Now().Add(time.Hour))

		info, err := svc.GetHealthInfo(context.Background(), "p1", "u1", domain.RoleDoctor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.SpO2 != nil || info.Temperature != nil {
			t.Errorf("expected missing keys to stay nil: %+v", info)
		}
	})
}
