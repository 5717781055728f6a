package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// deviceAttributeKeys are the device attributes that carry the bound patient's
// and supervising doctor's identifiers.
var deviceAttributeKeys = []string{"patient", "doctor"}

// DeviceService bridges patient identity and platform device identity: the
// platform has no native concept of a patient, only devices with attributes.
type DeviceService struct {
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	deviceRepo  repository.DeviceRepository
	tokens      *tokenstore.Store
	platform    Platform
	group       singleflight.Group
	logger      *zap.Logger
}

func NewDeviceService(
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	deviceRepo repository.DeviceRepository,
	tokens *tokenstore.Store,
	platform Platform,
	logger *zap.Logger,
) *DeviceService {
	return &DeviceService{
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		deviceRepo:  deviceRepo,
		tokens:      tokens,
		platform:    platform,
		logger:      logger,
	}
}

// normalizeIdentifier left-pads a platform attribute value to the fixed CCCD
// width. The platform may store the identifier as a bare integer, dropping
// leading zeros.
func normalizeIdentifier(value string) string {
	if len(value) >= domain.CCCDLength {
		return value
	}
	return strings.Repeat("0", domain.CCCDLength-len(value)) + value
}

func attributeValue(attrs []thingsboard.Attribute, key string) (string, bool) {
	for _, attr := range attrs {
		if attr.Key == key {
			switch v := attr.Value.(type) {
			case string:
				return v, true
			case float64:
				return fmt.Sprintf("%.0f", v), true
			default:
				return fmt.Sprintf("%v", v), true
			}
		}
	}
	return "", false
}

// ResolveDeviceForPatient finds the platform device bound to a patient.
// The cached device id on the patient record is the dominant fast path;
// otherwise the tenant's devices are scanned sequentially (one attribute fetch
// at a time, to bound platform load) and the first match is cached back onto
// the patient record. Concurrent resolutions for the same patient collapse
// into a single scan.
func (s *DeviceService) ResolveDeviceForPatient(ctx context.Context, patient *domain.Patient, token string) (string, error) {
	if patient.DeviceID != "" {
		return patient.DeviceID, nil
	}

	result, err, _ := s.group.Do(patient.ID, func() (interface{}, error) {
		// Another flight may have completed while this one queued.
		fresh, err := s.patientRepo.FindByID(patient.ID)
		if err == nil && fresh.DeviceID != "" {
			return fresh.DeviceID, nil
		}

		return s.scanForDevice(ctx, patient, token)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (s *DeviceService) scanForDevice(ctx context.Context, patient *domain.Patient, token string) (string, error) {
	s.logger.Info("searching platform for patient device",
		zap.String("patient_id", patient.ID),
		zap.String("cccd", patient.CCCD),
	)

	devices, err := s.platform.ListDevices(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to list platform devices: %w: %w", ErrServiceUnavailable, err)
	}

	for _, device := range devices {
		attrs, err := s.platform.GetAttributes(ctx, device.ID.ID, token, deviceAttributeKeys)
		if err != nil {
			// One bad device must not abort discovery of the others.
			s.logger.Warn("could not fetch device attributes",
				zap.String("device_id", device.ID.ID),
				zap.Error(err),
			)
			continue
		}

		patientValue, ok := attributeValue(attrs, "patient")
		if !ok {
			continue
		}

		if normalizeIdentifier(patientValue) != patient.CCCD {
			continue
		}

		s.logger.Info("device found for patient",
			zap.String("device_id", device.ID.ID),
			zap.String("patient_id", patient.ID),
		)

		binding := &domain.DeviceBinding{
			ID:          uuid.New().String(),
			Name:        device.Name,
			DeviceID:    device.ID.ID,
			PatientID:   patient.ID,
			PatientCCCD: patient.CCCD,
			CreatedAt:   time.Now(),
		}

		// The supervising doctor is declared on the same device.
		if doctorValue, ok := attributeValue(attrs, "doctor"); ok {
			doctorCCCD := normalizeIdentifier(doctorValue)
			binding.DoctorCCCD = doctorCCCD

			if doctor, err := s.doctorRepo.FindByCCCD(doctorCCCD); err != nil {
				s.logger.Warn("device declares unknown doctor",
					zap.String("device_id", device.ID.ID),
					zap.String("doctor_cccd", doctorCCCD),
				)
			} else {
				binding.DoctorID = doctor.ID
			}
		}

		if err := s.patientRepo.UpdateDeviceID(patient.ID, device.ID.ID); err != nil {
			return "", fmt.Errorf("failed to cache device id: %w", err)
		}

		if err := s.deviceRepo.Create(binding); err != nil {
			return "", fmt.Errorf("failed to create device binding: %w", err)
		}

		return device.ID.ID, nil
	}

	s.logger.Info("no device found for patient", zap.String("patient_id", patient.ID))
	return "", fmt.Errorf("no device found for this patient: %w", ErrNotFound)
}

// AllocateDevice binds a platform device to the patient. Rejected before any
// platform call when a binding already exists.
func (s *DeviceService) AllocateDevice(ctx context.Context, patientID, actorUserID string) (string, error) {
	patient, err := s.patientRepo.FindByID(patientID)
	if err != nil {
		return "", fmt.Errorf("patient not found: %w", ErrNotFound)
	}

	if patient.DoctorID != actorUserID {
		return "", fmt.Errorf("patient is not supervised by this doctor: %w", ErrForbidden)
	}

	if patient.DeviceID != "" {
		return "", fmt.Errorf("patient already has a device allocated: %w", ErrBadRequest)
	}

	token, err := platformToken(ctx, s.tokens, s.platform, s.logger, actorUserID)
	if err != nil {
		return "", err
	}

	deviceID, err := s.ResolveDeviceForPatient(ctx, patient, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("there is no existing device for this patient: %w", ErrBadRequest)
		}
		return "", err
	}

	s.logger.Info("device allocated", zap.String("patient_id", patientID), zap.String("device_id", deviceID))
	return deviceID, nil
}

// RecallDevice unbinds the patient's device and deletes it from the platform
// best-effort: a platform failure still clears the local binding.
func (s *DeviceService) RecallDevice(ctx context.Context, patientID, actorUserID string) (string, error) {
	patient, err := s.patientRepo.FindByID(patientID)
	if err != nil {
		return "", fmt.Errorf("patient not found: %w", ErrNotFound)
	}

	if patient.DoctorID != actorUserID {
		return "", fmt.Errorf("patient is not supervised by this doctor: %w", ErrForbidden)
	}

	if patient.DeviceID == "" {
		return "", fmt.Errorf("patient does not have any device allocated: %w", ErrBadRequest)
	}

	deviceID := patient.DeviceID

	if token, err := platformToken(ctx, s.tokens, s.platform, s.logger, actorUserID); err != nil {
		s.logger.Warn("skipping platform device delete", zap.String("device_id", deviceID), zap.Error(err))
	} else if err := s.platform.DeleteDevice(ctx, deviceID, token); err != nil {
		s.logger.Warn("failed to delete platform device", zap.String("device_id", deviceID), zap.Error(err))
	}

	if err := s.patientRepo.UpdateDeviceID(patientID, ""); err != nil {
		return "", fmt.Errorf("failed to clear device id: %w", err)
	}

	if err := s.deviceRepo.DeleteByDeviceID(deviceID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to delete device binding: %w", err)
	}

	s.logger.Info("device recalled", zap.String("patient_id", patientID), zap.String("device_id", deviceID))
	return deviceID, nil
}

// ListDevices joins device bindings with their doctor and patient records for
// the admin device overview.
func (s *DeviceService) ListDevices(ctx context.Context) ([]*domain.DeviceSummary, error) {
	bindings, err := s.deviceRepo.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.DeviceSummary, 0, len(bindings))
	for _, binding := range bindings {
		summary := &domain.DeviceSummary{
			BindingID: binding.ID,
			Name:      binding.Name,
			DeviceID:  binding.DeviceID,
		}

		if binding.DoctorID != "" {
			if doctor, err := s.doctorRepo.FindByID(binding.DoctorID); err == nil {
				summary.Doctor = &domain.PersonSummary{
					ID:       doctor.ID,
					FullName: doctor.FullName,
					CCCD:     doctor.CCCD,
					Phone:    doctor.Phone,
				}
			}
		}

		if patient, err := s.patientRepo.FindByID(binding.PatientID); err == nil {
			summary.Patient = &domain.PersonSummary{
				ID:       patient.ID,
				FullName: patient.FullName,
				CCCD:     patient.CCCD,
				Phone:    patient.Phone,
				Room:     patient.Room,
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
