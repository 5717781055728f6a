package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"
	"medwatch-server/pkg/hash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PatientService struct {
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	deviceRepo  repository.DeviceRepository
	tokens      *tokenstore.Store
	platform    Platform
	logger      *zap.Logger
}

func NewPatientService(
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	deviceRepo repository.DeviceRepository,
	tokens *tokenstore.Store,
	platform Platform,
	logger *zap.Logger,
) *PatientService {
	return &PatientService{
		patientRepo: patientRepo,
		userRepo:    userRepo,
		deviceRepo:  deviceRepo,
		tokens:      tokens,
		platform:    platform,
		logger:      logger,
	}
}

// Create registers a patient under the acting doctor, together with a linked
// portal account whose username is the patient's CCCD. The phone number
// serves as the initial password.
func (s *PatientService) Create(req *domain.CreatePatientRequest, doctorUserID string) (*domain.Patient, error) {
	if _, err := s.patientRepo.FindByCCCD(req.CCCD); err == nil {
		return nil, fmt.Errorf("patient with this CCCD already exists: %w", ErrBadRequest)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	initialPassword := req.Phone
	if initialPassword == "" {
		initialPassword = req.CCCD
	}
	hashed, err := hash.Hash(initialPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash initial password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  req.CCCD,
		Password:  hashed,
		Role:      domain.RolePatient,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create patient account: %w", err)
	}

	patient := &domain.Patient{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CCCD:      req.CCCD,
		FullName:  req.FullName,
		Birthday:  req.Birthday,
		Address:   req.Address,
		Phone:     req.Phone,
		Room:      req.Room,
		DoctorID:  doctorUserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.patientRepo.Create(patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.logger.Info("patient created",
		zap.String("patient_id", patient.ID),
		zap.String("doctor_user_id", doctorUserID),
	)
	return patient, nil
}

// List returns the patients supervised by the acting doctor.
func (s *PatientService) List(doctorUserID string) ([]*domain.Patient, error) {
	return s.patientRepo.ListByDoctor(doctorUserID)
}

func (s *PatientService) Get(patientID, actorUserID, actorRole string) (*domain.Patient, error) {
	patient, err := s.patientRepo.FindByID(patientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", ErrNotFound)
	}

	if err := s.authorize(patient, actorUserID, actorRole); err != nil {
		return nil, err
	}

	return patient, nil
}

func (s *PatientService) Update(patientID string, req *domain.UpdatePatientRequest, actorUserID, actorRole string) (*domain.Patient, error) {
	patient, err := s.Get(patientID, actorUserID, actorRole)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		patient.FullName = req.FullName
	}
	if req.Birthday != "" {
		patient.Birthday = req.Birthday
	}
	if req.Address != "" {
		patient.Address = req.Address
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.Room != "" {
		patient.Room = req.Room
	}
	patient.UpdatedAt = time.Now()

	if err := s.patientRepo.Update(patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.logger.Info("patient updated", zap.String("patient_id", patientID))
	return patient, nil
}

// Delete removes the patient, the linked portal account and any device
// binding. A bound platform device is deleted best-effort; the local records
// go regardless.
func (s *PatientService) Delete(ctx context.Context, patientID, actorUserID, actorRole string) error {
	patient, err := s.Get(patientID, actorUserID, actorRole)
	if err != nil {
		return err
	}

	if patient.DeviceID != "" {
		if token, ok := s.tokens.FindPlatformToken(actorUserID); ok {
			if err := s.platform.DeleteDevice(ctx, patient.DeviceID, token); err != nil {
				s.logger.Warn("failed to delete platform device",
					zap.String("device_id", patient.DeviceID),
					zap.Error(err),
				)
			}
		}
	}

	if patient.UserID != "" {
		if err := s.userRepo.Delete(patient.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to delete patient account: %w", err)
		}
	}

	if err := s.patientRepo.Delete(patient.ID); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	if patient.DeviceID != "" {
		if err := s.deviceRepo.DeleteByDeviceID(patient.DeviceID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to delete device binding: %w", err)
		}
	}

	s.logger.Info("patient deleted", zap.String("patient_id", patientID))
	return nil
}

// GetHealthInfo reads the latest vitals for the patient's bound device from
// the platform timeseries API.
func (s *PatientService) GetHealthInfo(ctx context.Context, patientID, actorUserID, actorRole string) (*domain.HealthInfo, error) {
	patient, err := s.Get(patientID, actorUserID, actorRole)
	if err != nil {
		return nil, err
	}

	if patient.DeviceID == "" {
		return nil, fmt.Errorf("patient is not allocated a device: %w", ErrBadRequest)
	}

	token, err := platformToken(ctx, s.tokens, s.platform, s.logger, actorUserID)
	if err != nil {
		return nil, err
	}

	telemetry, err := s.platform.GetTimeseries(ctx, patient.DeviceID, token, thingsboard.DefaultTelemetryKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to read telemetry: %w: %w", ErrServiceUnavailable, err)
	}

	return parseHealthInfo(telemetry), nil
}

func (s *PatientService) authorize(patient *domain.Patient, actorUserID, actorRole string) error {
	if actorRole == domain.RoleAdmin {
		return nil
	}
	if patient.DoctorID != actorUserID {
		return fmt.Errorf("patient is not supervised by this doctor: %w", ErrForbidden)
	}
	return nil
}

// parseHealthInfo keeps the latest sample per telemetry key. ThingsBoard
// returns values as strings even for numeric keys.
func parseHealthInfo(telemetry map[string][]thingsboard.TimeseriesValue) *domain.HealthInfo {
	info := &domain.HealthInfo{LastMeasurement: time.Now()}

	latest := func(key string) (interface{}, bool) {
		values := telemetry[key]
		if len(values) == 0 {
			return nil, false
		}
		return values[len(values)-1].Value, true
	}

	if v, ok := latest("heart_rate"); ok {
		info.HeartRate = toFloat(v)
	}
	if v, ok := latest("SpO2"); ok {
		info.SpO2 = toFloat(v)
	}
	if v, ok := latest("temperature"); ok {
		info.Temperature = toFloat(v)
	}
	if v, ok := latest("alarm"); ok {
		info.AlarmStatus = fmt.Sprintf("%v", v)
	}

	return info
}

func toFloat(value interface{}) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}
