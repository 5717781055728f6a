package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"

	"go.uber.org/zap"
)

// AlarmEmitter pushes an event onto a user's realtime channel.
type AlarmEmitter interface {
	EmitToUser(role, userID, event string, payload interface{}) error
}

// AlarmMailer delivers an alarm email to the supervising doctor.
type AlarmMailer interface {
	SendAlarmEmail(doctor *domain.Doctor, patient *domain.Patient, alarm *domain.AlarmPayload) error
}

// NotificationService fans an incoming device alarm out to the supervising
// doctor over websocket and email. The two channels are isolated: a failure
// on one never blocks the other, and neither failure fails the webhook.
type NotificationService struct {
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	emitter     AlarmEmitter
	mailer      AlarmMailer
	logger      *zap.Logger

	// lastSent tracks the last successful delivery per doctor/device pair so
	// a flapping sensor cannot flood the doctor.
	mu          sync.Mutex
	lastSent    map[string]time.Time
	minInterval time.Duration
}

func NewNotificationService(
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	emitter AlarmEmitter,
	mailer AlarmMailer,
	minInterval time.Duration,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		emitter:     emitter,
		mailer:      mailer,
		lastSent:    make(map[string]time.Time),
		minInterval: minInterval,
		logger:      logger,
	}
}

// ProcessAlarm resolves the alarmed device to its patient and doctor and
// delivers the notification. Unresolvable devices are reported in the result,
// not as errors: the platform retrying the webhook would not fix them.
func (s *NotificationService) ProcessAlarm(payload *domain.AlarmPayload) (*domain.AlarmResult, error) {
	s.logger.Info("processing alarm",
		zap.String("device_id", payload.DeviceID),
		zap.String("alarm_type", payload.AlarmType),
		zap.String("severity", payload.Severity),
	)

	patient, err := s.patientRepo.FindByDeviceID(payload.DeviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("no patient bound to alarmed device", zap.String("device_id", payload.DeviceID))
			return &domain.AlarmResult{Success: false, Message: "Patient not found"}, nil
		}
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	doctor, err := s.doctorRepo.FindByUserID(patient.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("no doctor for alarmed patient", zap.String("patient_id", patient.ID))
			return &domain.AlarmResult{Success: false, Message: "Doctor not found"}, nil
		}
		return nil, fmt.Errorf("failed to resolve doctor: %w", err)
	}

	rateKey := doctor.UserID + "_" + payload.DeviceID
	now := time.Now()

	s.mu.Lock()
	last, seen := s.lastSent[rateKey]
	shouldSend := !seen || now.Sub(last) >= s.minInterval
	s.mu.Unlock()

	if !shouldSend {
		s.logger.Info("notification rate limited",
			zap.String("key", rateKey),
			zap.Duration("remaining", s.minInterval-now.Sub(last)),
		)
		return &domain.AlarmResult{
			Success: false,
			Message: "Notification skipped due to rate limiting",
			Patient: patient.FullName,
			Doctor:  doctor.FullName,
		}, nil
	}

	event := &domain.AlarmEvent{
		ID:        fmt.Sprintf("alarm_%d", now.UnixMilli()),
		DeviceID:  payload.DeviceID,
		AlarmType: payload.AlarmType,
		Severity:  payload.Severity,
		Data:      payload.Data,
		Patient: domain.AlarmPatientSnapshot{
			ID:       patient.ID,
			FullName: patient.FullName,
			CCCD:     patient.CCCD,
			Room:     patient.Room,
		},
		Timestamp: now,
		Read:      false,
	}

	if err := s.emitter.EmitToUser(domain.RoleDoctor, doctor.UserID, "alarm-notification", event); err != nil {
		s.logger.Error("failed to emit realtime alarm",
			zap.String("doctor_user_id", doctor.UserID),
			zap.Error(err),
		)
	}

	if err := s.mailer.SendAlarmEmail(doctor, patient, payload); err != nil {
		// Leave the rate limit window open so the next alarm retries the email.
		s.logger.Error("failed to send alarm email",
			zap.String("doctor_email", doctor.Email),
			zap.Error(err),
		)
	} else {
		s.mu.Lock()
		s.lastSent[rateKey] = now
		s.mu.Unlock()
	}

	s.logger.Info("alarm notification delivered",
		zap.String("doctor_user_id", doctor.UserID),
		zap.String("patient_id", patient.ID),
	)

	return &domain.AlarmResult{
		Success: true,
		Message: "Notification sent successfully",
		Patient: patient.FullName,
		Doctor:  doctor.FullName,
	}, nil
}
