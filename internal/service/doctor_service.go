package service

import (
	"errors"
	"fmt"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/pkg/hash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DoctorService struct {
	doctorRepo repository.DoctorRepository
	userRepo   repository.UserRepository
	logger     *zap.Logger
}

func NewDoctorService(doctorRepo repository.DoctorRepository, userRepo repository.UserRepository, logger *zap.Logger) *DoctorService {
	return &DoctorService{
		doctorRepo: doctorRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// Create registers a doctor profile and its portal account. The account's
// username is the doctor's CCCD and the phone number is the initial password.
func (s *DoctorService) Create(req *domain.CreateDoctorRequest) (*domain.Doctor, error) {
	if _, err := s.doctorRepo.FindByCCCD(req.CCCD); err == nil {
		return nil, fmt.Errorf("doctor with this CCCD already exists: %w", ErrBadRequest)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := hash.Hash(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to hash initial password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  req.CCCD,
		Password:  hashed,
		Role:      domain.RoleDoctor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create doctor account: %w", err)
	}

	doctor := &domain.Doctor{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		CCCD:           req.CCCD,
		FullName:       req.FullName,
		Email:          req.Email,
		Phone:          req.Phone,
		Birthday:       req.Birthday,
		Address:        req.Address,
		Specialization: req.Specialization,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.doctorRepo.Create(doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}

	s.logger.Info("doctor created", zap.String("doctor_id", doctor.ID))
	return doctor, nil
}

func (s *DoctorService) List() ([]*domain.Doctor, error) {
	return s.doctorRepo.List()
}

func (s *DoctorService) GetByID(id string) (*domain.Doctor, error) {
	doctor, err := s.doctorRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("doctor not found: %w", ErrNotFound)
	}
	return doctor, nil
}

// GetByUserID returns the doctor profile behind a portal account.
func (s *DoctorService) GetByUserID(userID string) (*domain.Doctor, error) {
	doctor, err := s.doctorRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("doctor profile not found: %w", ErrNotFound)
	}
	return doctor, nil
}

func (s *DoctorService) UpdateByID(id string, req *domain.UpdateDoctorRequest) (*domain.Doctor, error) {
	doctor, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.update(doctor, req)
}

func (s *DoctorService) UpdateByUserID(userID string, req *domain.UpdateDoctorRequest) (*domain.Doctor, error) {
	doctor, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.update(doctor, req)
}

func (s *DoctorService) update(doctor *domain.Doctor, req *domain.UpdateDoctorRequest) (*domain.Doctor, error) {
	if req.FullName != "" {
		doctor.FullName = req.FullName
	}
	if req.Email != "" {
		doctor.Email = req.Email
	}
	if req.Phone != "" {
		doctor.Phone = req.Phone
	}
	if req.Birthday != "" {
		doctor.Birthday = req.Birthday
	}
	if req.Address != "" {
		doctor.Address = req.Address
	}
	if req.Specialization != "" {
		doctor.Specialization = req.Specialization
	}
	doctor.UpdatedAt = time.Now()

	if err := s.doctorRepo.Update(doctor); err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}

	s.logger.Info("doctor profile updated", zap.String("doctor_id", doctor.ID))
	return doctor, nil
}

// Delete removes the doctor profile and its portal account.
func (s *DoctorService) Delete(id string) error {
	doctor, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if doctor.UserID != "" {
		if err := s.userRepo.Delete(doctor.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to delete doctor account: %w", err)
		}
	}

	if err := s.doctorRepo.Delete(doctor.ID); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}

	s.logger.Info("doctor deleted", zap.String("doctor_id", doctor.ID))
	return nil
}
