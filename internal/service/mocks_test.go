package service

import (
	"context"
	"fmt"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/thingsboard"
)

type mockUserRepo struct {
	users map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) FindByID(id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return user, nil
}

func (m *mockUserRepo) FindByUsername(username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

func (m *mockUserRepo) UpdatePassword(id, hashedPassword string) error {
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	user.Password = hashedPassword
	return nil
}

func (m *mockUserRepo) Delete(id string) error {
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

type mockPatientRepo struct {
	patients map[string]*domain.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[string]*domain.Patient)}
}

func (m *mockPatientRepo) Create(patient *domain.Patient) error {
	m.patients[patient.ID] = patient
	return nil
}

func (m *mockPatientRepo) FindByID(id string) (*domain.Patient, error) {
	patient, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient: %w", repository.ErrNotFound)
	}
	return patient, nil
}

func (m *mockPatientRepo) FindByCCCD(cccd string) (*domain.Patient, error) {
	for _, patient := range m.patients {
		if patient.CCCD == cccd {
			return patient, nil
		}
	}
	return nil, fmt.Errorf("patient: %w", repository.ErrNotFound)
}

func (m *mockPatientRepo) FindByDeviceID(deviceID string) (*domain.Patient, error) {
	for _, patient := range m.patients {
		if patient.DeviceID == deviceID {
			return patient, nil
		}
	}
	return nil, fmt.Errorf("patient: %w", repository.ErrNotFound)
}

func (m *mockPatientRepo) ListByDoctor(doctorUserID string) ([]*domain.Patient, error) {
	var patients []*domain.Patient
	for _, patient := range m.patients {
		if patient.DoctorID == doctorUserID {
			patients = append(patients, patient)
		}
	}
	return patients, nil
}

func (m *mockPatientRepo) Update(patient *domain.Patient) error {
	if _, ok := m.patients[patient.ID]; !ok {
		return fmt.Errorf("patient: %w", repository.ErrNotFound)
	}
	m.patients[patient.ID] = patient
	return nil
}

func (m *mockPatientRepo) UpdateDeviceID(id, deviceID string) error {
	patient, ok := m.patients[id]
	if !ok {
		return fmt.Errorf("patient: %w", repository.ErrNotFound)
	}
	patient.DeviceID = deviceID
	return nil
}

func (m *mockPatientRepo) Delete(id string) error {
	if _, ok := m.patients[id]; !ok {
		return fmt.Errorf("patient: %w", repository.ErrNotFound)
	}
	delete(m.patients, id)
	return nil
}

type mockDoctorRepo struct {
	doctors map[string]*domain.Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[string]*domain.Doctor)}
}

func (m *mockDoctorRepo) Create(doctor *domain.Doctor) error {
	m.doctors[doctor.ID] = doctor
	return nil
}

func (m *mockDoctorRepo) FindByID(id string) (*domain.Doctor, error) {
	doctor, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor: %w", repository.ErrNotFound)
	}
	return doctor, nil
}

func (m *mockDoctorRepo) FindByUserID(userID string) (*domain.Doctor, error) {
	for _, doctor := range m.doctors {
		if doctor.UserID == userID {
			return doctor, nil
		}
	}
	return nil, fmt.Errorf("doctor: %w", repository.ErrNotFound)
}

func (m *mockDoctorRepo) FindByCCCD(cccd string) (*domain.Doctor, error) {
	for _, doctor := range m.doctors {
		if doctor.CCCD == cccd {
			return doctor, nil
		}
	}
	return nil, fmt.Errorf("doctor: %w", repository.ErrNotFound)
}

func (m *mockDoctorRepo) List() ([]*domain.Doctor, error) {
	var doctors []*domain.Doctor
	for _, doctor := range m.doctors {
		doctors = append(doctors, doctor)
	}
	return doctors, nil
}

func (m *mockDoctorRepo) Update(doctor *domain.Doctor) error {
	if _, ok := m.doctors[doctor.ID]; !ok {
		return fmt.Errorf("doctor: %w", repository.ErrNotFound)
	}
	m.doctors[doctor.ID] = doctor
	return nil
}

func (m *mockDoctorRepo) Delete(id string) error {
	if _, ok := m.doctors[id]; !ok {
		return fmt.Errorf("doctor: %w", repository.ErrNotFound)
	}
	delete(m.doctors, id)
	return nil
}

type mockDeviceRepo struct {
	bindings map[string]*domain.DeviceBinding
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{bindings: make(map[string]*domain.DeviceBinding)}
}

func (m *mockDeviceRepo) Create(binding *domain.DeviceBinding) error {
	m.bindings[binding.ID] = binding
	return nil
}

func (m *mockDeviceRepo) FindByDeviceID(deviceID string) (*domain.DeviceBinding, error) {
	for _, binding := range m.bindings {
		if binding.DeviceID == deviceID {
			return binding, nil
		}
	}
	return nil, fmt.Errorf("device binding: %w", repository.ErrNotFound)
}

func (m *mockDeviceRepo) List() ([]*domain.DeviceBinding, error) {
	var bindings []*domain.DeviceBinding
	for _, binding := range m.bindings {
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

func (m *mockDeviceRepo) DeleteByDeviceID(deviceID string) error {
	for id, binding := range m.bindings {
		if binding.DeviceID == deviceID {
			delete(m.bindings, id)
			return nil
		}
	}
	return fmt.Errorf("device binding: %w", repository.ErrNotFound)
}

// mockPlatform records platform calls so tests can assert cache hits make no
// network round trips.
type mockPlatform struct {
	loginToken string
	loginErr   error
	loginCalls int

	devices   []thingsboard.Device
	listErr   error
	listCalls int

	attributes map[string][]thingsboard.Attribute
	attrErrs   map[string]error
	attrCalls  int

	tsResult map[string][]thingsboard.TimeseriesValue
	tsErr    error
	tsCalls  int

	deleteErr  error
	deletedIDs []string
}

func (m *mockPlatform) Login(_ context.Context, _ thingsboard.CredentialProfile) (string, error) {
	m.loginCalls++
	if m.loginErr != nil {
		return "", m.loginErr
	}
	if m.loginToken == "" {
		return "platform-token", nil
	}
	return m.loginToken, nil
}

func (m *mockPlatform) ListDevices(_ context.Context, _ string) ([]thingsboard.Device, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.devices, nil
}

func (m *mockPlatform) GetAttributes(_ context.Context, deviceID, _ string, _ []string) ([]thingsboard.Attribute, error) {
	m.attrCalls++
	if err, ok := m.attrErrs[deviceID]; ok {
		return nil, err
	}
	return m.attributes[deviceID], nil
}

func (m *mockPlatform) GetTimeseries(_ context.Context, _, _ string, _ []string) (map[string][]thingsboard.TimeseriesValue, error) {
	m.tsCalls++
	if m.tsErr != nil {
		return nil, m.tsErr
	}
	return m.tsResult, nil
}

func (m *mockPlatform) DeleteDevice(_ context.Context, deviceID, _ string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, deviceID)
	return nil
}

func tbDevice(id, name string) thingsboard.Device {
	return thingsboard.Device{
		ID:   thingsboard.EntityID{EntityType: "DEVICE", ID: id},
		Name: name,
		Type: "monitor",
	}
}
