package repository

import (
	"context"
	"fmt"
	"time"

	"medwatch-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type PatientRepository interface {
	Create(patient *domain.Patient) error
	FindByID(id string) (*domain.Patient, error)
	FindByCCCD(cccd string) (*domain.Patient, error)
	FindByDeviceID(deviceID string) (*domain.Patient, error)
	ListByDoctor(doctorUserID string) ([]*domain.Patient, error)
	Update(patient *domain.Patient) error
	UpdateDeviceID(id, deviceID string) error
	Delete(id string) error
}

type patientRepository struct {
	client *kivik.Client
	dbName string
}

func NewPatientRepository(client *kivik.Client, dbName string) PatientRepository {
	return &patientRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *patientRepository) Create(patient *domain.Patient) error {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("patient:%s", patient.ID)
	_, err := db.Put(context.Background(), docID, patient)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	return nil
}

func (r *patientRepository) FindByID(id string) (*domain.Patient, error) {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("patient:%s", id)
	row := db.Get(context.Background(), docID)

	var patient domain.Patient
	if err := row.ScanDoc(&patient); err != nil {
		return nil, fmt.Errorf("failed to find patient: %w", translateErr(err))
	}

	return &patient, nil
}

func (r *patientRepository) FindByCCCD(cccd string) (*domain.Patient, error) {
	return r.findOne(map[string]interface{}{
		"cccd": cccd,
		"room": map[string]interface{}{"$exists": true},
	})
}

func (r *patientRepository) FindByDeviceID(deviceID string) (*domain.Patient, error) {
	return r.findOne(map[string]interface{}{
		"device_id": deviceID,
		"room":      map[string]interface{}{"$exists": true},
	})
}

func (r *patientRepository) findOne(selector map[string]interface{}) (*domain.Patient, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": selector,
		"limit":    1,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find patient: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("patient: %w", ErrNotFound)
	}

	var patient domain.Patient
	if err := rows.ScanDoc(&patient); err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}

	return &patient, nil
}

func (r *patientRepository) ListByDoctor(doctorUserID string) ([]*domain.Patient, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doctor_id": doctorUserID,
			"room":      map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		var patient domain.Patient
		if err := rows.ScanDoc(&patient); err != nil {
			continue // Skip malformed docs
		}
		patients = append(patients, &patient)
	}

	return patients, nil
}

func (r *patientRepository) Update(patient *domain.Patient) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("patient:%s", patient.ID)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	rawDoc["full_name"] = patient.FullName
	rawDoc["birthday"] = patient.Birthday
	rawDoc["address"] = patient.Address
	rawDoc["phone"] = patient.Phone
	rawDoc["room"] = patient.Room
	rawDoc["updated_at"] = time.Now()

	_, err := db.Put(context.Background(), docID, rawDoc)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	return nil
}

// UpdateDeviceID caches (or, with an empty deviceID, clears) the ThingsBoard
// device bound to the patient.
func (r *patientRepository) UpdateDeviceID(id, deviceID string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("patient:%s", id)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	if deviceID == "" {
		delete(rawDoc, "device_id")
	} else {
		rawDoc["device_id"] = deviceID
	}
	rawDoc["updated_at"] = time.Now()

	_, err := db.Put(context.Background(), docID, rawDoc)
	if err != nil {
		return fmt.Errorf("failed to update patient device id: %w", err)
	}

	return nil
}

func (r *patientRepository) Delete(id string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("patient:%s", id)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	rev, _ := rawDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	return nil
}
