package repository

import (
	"context"
	"fmt"
	"time"

	"medwatch-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type DoctorRepository interface {
	Create(doctor *domain.Doctor) error
	FindByID(id string) (*domain.Doctor, error)
	FindByUserID(userID string) (*domain.Doctor, error)
	FindByCCCD(cccd string) (*domain.Doctor, error)
	List() ([]*domain.Doctor, error)
	Update(doctor *domain.Doctor) error
	Delete(id string) error
}

type doctorRepository struct {
	client *kivik.Client
	dbName string
}

func NewDoctorRepository(client *kivik.Client, dbName string) DoctorRepository {
	return &doctorRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *doctorRepository) Create(doctor *domain.Doctor) error {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("doctor:%s", doctor.ID)
	_, err := db.Put(context.Background(), docID, doctor)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}

	return nil
}

func (r *doctorRepository) FindByID(id string) (*domain.Doctor, error) {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("doctor:%s", id)
	row := db.Get(context.Background(), docID)

	var doctor domain.Doctor
	if err := row.ScanDoc(&doctor); err != nil {
		return nil, fmt.Errorf("failed to find doctor: %w", translateErr(err))
	}

	return &doctor, nil
}

func (r *doctorRepository) FindByUserID(userID string) (*domain.Doctor, error) {
	return r.findOne(map[string]interface{}{
		"user_id":        userID,
		"specialization": map[string]interface{}{"$exists": true},
	})
}

func (r *doctorRepository) FindByCCCD(cccd string) (*domain.Doctor, error) {
	return r.findOne(map[string]interface{}{
		"cccd":           cccd,
		"specialization": map[string]interface{}{"$exists": true},
	})
}

func (r *doctorRepository) findOne(selector map[string]interface{}) (*domain.Doctor, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": selector,
		"limit":    1,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("doctor: %w", ErrNotFound)
	}

	var doctor domain.Doctor
	if err := rows.ScanDoc(&doctor); err != nil {
		return nil, fmt.Errorf("failed to scan doctor: %w", err)
	}

	return &doctor, nil
}

func (r *doctorRepository) List() ([]*domain.Doctor, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"specialization": map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*domain.Doctor
	for rows.Next() {
		var doctor domain.Doctor
		if err := rows.ScanDoc(&doctor); err != nil {
			continue // Skip malformed docs
		}
		doctors = append(doctors, &doctor)
	}

	return doctors, nil
}

func (r *doctorRepository) Update(doctor *domain.Doctor) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("doctor:%s", doctor.ID)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	rawDoc["full_name"] = doctor.FullName
	rawDoc["email"] = doctor.Email
	rawDoc["phone"] = doctor.Phone
	rawDoc["birthday"] = doctor.Birthday
	rawDoc["address"] = doctor.Address
	rawDoc["specialization"] = doctor.Specialization
	rawDoc["updated_at"] = time.Now()

	_, err := db.Put(context.Background(), docID, rawDoc)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	return nil
}

func (r *doctorRepository) Delete(id string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("doctor:%s", id)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	rev, _ := rawDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}

	return nil
}
