package repository

import (
	"context"
	"fmt"

	"medwatch-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type DeviceRepository interface {
	Create(binding *domain.DeviceBinding) error
	FindByDeviceID(deviceID string) (*domain.DeviceBinding, error)
	List() ([]*domain.DeviceBinding, error)
	DeleteByDeviceID(deviceID string) error
}

type deviceRepository struct {
	client *kivik.Client
	dbName string
}

func NewDeviceRepository(client *kivik.Client, dbName string) DeviceRepository {
	return &deviceRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *deviceRepository) Create(binding *domain.DeviceBinding) error {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("binding:%s", binding.ID)
	_, err := db.Put(context.Background(), docID, binding)
	if err != nil {
		return fmt.Errorf("failed to create device binding: %w", err)
	}

	return nil
}

func (r *deviceRepository) FindByDeviceID(deviceID string) (*domain.DeviceBinding, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"device_id":    deviceID,
			"patient_cccd": map[string]interface{}{"$exists": true},
		},
		"limit": 1,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find device binding: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("device binding %q: %w", deviceID, ErrNotFound)
	}

	var binding domain.DeviceBinding
	if err := rows.ScanDoc(&binding); err != nil {
		return nil, fmt.Errorf("failed to scan device binding: %w", err)
	}

	return &binding, nil
}

func (r *deviceRepository) List() ([]*domain.DeviceBinding, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"patient_cccd": map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list device bindings: %w", err)
	}
	defer rows.Close()

	var bindings []*domain.DeviceBinding
	for rows.Next() {
		var binding domain.DeviceBinding
		if err := rows.ScanDoc(&binding); err != nil {
			continue // Skip malformed docs
		}
		bindings = append(bindings, &binding)
	}

	return bindings, nil
}

func (r *deviceRepository) DeleteByDeviceID(deviceID string) error {
	binding, err := r.FindByDeviceID(deviceID)
	if err != nil {
		return err
	}

	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("binding:%s", binding.ID)

	var rawDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&rawDoc); err != nil {
		return translateErr(err)
	}

	rev, _ := rawDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete device binding: %w", err)
	}

	return nil
}
