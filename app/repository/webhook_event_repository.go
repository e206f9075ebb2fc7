package repository

import (
	"time"

	"github.com/bioping/bioping/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, appliedDeltaJSON string, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":       &now,
		"applied_delta_json": appliedDeltaJSON,
		"processing_error":   processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteOlderThan prunes processed audit rows past the retention horizon.
func (r *webhookEventRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	tx := r.db.Where("created_at < ? AND processed_at IS NOT NULL", cutoff).
		Delete(&models.WebhookEvent{})
	return tx.RowsAffected, tx.Error
}
