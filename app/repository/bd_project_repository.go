package repository

import (
	"github.com/bioping/bioping/app/models"
	"gorm.io/gorm"
)

// bdProjectRepository implements the BDProjectRepository interface
type bdProjectRepository struct {
	db *gorm.DB
}

// NewBDProjectRepository creates a new BD project repository instance
func NewBDProjectRepository(db *gorm.DB) BDProjectRepository {
	return &bdProjectRepository{db: db}
}

// Create creates a new BD tracker row
func (r *bdProjectRepository) Create(project *models.BDProject) error {
	return r.db.Create(project).Error
}

// GetByID retrieves a row scoped to its owner; other users' rows are
// indistinguishable from missing ones.
func (r *bdProjectRepository) GetByID(id, userID uint) (*models.BDProject, error) {
	var project models.BDProject
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByUser returns one page of a user's tracker rows plus the total count.
func (r *bdProjectRepository) ListByUser(userID uint, offset, limit int) ([]models.BDProject, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var total int64
	if err := r.db.Model(&models.BDProject{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.BDProject
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&projects).Error
	return projects, total, err
}

// CountByUser returns how many tracker rows a user holds
func (r *bdProjectRepository) CountByUser(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.BDProject{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// Update saves changes to a tracker row
func (r *bdProjectRepository) Update(project *models.BDProject) error {
	return r.db.Save(project).Error
}

// Delete soft-deletes a row scoped to its owner
func (r *bdProjectRepository) Delete(id, userID uint) error {
	tx := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.BDProject{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
