package repository

import (
	"strings"

	"github.com/bioping/bioping/app/models"
	"gorm.io/gorm"
)

// contactRepository implements the ContactRepository interface
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// GetByID retrieves a contact by its ID
func (r *contactRepository) GetByID(id uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.First(&contact, id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Search applies the filter and returns one page of contacts plus the total
// match count.
func (r *contactRepository) Search(filter ContactFilter) ([]models.Contact, int64, error) {
	q := r.db.Model(&models.Contact{})

	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + term + "%"
		q = q.Where("company_name LIKE ? OR contact_name LIKE ?", like, like)
	}
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	if filter.TierLevel != "" {
		q = q.Where("tier_level = ?", filter.TierLevel)
	}
	if filter.DiseaseArea != "" {
		q = q.Where("disease_area = ?", filter.DiseaseArea)
	}
	if filter.DevelopmentStage != "" {
		q = q.Where("development_stage = ?", filter.DevelopmentStage)
	}
	if filter.Modality != "" {
		q = q.Where("modality = ?", filter.Modality)
	}
	if filter.ContactFunction != "" {
		q = q.Where("contact_function = ?", filter.ContactFunction)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var contacts []models.Contact
	err := q.Order("company_name ASC, contact_name ASC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&contacts).Error
	return contacts, total, err
}

// ReplaceBatch atomically swaps the dataset to the freshly imported batch.
func (r *contactRepository) ReplaceBatch(batchID string, contacts []models.Contact) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range contacts {
			contacts[i].ImportBatchID = batchID
		}
		if len(contacts) > 0 {
			if err := tx.CreateInBatches(contacts, 500).Error; err != nil {
				return err
			}
		}
		return tx.Where("import_batch_id <> ?", batchID).Delete(&models.Contact{}).Error
	})
}

// Count returns the total number of contacts
func (r *contactRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Contact{}).Count(&count).Error
	return count, err
}
