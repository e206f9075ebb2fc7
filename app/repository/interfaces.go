package repository

import (
	"time"

	"github.com/bioping/bioping/app/models"
	"gorm.io/gorm"
)

// AccountRepository is the ledger store: durable account state keyed by id,
// email (case-insensitive) or Stripe customer reference. Billing fields are
// only written by the reconciler; everything else reads.
type AccountRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerRef string) (*models.User, error)
	Update(user *models.User) error
	// CompareAndSwap persists the user only if no concurrent writer has
	// bumped the version since it was read. Returns false on a lost race.
	CompareAndSwap(user *models.User) (bool, error)
	// ListDueForRenewal returns recurring, non-suspended accounts whose
	// next renewal is at or before now.
	ListDueForRenewal(now time.Time, limit int) ([]models.User, error)
	// ListDueWithin returns recurring accounts whose renewal falls inside
	// (now, now+window], used for payment reminder mails.
	ListDueWithin(now time.Time, window time.Duration) ([]models.User, error)
	Count() (int64, error)
}

// WebhookEventRepository persists provider webhook deliveries for dedup and
// audit.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless its (provider, event id)
	// pair already exists. Returns created=false with the stored row for
	// duplicates.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, appliedDeltaJSON string, processingError string) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// ContactFilter narrows a contact search. Empty fields are ignored; Query
// matches company and contact name.
type ContactFilter struct {
	Query            string
	Region           string
	TierLevel        string
	DiseaseArea      string
	DevelopmentStage string
	Modality         string
	ContactFunction  string
	Offset           int
	Limit            int
}

// ContactRepository stores the curated contact dataset.
type ContactRepository interface {
	GetByID(id uint) (*models.Contact, error)
	Search(filter ContactFilter) ([]models.Contact, int64, error)
	// ReplaceBatch inserts a freshly imported batch and removes rows from
	// all earlier batches in one transaction.
	ReplaceBatch(batchID string, contacts []models.Contact) error
	Count() (int64, error)
}

// BDProjectRepository stores per-user BD Tracker rows.
type BDProjectRepository interface {
	Create(project *models.BDProject) error
	GetByID(id, userID uint) (*models.BDProject, error)
	ListByUser(userID uint, offset, limit int) ([]models.BDProject, int64, error)
	CountByUser(userID uint) (int64, error)
	Update(project *models.BDProject) error
	Delete(id, userID uint) error
}

// Repositories holds all repository instances
type Repositories struct {
	Account      AccountRepository
	WebhookEvent WebhookEventRepository
	Contact      ContactRepository
	BDProject    BDProjectRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:      NewAccountRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Contact:      NewContactRepository(db),
		BDProject:    NewBDProjectRepository(db),
	}
}
