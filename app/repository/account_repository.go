package repository

import (
	"strings"
	"time"

	"github.com/bioping/bioping/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.Create(user).Error
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves an account by email. Emails are stored lowercase, so
// the lookup is case-insensitive.
func (r *accountRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByStripeCustomerID resolves a Stripe customer reference to an account.
func (r *accountRepository) GetByStripeCustomerID(customerRef string) (*models.User, error) {
	trimmed := strings.TrimSpace(customerRef)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", trimmed).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves the account unconditionally.
func (r *accountRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// CompareAndSwap writes the account only when the stored version still equals
// the version the caller read. The guarded UPDATE is what serializes a
// webhook apply racing a scheduler sweep on the same account.
func (r *accountRepository) CompareAndSwap(user *models.User) (bool, error) {
	expected := user.Version
	user.Version = expected + 1
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, expected).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(user)
	if tx.Error != nil {
		user.Version = expected
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		user.Version = expected
		return false, nil
	}
	return true, nil
}

// ListDueForRenewal returns recurring, non-suspended accounts due at or
// before now, oldest first.
func (r *accountRepository) ListDueForRenewal(now time.Time, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []models.User
	err := r.db.
		Where("plan IN ?", []string{models.PlanBasic, models.PlanPremium, models.PlanTest}).
		Where("next_renewal_at IS NOT NULL AND next_renewal_at <= ?", now).
		Where("suspended_until IS NULL OR suspended_until <= ?", now).
		Order("next_renewal_at ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ListDueWithin returns recurring accounts renewing inside (now, now+window].
func (r *accountRepository) ListDueWithin(now time.Time, window time.Duration) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("plan IN ?", []string{models.PlanBasic, models.PlanPremium, models.PlanTest}).
		Where("next_renewal_at > ? AND next_renewal_at <= ?", now, now.Add(window)).
		Order("next_renewal_at ASC").
		Find(&users).Error
	return users, err
}

// Count returns the total number of accounts
func (r *accountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
