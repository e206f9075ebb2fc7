package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	STATUS_ACTIVE    = "active"
	STATUS_INACTIVE  = "inactive"
	STATUS_SUSPENDED = "suspended"
)

// Plan identifiers. PlanPending marks an account whose subscription exists at
// the provider but whose first payment has not been confirmed yet.
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
	PlanTest    = "test"
	PlanPending = "pending"
)

// User is the billing/credit record plus identity for a BioPing account.
// Credits are consumable units spent when contact details are revealed; they
// are only ever granted by the billing reconciler after a confirmed payment.
type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Name                 string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email                string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password             string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                 string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status               string         `gorm:"type:varchar(50);default:'inactive'" json:"status" validate:"oneof=active inactive suspended"`
	Company              string         `gorm:"type:varchar(200);default:null" json:"company" validate:"max=200"`
	Plan                 string         `gorm:"type:varchar(50);default:'free';index" json:"plan"`
	Credits              int            `gorm:"not null;default:0" json:"credits"`
	PaymentCompleted     bool           `gorm:"default:false" json:"payment_completed"`
	StripeCustomerID     string         `gorm:"type:varchar(191);default:'';index" json:"-"`
	StripeSubscriptionID string         `gorm:"type:varchar(191);default:''" json:"-"`
	LastRenewalAt        *time.Time     `gorm:"type:timestamp;default:null" json:"last_renewal_at"`
	NextRenewalAt        *time.Time     `gorm:"type:timestamp;default:null;index" json:"next_renewal_at"`
	SuspendedUntil       *time.Time     `gorm:"type:timestamp;default:null" json:"suspended_until,omitempty"`
	PaymentFailures      int            `gorm:"not null;default:0" json:"-"`
	Version              uint           `gorm:"not null;default:0" json:"-"`
	VerificationCodeSent *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt          *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds an inactive user with trial credits. Emails are stored
// lowercase so lookups are case-insensitive.
func CreateUser(name, email, password string, trialCredits int) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    NormalizeEmail(email),
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_INACTIVE,
		Plan:     PlanFree,
		Credits:  trialCredits,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsSuspended reports whether a suspension window is in effect.
func (u *User) IsSuspended(now time.Time) bool {
	return u.SuspendedUntil != nil && now.Before(*u.SuspendedUntil)
}

// HasRecurringPlan reports whether the plan renews and should be swept for
// off-session charges.
func (u *User) HasRecurringPlan() bool {
	switch u.Plan {
	case PlanBasic, PlanPremium, PlanTest:
		return true
	default:
		return false
	}
}

// ConsumeCredit decrements the balance by one. The balance never goes
// negative; callers get false when the account is out of credits.
func (u *User) ConsumeCredit() bool {
	if u.Credits <= 0 {
		return false
	}
	u.Credits--
	return true
}

// GenerateVerificationCode returns a random hex code for signup email
// verification and stamps the send time on the user.
func (u *User) GenerateVerificationCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := time.Now()
	u.VerificationCodeSent = &now
	return hex.EncodeToString(b), nil
}
