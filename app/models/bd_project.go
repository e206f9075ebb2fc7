package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// BD Tracker stages roughly follow a business-development funnel.
const (
	BDStageIdentified = "identified"
	BDStageContacted  = "contacted"
	BDStageMeeting    = "meeting"
	BDStageDiligence  = "diligence"
	BDStageTermSheet  = "term_sheet"
	BDStageClosed     = "closed"
	BDStageDead       = "dead"
)

// BDProject is one row in a user's BD Tracker: a company/contact the user is
// pursuing, with pipeline stage and follow-up date.
type BDProject struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	CompanyName  string         `gorm:"type:varchar(200);not null" json:"company_name" validate:"required,max=200"`
	ContactName  string         `gorm:"type:varchar(150)" json:"contact_name" validate:"max=150"`
	ContactEmail string         `gorm:"type:varchar(200)" json:"contact_email" validate:"omitempty,email,max=200"`
	Stage        string         `gorm:"type:varchar(50);not null;default:'identified';index" json:"stage" validate:"oneof=identified contacted meeting diligence term_sheet closed dead"`
	Notes        string         `gorm:"type:text" json:"notes" validate:"max=5000"`
	NextFollowUp *time.Time     `gorm:"type:timestamp;default:null" json:"next_follow_up,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *BDProject) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
