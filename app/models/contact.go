package models

import "time"

// Contact is one curated biotech/pharma business-development contact. Rows are
// ingested in batches from admin Excel uploads; ImportBatchID groups the rows
// of one upload so a batch can be replaced atomically.
type Contact struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CompanyName      string    `gorm:"type:varchar(200);not null;index" json:"company_name"`
	ContactName      string    `gorm:"type:varchar(150);not null" json:"contact_name"`
	ContactTitle     string    `gorm:"type:varchar(150)" json:"contact_title"`
	ContactFunction  string    `gorm:"type:varchar(100);index" json:"contact_function"`
	Email            string    `gorm:"type:varchar(200)" json:"-"`
	Region           string    `gorm:"type:varchar(100);index" json:"region"`
	TierLevel        string    `gorm:"type:varchar(50);index" json:"tier_level"`
	DiseaseArea      string    `gorm:"type:varchar(150);index" json:"disease_area"`
	DevelopmentStage string    `gorm:"type:varchar(100);index" json:"development_stage"`
	Modality         string    `gorm:"type:varchar(100);index" json:"modality"`
	Website          string    `gorm:"type:varchar(255)" json:"website"`
	RevealCount      int64     `gorm:"not null;default:0" json:"-"`
	SearchHitCount   int64     `gorm:"not null;default:0" json:"-"`
	ImportBatchID    string    `gorm:"type:varchar(36);not null;index" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Revealed returns the contact including the email address. The plain Contact
// JSON hides the email so search results cost nothing; revealing costs one
// credit and goes through this shape.
type RevealedContact struct {
	Contact
	Email string `json:"email"`
}

func (c Contact) Reveal() RevealedContact {
	return RevealedContact{Contact: c, Email: c.Email}
}
