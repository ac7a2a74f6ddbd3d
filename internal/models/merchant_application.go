package models

import (
	"time"
)

// MerchantApplication tracks a merchant's request to become affiliated with
// a parent merchant. Acceptance and rejection are terminal; acceptance does
// not itself transfer any stock.
type MerchantApplication struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	ApplicantID uint       `gorm:"index;not null" json:"applicant_id"`
	ParentID    uint       `gorm:"index;not null" json:"parent_id"`
	Fee         Money      `gorm:"type:decimal(20,2);not null" json:"fee"`
	Status      string     `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	DecidedAt   *time.Time `gorm:"index" json:"decided_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`

	Applicant *Merchant `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	Parent    *Merchant `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// TableName sets the table name
func (MerchantApplication) TableName() string {
	return "merchant_applications"
}
