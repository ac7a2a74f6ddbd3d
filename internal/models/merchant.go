package models

import (
	"time"

	"gorm.io/gorm"
)

// Merchant is an issuer account. Sub-merchants reference their parent via
// ParentID once an application is accepted; Code doubles as the issuer code
// embedded in batch numbers.
type Merchant struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Code         string         `gorm:"type:varchar(16);uniqueIndex;not null" json:"code"`
	Name         string         `gorm:"type:varchar(120);not null" json:"name"`
	Email        string         `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	ParentID     *uint          `gorm:"index" json:"parent_id,omitempty"`
	Status       string         `gorm:"type:varchar(16);index;not null;default:'active'" json:"status"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Merchant) TableName() string {
	return "merchants"
}
