package models

import (
	"time"
)

// VoucherCard is the redeemable unit. Cards are created only as part of a
// batch and are never deleted; invalidation is a status, not removal.
type VoucherCard struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	BatchID            uint       `gorm:"index;not null" json:"batch_id"`
	BundleID           uint       `gorm:"index;not null" json:"bundle_id"`
	BundleSerialPrefix string     `gorm:"type:varchar(48);index;not null" json:"bundle_serial_prefix"`
	SerialNumber       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"serial_number"`
	PIN                string     `gorm:"type:varchar(32);not null" json:"-"`
	Denomination       int64      `gorm:"index;not null" json:"denomination"`
	Status             string     `gorm:"type:varchar(24);index;not null;default:'available'" json:"status"`
	SoldVia            *string    `gorm:"type:varchar(16)" json:"sold_via,omitempty"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"index" json:"updated_at"`
	SoldAt             *time.Time `gorm:"index" json:"sold_at,omitempty"`
	UsedAt             *time.Time `gorm:"index" json:"used_at,omitempty"`
	InvalidatedAt      *time.Time `gorm:"index" json:"invalidated_at,omitempty"`

	Bundle *VoucherBundle `gorm:"foreignKey:BundleID" json:"bundle,omitempty"`
}

// TableName sets the table name
func (VoucherCard) TableName() string {
	return "voucher_cards"
}
