package models

import (
	"time"
)

// VoucherBundle is a fixed-size grouping of cards sharing a serial prefix.
type VoucherBundle struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	BatchID      uint      `gorm:"index;not null" json:"batch_id"`
	SerialPrefix string    `gorm:"type:varchar(48);uniqueIndex;not null" json:"serial_prefix"`
	Denomination int64     `gorm:"index;not null" json:"denomination"`
	CardCount    int       `gorm:"not null" json:"card_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`

	Cards []VoucherCard `gorm:"foreignKey:BundleID;constraint:OnUpdate:CASCADE" json:"cards,omitempty"`
}

// TableName sets the table name
func (VoucherBundle) TableName() string {
	return "voucher_bundles"
}
