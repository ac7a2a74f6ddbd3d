package models

import (
	"time"
)

// MerchantStock is a parent merchant's sellable bundle inventory for one
// denomination. AvailableBundles decrements when a sub-merchant purchases.
type MerchantStock struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	MerchantID       uint      `gorm:"index:idx_stock_merchant_denom,unique;not null" json:"merchant_id"`
	Denomination     int64     `gorm:"index:idx_stock_merchant_denom,unique;not null" json:"denomination"`
	AvailableBundles int       `gorm:"not null;default:0" json:"available_bundles"`
	PricePerBundle   Money     `gorm:"type:decimal(20,2);not null" json:"price_per_bundle"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"index" json:"updated_at"`
}

// TableName sets the table name
func (MerchantStock) TableName() string {
	return "merchant_stocks"
}
