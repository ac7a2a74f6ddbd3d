package models

import (
	"time"
)

// WalletAccount holds the cached balance projection for a merchant wallet.
// The authoritative balance is the sum of all WalletTransaction amounts;
// Balance must always reconcile to that sum.
type WalletAccount struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	MerchantID uint      `gorm:"uniqueIndex;not null" json:"merchant_id"`
	Balance    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	Currency   string    `gorm:"type:varchar(16);not null;default:'XAF'" json:"currency"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`
}

// TableName sets the table name
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}
