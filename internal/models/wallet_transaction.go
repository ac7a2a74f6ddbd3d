package models

import (
	"time"
)

// WalletTransaction is one append-only ledger entry. Amount is signed:
// positive for funding/stock_sale, negative for voucher_generation and
// stock_purchase. Rows are never updated or deleted.
type WalletTransaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	WalletID    uint      `gorm:"index;not null" json:"wallet_id"`
	Type        string    `gorm:"type:varchar(32);index;not null" json:"type"`
	Amount      Money     `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency    string    `gorm:"type:varchar(16);not null" json:"currency"`
	Reference   string    `gorm:"type:varchar(96);uniqueIndex;not null" json:"reference"`
	BatchID     *uint     `gorm:"index" json:"batch_id,omitempty"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
