package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherBatch is the unit of generation and accounting. A batch is created
// atomically together with its bundles, cards and the ledger debit that pays
// for it.
type VoucherBatch struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	MerchantID      uint            `gorm:"index;not null" json:"merchant_id"`
	BatchNumber     string          `gorm:"type:varchar(48);uniqueIndex;not null" json:"batch_number"`
	Denomination    int64           `gorm:"index;not null" json:"denomination"`
	BundleCount     int             `gorm:"not null" json:"bundle_count"`
	TotalCards      int             `gorm:"not null" json:"total_cards"`
	Status          string          `gorm:"type:varchar(16);index;not null;default:'active'" json:"status"`
	TotalCost       Money           `gorm:"type:decimal(20,2);not null" json:"total_cost"`
	DiscountApplied bool            `gorm:"not null;default:false" json:"discount_applied"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	GenerationType  string          `gorm:"type:varchar(16);index;not null;default:'new'" json:"generation_type"`
	ReplacedBatchID *uint           `gorm:"index" json:"replaced_batch_id,omitempty"`
	ClientRequestID *string         `gorm:"type:varchar(64);uniqueIndex" json:"client_request_id,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"index" json:"updated_at"`

	Bundles []VoucherBundle `gorm:"foreignKey:BatchID;constraint:OnUpdate:CASCADE" json:"bundles,omitempty"`
}

// TableName sets the table name
func (VoucherBatch) TableName() string {
	return "voucher_batches"
}
