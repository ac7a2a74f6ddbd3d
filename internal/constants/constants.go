package constants

// Voucher card status constants
const (
	CardStatusAvailable   = "available"
	CardStatusSoldUnused  = "sold_unused"
	CardStatusUsed        = "used"
	CardStatusInvalidated = "invalidated"
)

// Card sale channel constants
const (
	SoldViaPhysical = "physical"
	SoldViaOnline   = "online"
)

// Batch status constants
const (
	BatchStatusActive   = "active"
	BatchStatusInactive = "inactive"
)

// Batch generation type constants
const (
	GenerationTypeNew         = "new"
	GenerationTypeReplacement = "replacement"
)

// Wallet transaction type constants
const (
	WalletTxnTypeFunding           = "funding"
	WalletTxnTypeVoucherGeneration = "voucher_generation"
	WalletTxnTypeStockPurchase     = "stock_purchase"
	WalletTxnTypeStockSale         = "stock_sale"
)

// Merchant status constants
const (
	MerchantStatusActive   = "active"
	MerchantStatusDisabled = "disabled"
)

// Merchant application status constants
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Default wallet currency
const (
	WalletCurrencyDefault = "XAF"
)

// Queue names
const (
	QueueDefault = "default"
)

// Async task type constants
const (
	TaskLedgerReconcile = "voucher:ledger_reconcile"
)
