package repository

// BatchListFilter narrows and pages batch registry queries.
type BatchListFilter struct {
	Page           int
	PageSize       int
	MerchantID     uint
	BatchNumber    string
	Denomination   int64
	Status         string
	GenerationType string
	OrderBy        string
}

// CardListFilter narrows and pages card queries within a batch.
type CardListFilter struct {
	Page     int
	PageSize int
	BatchID  uint
	BundleID uint
	Status   string
}

// WalletTransactionListFilter pages a wallet's ledger history.
type WalletTransactionListFilter struct {
	Page     int
	PageSize int
	WalletID uint
	Type     string
}

// ApplicationListFilter pages sub-merchant applications from either side.
type ApplicationListFilter struct {
	Page        int
	PageSize    int
	ApplicantID uint
	ParentID    uint
	Status      string
}
