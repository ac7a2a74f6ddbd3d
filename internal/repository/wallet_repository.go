package repository

import (
	"context"
	"errors"

	"github.com/mobi-voucher/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository persists wallet accounts and their append-only ledger.
type WalletRepository interface {
	GetAccountByMerchantID(ctx context.Context, merchantID uint) (*models.WalletAccount, error)
	GetAccountByMerchantIDForUpdate(ctx context.Context, merchantID uint) (*models.WalletAccount, error)
	CreateAccount(ctx context.Context, account *models.WalletAccount) error
	ListAccounts(ctx context.Context) ([]models.WalletAccount, error)
	UpdateAccount(ctx context.Context, account *models.WalletAccount) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	GetTransactionByReference(ctx context.Context, walletID uint, reference string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error)
	SumTransactions(ctx context.Context, walletID uint) (decimal.Decimal, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WalletRepository
}

type GormWalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &GormWalletRepository{db: db}
}

func (r *GormWalletRepository) WithTx(tx *gorm.DB) WalletRepository {
	return &GormWalletRepository{db: tx}
}

func (r *GormWalletRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *GormWalletRepository) GetAccountByMerchantID(ctx context.Context, merchantID uint) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByMerchantIDForUpdate locks the account row so concurrent
// debits see a serialized balance.
func (r *GormWalletRepository) GetAccountByMerchantIDForUpdate(ctx context.Context, merchantID uint) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ?", merchantID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *GormWalletRepository) CreateAccount(ctx context.Context, account *models.WalletAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *GormWalletRepository) ListAccounts(ctx context.Context) ([]models.WalletAccount, error) {
	var accounts []models.WalletAccount
	err := r.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

func (r *GormWalletRepository) UpdateAccount(ctx context.Context, account *models.WalletAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *GormWalletRepository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *GormWalletRepository) GetTransactionByReference(ctx context.Context, walletID uint, reference string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND reference = ?", walletID, reference).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *GormWalletRepository) ListTransactions(ctx context.Context, filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WalletTransaction{})

	if filter.WalletID > 0 {
		query = query.Where("wallet_id = ?", filter.WalletID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.WalletTransaction
	err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumTransactions totals a wallet's ledger entries. The result must equal
// the account's stored balance; reconciliation checks the two against each
// other.
func (r *GormWalletRepository) SumTransactions(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("wallet_id = ?", walletID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
