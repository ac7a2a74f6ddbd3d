package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService owns the merchant wallet ledger. The ledger is append-only;
// the account's Balance column is a projection of the sum of its entries
// and every mutation updates both inside one transaction.
type WalletService struct {
	walletRepo repository.WalletRepository
	currency   string
}

func NewWalletService(walletRepo repository.WalletRepository, currency string) *WalletService {
	if currency == "" {
		currency = constants.WalletCurrencyDefault
	}
	return &WalletService{walletRepo: walletRepo, currency: currency}
}

// EnsureAccount returns the merchant's wallet account, creating an empty
// one on first use.
func (s *WalletService) EnsureAccount(ctx context.Context, merchantID uint) (*models.WalletAccount, error) {
	account, err := s.walletRepo.GetAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		MerchantID: merchantID,
		Currency:   s.currency,
	}
	if err := s.walletRepo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Fund credits the wallet. Reference makes the operation idempotent: a
// reference seen before returns the recorded transaction instead of
// crediting twice.
func (s *WalletService) Fund(ctx context.Context, merchantID uint, amount decimal.Decimal, reference, description string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrWalletInvalidAmount)
	}

	account, err := s.EnsureAccount(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	var result *models.WalletTransaction
	err = s.walletRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.walletRepo.WithTx(tx)

		locked, err := repo.GetAccountByMerchantIDForUpdate(ctx, merchantID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWalletNotFound
		}

		existing, err := repo.GetTransactionByReference(ctx, locked.ID, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		txn := &models.WalletTransaction{
			WalletID:    locked.ID,
			Type:        constants.WalletTxnTypeFunding,
			Amount:      models.NewMoneyFromDecimal(amount),
			Currency:    locked.Currency,
			Reference:   reference,
			Description: description,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		locked.Balance = models.NewMoneyFromDecimal(locked.Balance.Decimal.Add(amount))
		if err := repo.UpdateAccount(ctx, locked); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("wallet_funded",
		"merchant_id", merchantID,
		"wallet_id", account.ID,
		"amount", amount.StringFixed(2),
		"reference", reference,
	)
	return result, nil
}

// DebitInTx appends a negative ledger entry and updates the projected
// balance, within the caller's transaction. The wallet row must already be
// locked by the caller. Balance is checked before the entry is written; a
// generation entry must never push the wallet negative.
func (s *WalletService) DebitInTx(ctx context.Context, tx *gorm.DB, account *models.WalletAccount, amount decimal.Decimal, txnType, reference, description string, batchID *uint) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	if account.Balance.Decimal.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}
	repo := s.walletRepo.WithTx(tx)

	txn := &models.WalletTransaction{
		WalletID:    account.ID,
		Type:        txnType,
		Amount:      models.NewMoneyFromDecimal(amount.Neg()),
		Currency:    account.Currency,
		Reference:   reference,
		BatchID:     batchID,
		Description: description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	account.Balance = models.NewMoneyFromDecimal(account.Balance.Decimal.Sub(amount))
	if err := repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditInTx appends a positive ledger entry within the caller's
// transaction. The wallet row must already be locked by the caller.
func (s *WalletService) CreditInTx(ctx context.Context, tx *gorm.DB, account *models.WalletAccount, amount decimal.Decimal, txnType, reference, description string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	repo := s.walletRepo.WithTx(tx)

	txn := &models.WalletTransaction{
		WalletID:    account.ID,
		Type:        txnType,
		Amount:      models.NewMoneyFromDecimal(amount),
		Currency:    account.Currency,
		Reference:   reference,
		Description: description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	account.Balance = models.NewMoneyFromDecimal(account.Balance.Decimal.Add(amount))
	if err := repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return txn, nil
}

// Balance returns the projected balance for a merchant wallet.
func (s *WalletService) Balance(ctx context.Context, merchantID uint) (*models.WalletAccount, error) {
	account, err := s.walletRepo.GetAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrWalletNotFound
	}
	return account, nil
}

// History pages the wallet's ledger entries, newest first.
func (s *WalletService) History(ctx context.Context, merchantID uint, page, pageSize int, txnType string) ([]models.WalletTransaction, int64, error) {
	account, err := s.walletRepo.GetAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, 0, err
	}
	if account == nil {
		return nil, 0, ErrWalletNotFound
	}
	return s.walletRepo.ListTransactions(ctx, repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		WalletID: account.ID,
		Type:     txnType,
	})
}

// ReconcileResult reports a single wallet's projected balance against the
// ledger sum.
type ReconcileResult struct {
	WalletID  uint            `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Drift     decimal.Decimal `json:"drift"`
}

// ReconcileAll audits every wallet and returns the accounts whose
// projection drifted from the ledger sum.
func (s *WalletService) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	accounts, err := s.walletRepo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []ReconcileResult
	for _, account := range accounts {
		sum, err := s.walletRepo.SumTransactions(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		drift := account.Balance.Decimal.Sub(sum)
		if drift.IsZero() {
			continue
		}
		logger.Errorw("wallet_ledger_drift",
			"wallet_id", account.ID,
			"balance", account.Balance.String(),
			"ledger_sum", sum.StringFixed(2),
			"drift", drift.StringFixed(2),
		)
		drifted = append(drifted, ReconcileResult{
			WalletID:  account.ID,
			Balance:   account.Balance.Decimal,
			LedgerSum: sum,
			Drift:     drift,
		})
	}
	return drifted, nil
}

// Reconcile recomputes Σ amount for the merchant's ledger and compares it
// against the projected balance. Drift is reported, never auto-corrected.
func (s *WalletService) Reconcile(ctx context.Context, merchantID uint) (*ReconcileResult, error) {
	account, err := s.walletRepo.GetAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrWalletNotFound
	}
	sum, err := s.walletRepo.SumTransactions(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	result := &ReconcileResult{
		WalletID:  account.ID,
		Balance:   account.Balance.Decimal,
		LedgerSum: sum,
		Drift:     account.Balance.Decimal.Sub(sum),
	}
	if !result.Drift.IsZero() {
		logger.Errorw("wallet_ledger_drift",
			"wallet_id", account.ID,
			"balance", result.Balance.StringFixed(2),
			"ledger_sum", result.LedgerSum.StringFixed(2),
			"drift", result.Drift.StringFixed(2),
		)
	}
	return result, nil
}
