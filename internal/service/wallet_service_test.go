package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"

	"github.com/shopspring/decimal"
)

func TestWalletFundAndBalance(t *testing.T) {
	env := setupTestEnv(t, "wallet_fund")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL1")

	txn, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(2500), "TOPUP-1", "bank transfer")
	if err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if txn.Type != constants.WalletTxnTypeFunding {
		t.Fatalf("txn type = %q, want funding", txn.Type)
	}
	if txn.Amount.String() != "2500.00" {
		t.Fatalf("amount = %s, want 2500.00", txn.Amount)
	}

	account, err := env.walletSvc.Balance(ctx, merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if account.Balance.String() != "2500.00" {
		t.Fatalf("balance = %s, want 2500.00", account.Balance)
	}
	if account.Currency != "XAF" {
		t.Fatalf("currency = %q, want XAF", account.Currency)
	}
}

func TestWalletFundIdempotentByReference(t *testing.T) {
	env := setupTestEnv(t, "wallet_fund_idem")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL2")

	first, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(1000), "TOPUP-1", "")
	if err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	second, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(1000), "TOPUP-1", "")
	if err != nil {
		t.Fatalf("retried fund failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("retry created a second ledger entry: %d vs %d", first.ID, second.ID)
	}

	account, _ := env.walletSvc.Balance(ctx, merchant.ID)
	if account.Balance.String() != "1000.00" {
		t.Fatalf("balance = %s, want 1000.00 after duplicate reference", account.Balance)
	}

	var count int64
	env.db.Model(&models.WalletTransaction{}).Count(&count)
	if count != 1 {
		t.Fatalf("ledger entries = %d, want 1", count)
	}
}

func TestWalletFundValidation(t *testing.T) {
	env := setupTestEnv(t, "wallet_fund_validation")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL3")

	if _, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(-5), "TOPUP-1", ""); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("err = %v, want ErrWalletInvalidAmount for negative", err)
	}
	if _, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.Zero, "TOPUP-1", ""); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("err = %v, want ErrWalletInvalidAmount for zero", err)
	}
	if _, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(5), "  ", ""); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("err = %v, want ErrWalletInvalidAmount for blank reference", err)
	}
}

func TestWalletHistory(t *testing.T) {
	env := setupTestEnv(t, "wallet_history")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL4")

	for i, amount := range []int64{100, 200, 300} {
		reference := []string{"A", "B", "C"}[i]
		if _, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(amount), "TOPUP-"+reference, ""); err != nil {
			t.Fatalf("fund failed: %v", err)
		}
	}

	txns, total, err := env.walletSvc.History(ctx, merchant.ID, 1, 2, "")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(txns) != 2 {
		t.Fatalf("page size = %d, want 2", len(txns))
	}
	// newest first
	if txns[0].Amount.String() != "300.00" {
		t.Fatalf("first entry = %s, want newest 300.00", txns[0].Amount)
	}

	if _, _, err := env.walletSvc.History(ctx, 9999, 1, 10, ""); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestWalletBalanceConservation(t *testing.T) {
	env := setupTestEnv(t, "wallet_conservation")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL5")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	if _, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  2,
	}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := env.walletSvc.Fund(ctx, merchant.ID, decimal.NewFromInt(1234), "FUND-2", ""); err != nil {
		t.Fatalf("fund failed: %v", err)
	}

	result, err := env.walletSvc.Reconcile(ctx, merchant.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.Drift.IsZero() {
		t.Fatalf("drift = %s, want 0 (balance %s vs ledger %s)", result.Drift, result.Balance, result.LedgerSum)
	}
	// 100000 − 5000 + 1234
	if result.Balance.StringFixed(2) != "96234.00" {
		t.Fatalf("balance = %s, want 96234.00", result.Balance.StringFixed(2))
	}
}

func TestWalletReconcileDetectsDrift(t *testing.T) {
	env := setupTestEnv(t, "wallet_drift")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "WAL6")
	fundTestWallet(t, env, merchant.ID, 5000, "FUND-1")

	// corrupt the projection directly; reconcile must notice
	if err := env.db.Model(&models.WalletAccount{}).
		Where("merchant_id = ?", merchant.ID).
		Update("balance", "4000").Error; err != nil {
		t.Fatalf("tamper balance failed: %v", err)
	}

	result, err := env.walletSvc.Reconcile(ctx, merchant.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Drift.StringFixed(2) != "-1000.00" {
		t.Fatalf("drift = %s, want -1000.00", result.Drift.StringFixed(2))
	}
}
