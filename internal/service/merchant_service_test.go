package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"github.com/shopspring/decimal"
)

func TestMerchantRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t, "merchant_register")
	ctx := context.Background()

	merchant, err := env.merchantSvc.Register(ctx, "abc", "ABC Stores", "Owner@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if merchant.Code != "ABC" {
		t.Fatalf("code = %q, want normalized ABC", merchant.Code)
	}
	if merchant.Email != "owner@example.com" {
		t.Fatalf("email = %q, want lowercased", merchant.Email)
	}

	// wallet created alongside
	if _, err := env.walletSvc.Balance(ctx, merchant.ID); err != nil {
		t.Fatalf("wallet missing after register: %v", err)
	}

	token, logged, err := env.merchantSvc.Login(ctx, "owner@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != merchant.ID {
		t.Fatalf("logged in as %d, want %d", logged.ID, merchant.ID)
	}
	claims, err := env.merchantSvc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.MerchantID != merchant.ID {
		t.Fatalf("claims merchant = %d, want %d", claims.MerchantID, merchant.ID)
	}

	if _, _, err := env.merchantSvc.Login(ctx, "owner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	if _, err := env.merchantSvc.Register(ctx, "XYZ", "Other", "owner@example.com", "s3cret-pass"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
	if _, err := env.merchantSvc.Register(ctx, "ABC", "Other", "other@example.com", "s3cret-pass"); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("err = %v, want ErrCodeTaken", err)
	}
}

func TestMerchantApplicationFlow(t *testing.T) {
	env := setupTestEnv(t, "merchant_applications")
	ctx := context.Background()
	parent := createTestMerchant(t, env.db, "PAR1")
	sub := createTestMerchant(t, env.db, "SUB1")

	if _, err := env.merchantSvc.ApplyToParent(ctx, sub.ID, sub.ID, decimal.Zero); !errors.Is(err, ErrSelfApplication) {
		t.Fatalf("err = %v, want ErrSelfApplication", err)
	}

	app, err := env.merchantSvc.ApplyToParent(ctx, sub.ID, parent.ID, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if app.Status != constants.ApplicationStatusPending {
		t.Fatalf("status = %q, want pending", app.Status)
	}

	// only one pending application per pair
	if _, err := env.merchantSvc.ApplyToParent(ctx, sub.ID, parent.ID, decimal.Zero); !errors.Is(err, ErrApplicationPending) {
		t.Fatalf("err = %v, want ErrApplicationPending", err)
	}

	// a foreign merchant cannot decide it
	stranger := createTestMerchant(t, env.db, "STR1")
	if _, err := env.merchantSvc.DecideApplication(ctx, stranger.ID, app.ID, true); !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("err = %v, want ErrApplicationNotFound", err)
	}

	decided, err := env.merchantSvc.DecideApplication(ctx, parent.ID, app.ID, true)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if decided.Status != constants.ApplicationStatusAccepted {
		t.Fatalf("status = %q, want accepted", decided.Status)
	}
	if decided.DecidedAt == nil {
		t.Fatal("decided_at not stamped")
	}

	var linked models.Merchant
	env.db.First(&linked, sub.ID)
	if linked.ParentID == nil || *linked.ParentID != parent.ID {
		t.Fatal("acceptance did not link applicant to parent")
	}

	// decisions are terminal
	if _, err := env.merchantSvc.DecideApplication(ctx, parent.ID, app.ID, false); !errors.Is(err, ErrApplicationDecided) {
		t.Fatalf("err = %v, want ErrApplicationDecided", err)
	}

	apps, total, err := env.merchantSvc.ListApplications(ctx, repository.ApplicationListFilter{
		ParentID: parent.ID,
		Page:     1,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("list applications failed: %v", err)
	}
	if total != 1 || apps[0].ID != app.ID {
		t.Fatalf("list returned %d applications", total)
	}
}

func TestMerchantApplicationReject(t *testing.T) {
	env := setupTestEnv(t, "merchant_reject")
	ctx := context.Background()
	parent := createTestMerchant(t, env.db, "PAR2")
	sub := createTestMerchant(t, env.db, "SUB2")

	app, err := env.merchantSvc.ApplyToParent(ctx, sub.ID, parent.ID, decimal.Zero)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	decided, err := env.merchantSvc.DecideApplication(ctx, parent.ID, app.ID, false)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if decided.Status != constants.ApplicationStatusRejected {
		t.Fatalf("status = %q, want rejected", decided.Status)
	}

	var sub2 models.Merchant
	env.db.First(&sub2, sub.ID)
	if sub2.ParentID != nil {
		t.Fatal("rejection must not link applicant to parent")
	}
}

func TestStockPurchaseConservation(t *testing.T) {
	env := setupTestEnv(t, "merchant_stock")
	ctx := context.Background()
	parent := createTestMerchant(t, env.db, "PAR3")
	sub := createTestMerchant(t, env.db, "SUB3")
	fundTestWallet(t, env, parent.ID, 1000, "FUND-P")
	fundTestWallet(t, env, sub.ID, 2000, "FUND-S")

	// not affiliated yet
	if _, err := env.merchantSvc.PurchaseStock(ctx, sub.ID, 500, 1); !errors.Is(err, ErrNotSubMerchant) {
		t.Fatalf("err = %v, want ErrNotSubMerchant", err)
	}

	app, err := env.merchantSvc.ApplyToParent(ctx, sub.ID, parent.ID, decimal.Zero)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, err := env.merchantSvc.DecideApplication(ctx, parent.ID, app.ID, true); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if _, err := env.merchantSvc.PurchaseStock(ctx, sub.ID, 500, 1); !errors.Is(err, ErrStockNotFound) {
		t.Fatalf("err = %v, want ErrStockNotFound before upsert", err)
	}

	if _, err := env.merchantSvc.UpsertStock(ctx, parent.ID, 500, 10, decimal.NewFromInt(450)); err != nil {
		t.Fatalf("upsert stock failed: %v", err)
	}

	if _, err := env.merchantSvc.PurchaseStock(ctx, sub.ID, 500, 11); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	stock, err := env.merchantSvc.PurchaseStock(ctx, sub.ID, 500, 4)
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if stock.AvailableBundles != 6 {
		t.Fatalf("available = %d, want 6", stock.AvailableBundles)
	}

	subAccount, _ := env.walletSvc.Balance(ctx, sub.ID)
	parentAccount, _ := env.walletSvc.Balance(ctx, parent.ID)
	// 4 × 450 moved from sub to parent; totals conserved
	if subAccount.Balance.String() != "200.00" {
		t.Fatalf("sub balance = %s, want 200.00", subAccount.Balance)
	}
	if parentAccount.Balance.String() != "2800.00" {
		t.Fatalf("parent balance = %s, want 2800.00", parentAccount.Balance)
	}

	for _, merchantID := range []uint{sub.ID, parent.ID} {
		result, err := env.walletSvc.Reconcile(ctx, merchantID)
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if !result.Drift.IsZero() {
			t.Fatalf("merchant %d ledger drift %s", merchantID, result.Drift)
		}
	}

	// buyer cannot overspend
	if _, err := env.merchantSvc.PurchaseStock(ctx, sub.ID, 500, 1); err == nil {
		t.Fatal("expected insufficient balance on overspend")
	} else if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}
