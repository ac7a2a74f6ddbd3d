package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// testVoucherConfig keeps bundles small so issuance tests stay fast.
func testVoucherConfig() config.VoucherConfig {
	return config.VoucherConfig{
		IssuerCode:        "MV",
		Currency:          "XAF",
		Denominations:     []int64{500, 1000, 2000, 5000, 10000},
		BundleSize:        5,
		MaxBundles:        100,
		PinLength:         12,
		SerialMaxAttempts: 10,
		DiscountTiers: []config.DiscountTierConfig{
			{MinBundles: 1, Percent: 0},
			{MinBundles: 5, Percent: 5},
			{MinBundles: 20, Percent: 10},
		},
	}
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.MerchantStock{},
		&models.MerchantApplication{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.VoucherBatch{},
		&models.VoucherBundle{},
		&models.VoucherCard{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

type testEnv struct {
	db          *gorm.DB
	batchRepo   repository.VoucherBatchRepository
	cardRepo    repository.VoucherCardRepository
	walletRepo  repository.WalletRepository
	walletSvc   *WalletService
	batchSvc    *BatchService
	cardSvc     *CardService
	merchantSvc *MerchantService
	cfg         config.VoucherConfig
}

func setupTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()
	db := newTestDB(t, name)
	cfg := testVoucherConfig()

	batchRepo := repository.NewVoucherBatchRepository(db)
	cardRepo := repository.NewVoucherCardRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)

	walletSvc := NewWalletService(walletRepo, cfg.Currency)
	serialSvc := NewSerialService(cardRepo, cfg.PinLength, cfg.SerialMaxAttempts)
	discounts := NewDiscountCalculator(cfg)
	batchSvc := NewBatchService(batchRepo, cardRepo, walletRepo, walletSvc, serialSvc, discounts, cfg)
	cardSvc := NewCardService(cardRepo, batchRepo)
	merchantSvc := NewMerchantService(merchantRepo, walletSvc, config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1})

	return &testEnv{
		db:          db,
		batchRepo:   batchRepo,
		cardRepo:    cardRepo,
		walletRepo:  walletRepo,
		walletSvc:   walletSvc,
		batchSvc:    batchSvc,
		cardSvc:     cardSvc,
		merchantSvc: merchantSvc,
		cfg:         cfg,
	}
}

func createTestMerchant(t *testing.T, db *gorm.DB, code string) *models.Merchant {
	t.Helper()
	merchant := &models.Merchant{
		Code:         code,
		Name:         "Merchant " + code,
		Email:        fmt.Sprintf("%s@example.com", code),
		PasswordHash: "hash",
		Status:       constants.MerchantStatusActive,
	}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	return merchant
}

func fundTestWallet(t *testing.T, env *testEnv, merchantID uint, amount int64, reference string) {
	t.Helper()
	if _, err := env.walletSvc.Fund(context.Background(), merchantID, decimal.NewFromInt(amount), reference, "test funding"); err != nil {
		t.Fatalf("fund wallet failed: %v", err)
	}
}
