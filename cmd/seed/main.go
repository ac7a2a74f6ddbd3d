package main

import (
	"fmt"

	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type merchantSeed struct {
	Code     string
	Name     string
	Email    string
	Password string
	Parent   string
	Funding  int64
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seeds := []merchantSeed{
		{Code: "MV", Name: "Mobi HQ", Email: "hq@mobivoucher.demo", Password: "merchant-demo-1", Funding: 1_000_000},
		{Code: "DLA", Name: "Douala Distribution", Email: "douala@mobivoucher.demo", Password: "merchant-demo-2", Parent: "MV", Funding: 250_000},
		{Code: "YDE", Name: "Yaounde Distribution", Email: "yaounde@mobivoucher.demo", Password: "merchant-demo-3", Parent: "MV", Funding: 150_000},
	}

	merchantIDs := map[string]uint{}
	for _, seed := range seeds {
		var merchant models.Merchant
		if err := models.DB.Where("code = ?", seed.Code).First(&merchant).Error; err != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
			if err != nil {
				stdLog.Fatalf("Failed to hash password for %s: %v", seed.Code, err)
			}
			merchant = models.Merchant{
				Code:         seed.Code,
				Name:         seed.Name,
				Email:        seed.Email,
				PasswordHash: string(hash),
				Status:       constants.MerchantStatusActive,
			}
			if err := models.DB.Create(&merchant).Error; err != nil {
				stdLog.Printf("Failed to create merchant %s: %v", seed.Code, err)
				continue
			}
			stdLog.Printf("Created merchant: %s", seed.Code)
		} else {
			stdLog.Printf("Merchant already exists: %s", seed.Code)
		}
		merchantIDs[seed.Code] = merchant.ID
	}

	// link sub-merchants to their parent
	for _, seed := range seeds {
		if seed.Parent == "" {
			continue
		}
		parentID, ok := merchantIDs[seed.Parent]
		if !ok {
			stdLog.Printf("Skip parent link for %s: parent %s missing", seed.Code, seed.Parent)
			continue
		}
		if err := models.DB.Model(&models.Merchant{}).
			Where("code = ? AND parent_id IS NULL", seed.Code).
			Update("parent_id", parentID).Error; err != nil {
			stdLog.Printf("Failed to link %s to %s: %v", seed.Code, seed.Parent, err)
		}
	}

	// wallet accounts with an initial funding ledger entry
	for _, seed := range seeds {
		merchantID, ok := merchantIDs[seed.Code]
		if !ok {
			continue
		}
		var account models.WalletAccount
		if err := models.DB.Where("merchant_id = ?", merchantID).First(&account).Error; err != nil {
			account = models.WalletAccount{
				MerchantID: merchantID,
				Balance:    models.NewMoneyFromDecimal(decimal.Zero),
				Currency:   cfg.Voucher.Currency,
			}
			if err := models.DB.Create(&account).Error; err != nil {
				stdLog.Printf("Failed to create wallet for %s: %v", seed.Code, err)
				continue
			}
		}

		reference := fmt.Sprintf("SEED-FUND-%s", seed.Code)
		var existing models.WalletTransaction
		if err := models.DB.Where("wallet_id = ? AND reference = ?", account.ID, reference).First(&existing).Error; err == nil {
			stdLog.Printf("Wallet already funded: %s", seed.Code)
			continue
		}
		amount := decimal.NewFromInt(seed.Funding)
		txn := models.WalletTransaction{
			WalletID:    account.ID,
			Type:        constants.WalletTxnTypeFunding,
			Amount:      models.NewMoneyFromDecimal(amount),
			Currency:    account.Currency,
			Reference:   reference,
			Description: "seed funding",
		}
		if err := models.DB.Create(&txn).Error; err != nil {
			stdLog.Printf("Failed to fund wallet for %s: %v", seed.Code, err)
			continue
		}
		account.Balance = models.NewMoneyFromDecimal(account.Balance.Decimal.Add(amount))
		if err := models.DB.Save(&account).Error; err != nil {
			stdLog.Printf("Failed to update wallet balance for %s: %v", seed.Code, err)
			continue
		}
		stdLog.Printf("Funded wallet for %s: %s %s", seed.Code, amount.StringFixed(2), account.Currency)
	}

	// demo stock offers on the HQ merchant
	stockPlans := []struct {
		Denomination   int64
		Bundles        int
		PricePerBundle int64
	}{
		{Denomination: 500, Bundles: 40, PricePerBundle: 47_500},
		{Denomination: 1000, Bundles: 25, PricePerBundle: 95_000},
		{Denomination: 5000, Bundles: 10, PricePerBundle: 475_000},
	}
	hqID, ok := merchantIDs["MV"]
	if !ok {
		stdLog.Fatalf("HQ merchant missing, cannot seed stock")
	}
	for _, plan := range stockPlans {
		var stock models.MerchantStock
		if err := models.DB.Where("merchant_id = ? AND denomination = ?", hqID, plan.Denomination).First(&stock).Error; err != nil {
			stock = models.MerchantStock{
				MerchantID:       hqID,
				Denomination:     plan.Denomination,
				AvailableBundles: plan.Bundles,
				PricePerBundle:   models.NewMoneyFromDecimal(decimal.NewFromInt(plan.PricePerBundle)),
			}
			if err := models.DB.Create(&stock).Error; err != nil {
				stdLog.Printf("Failed to create stock for denomination %d: %v", plan.Denomination, err)
			} else {
				stdLog.Printf("Created stock: denomination=%d bundles=%d", plan.Denomination, plan.Bundles)
			}
			continue
		}
		stock.AvailableBundles = plan.Bundles
		stock.PricePerBundle = models.NewMoneyFromDecimal(decimal.NewFromInt(plan.PricePerBundle))
		if err := models.DB.Save(&stock).Error; err != nil {
			stdLog.Printf("Failed to update stock for denomination %d: %v", plan.Denomination, err)
		} else {
			stdLog.Printf("Updated stock: denomination=%d bundles=%d", plan.Denomination, plan.Bundles)
		}
	}

	fmt.Println("\nSeed data ready:")
	fmt.Println("- 1 issuer merchant (MV) with two linked sub-merchants")
	fmt.Println("- Funded wallet accounts with opening ledger entries")
	fmt.Println("- 3 stock offers on the HQ merchant")
}
