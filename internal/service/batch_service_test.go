package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"
)

func TestIssueBatchHappyPath(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_happy")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS1")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	batch, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  2,
	})
	if err != nil {
		t.Fatalf("issue batch failed: %v", err)
	}
	if batch.TotalCards != 10 {
		t.Fatalf("total cards = %d, want 10", batch.TotalCards)
	}
	if !strings.HasPrefix(batch.BatchNumber, "MV-") {
		t.Fatalf("batch number %q missing issuer code", batch.BatchNumber)
	}
	if batch.GenerationType != constants.GenerationTypeNew {
		t.Fatalf("generation type = %q, want new", batch.GenerationType)
	}
	// 2 × 5 × 500, no discount below 5 bundles
	if batch.TotalCost.String() != "5000.00" {
		t.Fatalf("total cost = %s, want 5000.00", batch.TotalCost)
	}

	var cardCount int64
	env.db.Model(&models.VoucherCard{}).Where("batch_id = ?", batch.ID).Count(&cardCount)
	if cardCount != 10 {
		t.Fatalf("persisted cards = %d, want 10", cardCount)
	}

	var bundles []models.VoucherBundle
	env.db.Where("batch_id = ?", batch.ID).Find(&bundles)
	if len(bundles) != 2 {
		t.Fatalf("bundles = %d, want 2", len(bundles))
	}
	for _, b := range bundles {
		var perBundle int64
		env.db.Model(&models.VoucherCard{}).Where("bundle_id = ?", b.ID).Count(&perBundle)
		if int(perBundle) != b.CardCount {
			t.Fatalf("bundle %d holds %d cards, want %d", b.ID, perBundle, b.CardCount)
		}
	}

	account, err := env.walletSvc.Balance(ctx, merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if account.Balance.String() != "95000.00" {
		t.Fatalf("balance = %s, want 95000.00", account.Balance)
	}

	var txn models.WalletTransaction
	if err := env.db.Where("batch_id = ?", batch.ID).First(&txn).Error; err != nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if txn.Type != constants.WalletTxnTypeVoucherGeneration {
		t.Fatalf("txn type = %q, want voucher_generation", txn.Type)
	}
	if txn.Amount.String() != "-5000.00" {
		t.Fatalf("txn amount = %s, want -5000.00", txn.Amount)
	}
}

func TestIssueBatchAppliesVolumeDiscount(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_discount")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS2")
	fundTestWallet(t, env, merchant.ID, 1000000, "FUND-1")

	batch, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 1000,
		BundleCount:  20,
	})
	if err != nil {
		t.Fatalf("issue batch failed: %v", err)
	}
	if !batch.DiscountApplied {
		t.Fatal("expected discount to apply at 20 bundles")
	}
	// 20 × 5 × 1000 = 100000 gross, 10% off
	if batch.TotalCost.String() != "90000.00" {
		t.Fatalf("total cost = %s, want 90000.00", batch.TotalCost)
	}
	if batch.DiscountPercent.String() != "10" {
		t.Fatalf("discount percent = %s, want 10", batch.DiscountPercent)
	}
}

func TestIssueBatchValidation(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_validation")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS3")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	_, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{MerchantID: merchant.ID, Denomination: 750, BundleCount: 1})
	if !errors.Is(err, ErrInvalidDenomination) {
		t.Fatalf("err = %v, want ErrInvalidDenomination", err)
	}
	_, err = env.batchSvc.IssueBatch(ctx, IssueBatchInput{MerchantID: merchant.ID, Denomination: 500, BundleCount: 0})
	if !errors.Is(err, ErrInvalidBundleCount) {
		t.Fatalf("err = %v, want ErrInvalidBundleCount", err)
	}
	_, err = env.batchSvc.IssueBatch(ctx, IssueBatchInput{MerchantID: merchant.ID, Denomination: 500, BundleCount: 101})
	if !errors.Is(err, ErrInvalidBundleCount) {
		t.Fatalf("err = %v, want ErrInvalidBundleCount for over max", err)
	}
}

func TestIssueBatchInsufficientBalance(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_poor")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS4")
	fundTestWallet(t, env, merchant.ID, 1000, "FUND-1")

	_, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  2,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// no partial batch, no orphaned ledger entry
	var batches int64
	env.db.Model(&models.VoucherBatch{}).Count(&batches)
	if batches != 0 {
		t.Fatalf("batches persisted = %d, want 0", batches)
	}
	var cards int64
	env.db.Model(&models.VoucherCard{}).Count(&cards)
	if cards != 0 {
		t.Fatalf("cards persisted = %d, want 0", cards)
	}
	account, _ := env.walletSvc.Balance(ctx, merchant.ID)
	if account.Balance.String() != "1000.00" {
		t.Fatalf("balance = %s, want untouched 1000.00", account.Balance)
	}
}

func TestIssueBatchSequenceCollisionExhaustsRetries(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_collision")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "COL1")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	// a pre-existing batch numbered -0002 makes every derived daily
	// sequence (count+1 = 0002) land on the unique index
	taken := fmt.Sprintf("MV-%s-0002", time.Now().Format("20060102"))
	seeded := &models.VoucherBatch{
		MerchantID:   merchant.ID,
		BatchNumber:  taken,
		Denomination: 500,
		BundleCount:  1,
		TotalCards:   5,
		Status:       constants.BatchStatusActive,
	}
	if err := env.db.Create(seeded).Error; err != nil {
		t.Fatalf("seed batch failed: %v", err)
	}

	_, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  1,
	})
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("err = %v, want ErrGenerationExhausted once retries are spent", err)
	}

	// every attempt rolled back: only the seeded batch remains, no cards,
	// balance untouched
	var batches int64
	env.db.Model(&models.VoucherBatch{}).Count(&batches)
	if batches != 1 {
		t.Fatalf("batches = %d, want only the seeded one", batches)
	}
	var cards int64
	env.db.Model(&models.VoucherCard{}).Count(&cards)
	if cards != 0 {
		t.Fatalf("cards persisted = %d, want 0", cards)
	}
	account, _ := env.walletSvc.Balance(ctx, merchant.ID)
	if account.Balance.String() != "100000.00" {
		t.Fatalf("balance = %s, want untouched 100000.00", account.Balance)
	}
}

func TestIssueBatchClientRequestIDDedupe(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_dedupe")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS5")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	input := IssueBatchInput{
		MerchantID:      merchant.ID,
		Denomination:    500,
		BundleCount:     1,
		ClientRequestID: "req-abc",
	}
	first, err := env.batchSvc.IssueBatch(ctx, input)
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	second, err := env.batchSvc.IssueBatch(ctx, input)
	if err != nil {
		t.Fatalf("retried issue failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("retry issued a new batch: %d vs %d", first.ID, second.ID)
	}

	var batches int64
	env.db.Model(&models.VoucherBatch{}).Count(&batches)
	if batches != 1 {
		t.Fatalf("batches = %d, want 1", batches)
	}
	// only one debit
	var debits int64
	env.db.Model(&models.WalletTransaction{}).
		Where("type = ?", constants.WalletTxnTypeVoucherGeneration).
		Count(&debits)
	if debits != 1 {
		t.Fatalf("generation debits = %d, want 1", debits)
	}
}

func TestIssueBatchReplacementPrecondition(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_replacement")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS6")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	original, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  1,
	})
	if err != nil {
		t.Fatalf("issue original failed: %v", err)
	}

	// live originals block replacement
	_, err = env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:      merchant.ID,
		Denomination:    500,
		BundleCount:     1,
		GenerationType:  constants.GenerationTypeReplacement,
		ReplacedBatchID: &original.ID,
	})
	if !errors.Is(err, ErrReplacedBatchInvalid) {
		t.Fatalf("err = %v, want ErrReplacedBatchInvalid while cards live", err)
	}

	if _, err := env.cardSvc.InvalidateBatch(ctx, original.ID); err != nil {
		t.Fatalf("invalidate batch failed: %v", err)
	}

	replacement, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:      merchant.ID,
		Denomination:    500,
		BundleCount:     1,
		GenerationType:  constants.GenerationTypeReplacement,
		ReplacedBatchID: &original.ID,
	})
	if err != nil {
		t.Fatalf("issue replacement failed: %v", err)
	}
	if replacement.GenerationType != constants.GenerationTypeReplacement {
		t.Fatalf("generation type = %q, want replacement", replacement.GenerationType)
	}
	if replacement.ReplacedBatchID == nil || *replacement.ReplacedBatchID != original.ID {
		t.Fatal("replacement does not reference the original batch")
	}

	// a missing replaced batch id is rejected outright
	_, err = env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:     merchant.ID,
		Denomination:   500,
		BundleCount:    1,
		GenerationType: constants.GenerationTypeReplacement,
	})
	if !errors.Is(err, ErrReplacedBatchInvalid) {
		t.Fatalf("err = %v, want ErrReplacedBatchInvalid for nil replaced id", err)
	}
}

func TestBatchSerialsGloballyUnique(t *testing.T) {
	env := setupTestEnv(t, "issue_batch_serials")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS7")
	fundTestWallet(t, env, merchant.ID, 10000000, "FUND-1")

	for i := 0; i < 3; i++ {
		if _, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
			MerchantID:   merchant.ID,
			Denomination: 500,
			BundleCount:  3,
		}); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}

	var cards []models.VoucherCard
	env.db.Find(&cards)
	if len(cards) != 45 {
		t.Fatalf("cards = %d, want 45", len(cards))
	}
	serials := make(map[string]bool, len(cards))
	for _, c := range cards {
		if serials[c.SerialNumber] {
			t.Fatalf("duplicate serial %q across batches", c.SerialNumber)
		}
		serials[c.SerialNumber] = true
	}
}

func TestStatusCountsPartitionTotal(t *testing.T) {
	env := setupTestEnv(t, "status_counts")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS8")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	batch, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  1,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	var cards []models.VoucherCard
	env.db.Where("batch_id = ?", batch.ID).Order("id ASC").Find(&cards)
	if len(cards) != 5 {
		t.Fatalf("cards = %d, want 5", len(cards))
	}

	sold, err := env.cardSvc.MarkSold(ctx, cards[0].ID, constants.SoldViaOnline)
	if err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if _, err := env.cardSvc.Redeem(ctx, sold.SerialNumber, cardPin(t, env, sold.ID)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if _, err := env.cardSvc.MarkSold(ctx, cards[1].ID, constants.SoldViaPhysical); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if _, err := env.cardSvc.Invalidate(ctx, cards[2].ID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	counts, err := env.batchSvc.StatusCounts(ctx, merchant.ID, batch.ID)
	if err != nil {
		t.Fatalf("status counts failed: %v", err)
	}
	want := map[string]int64{
		constants.CardStatusAvailable:   2,
		constants.CardStatusSoldUnused:  1,
		constants.CardStatusUsed:        1,
		constants.CardStatusInvalidated: 1,
	}
	var total int64
	for status, count := range want {
		if counts[status] != count {
			t.Fatalf("counts[%s] = %d, want %d", status, counts[status], count)
		}
		total += counts[status]
	}
	if int(total) != batch.TotalCards {
		t.Fatalf("counts sum to %d, want %d", total, batch.TotalCards)
	}
}

func TestBatchSearchAndDeactivate(t *testing.T) {
	env := setupTestEnv(t, "batch_search")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISS9")
	fundTestWallet(t, env, merchant.ID, 10000000, "FUND-1")

	for _, denom := range []int64{500, 1000, 500} {
		if _, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
			MerchantID:   merchant.ID,
			Denomination: denom,
			BundleCount:  1,
		}); err != nil {
			t.Fatalf("issue failed: %v", err)
		}
	}

	batches, total, err := env.batchSvc.Search(ctx, repository.BatchListFilter{
		MerchantID:   merchant.ID,
		Denomination: 500,
		Page:         1,
		PageSize:     10,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 2 || len(batches) != 2 {
		t.Fatalf("search returned %d/%d, want 2/2", len(batches), total)
	}

	byNumber, total, err := env.batchSvc.Search(ctx, repository.BatchListFilter{
		MerchantID:  merchant.ID,
		BatchNumber: batches[0].BatchNumber,
		Page:        1,
		PageSize:    10,
	})
	if err != nil {
		t.Fatalf("search by number failed: %v", err)
	}
	if total != 1 || byNumber[0].ID != batches[0].ID {
		t.Fatalf("search by number returned %d results", total)
	}

	deactivated, err := env.batchSvc.Deactivate(ctx, merchant.ID, batches[0].ID)
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if deactivated.Status != constants.BatchStatusInactive {
		t.Fatalf("status = %q, want inactive", deactivated.Status)
	}

	// deactivation is a registry flag; cards stay redeemable
	var card models.VoucherCard
	if err := env.db.Where("batch_id = ?", deactivated.ID).First(&card).Error; err != nil {
		t.Fatalf("load card failed: %v", err)
	}
	if card.Status != constants.CardStatusAvailable {
		t.Fatalf("card status = %q, want available after deactivation", card.Status)
	}

	// foreign merchant cannot see or deactivate the batch
	other := createTestMerchant(t, env.db, "ISSX")
	if _, err := env.batchSvc.Deactivate(ctx, other.ID, batches[0].ID); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound for foreign merchant", err)
	}
}

func TestBatchSearchOrdersByDenomination(t *testing.T) {
	env := setupTestEnv(t, "batch_search_denom")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISSD")
	fundTestWallet(t, env, merchant.ID, 10000000, "FUND-1")

	for _, denom := range []int64{2000, 500, 1000} {
		if _, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
			MerchantID:   merchant.ID,
			Denomination: denom,
			BundleCount:  1,
		}); err != nil {
			t.Fatalf("issue failed: %v", err)
		}
	}

	batches, total, err := env.batchSvc.Search(ctx, repository.BatchListFilter{
		MerchantID: merchant.ID,
		Page:       1,
		PageSize:   10,
		OrderBy:    "denomination",
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	want := []int64{500, 1000, 2000}
	for i, batch := range batches {
		if batch.Denomination != want[i] {
			t.Fatalf("position %d denomination = %d, want %d", i, batch.Denomination, want[i])
		}
	}
}

// cardPin reads the stored PIN directly; services never expose it after
// issuance.
func cardPin(t *testing.T, env *testEnv, cardID uint) string {
	t.Helper()
	var card models.VoucherCard
	if err := env.db.First(&card, cardID).Error; err != nil {
		t.Fatalf("load card %d failed: %v", cardID, err)
	}
	return card.PIN
}

func TestBatchDetail(t *testing.T) {
	env := setupTestEnv(t, "batch_detail")
	ctx := context.Background()
	merchant := createTestMerchant(t, env.db, "ISSD")
	fundTestWallet(t, env, merchant.ID, 100000, "FUND-1")

	batch, err := env.batchSvc.IssueBatch(ctx, IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 2000,
		BundleCount:  2,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	detail, err := env.batchSvc.Detail(ctx, merchant.ID, batch.ID)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.Batch.ID != batch.ID {
		t.Fatalf("detail batch id = %d, want %d", detail.Batch.ID, batch.ID)
	}
	if len(detail.Bundles) != 2 {
		t.Fatalf("detail bundles = %d, want 2", len(detail.Bundles))
	}
	if detail.StatusCounts[constants.CardStatusAvailable] != int64(batch.TotalCards) {
		t.Fatalf("available count = %d, want %d", detail.StatusCounts[constants.CardStatusAvailable], batch.TotalCards)
	}

	if _, err := env.batchSvc.Detail(ctx, merchant.ID, 9999); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}
}
