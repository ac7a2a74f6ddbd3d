package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"
)

func issueTestBatch(t *testing.T, env *testEnv, code string) (*models.VoucherBatch, []models.VoucherCard) {
	t.Helper()
	merchant := createTestMerchant(t, env.db, code)
	fundTestWallet(t, env, merchant.ID, 1000000, "FUND-"+code)
	batch, err := env.batchSvc.IssueBatch(context.Background(), IssueBatchInput{
		MerchantID:   merchant.ID,
		Denomination: 500,
		BundleCount:  1,
	})
	if err != nil {
		t.Fatalf("issue batch failed: %v", err)
	}
	var cards []models.VoucherCard
	env.db.Where("batch_id = ?", batch.ID).Order("id ASC").Find(&cards)
	if len(cards) == 0 {
		t.Fatal("issued batch has no cards")
	}
	return batch, cards
}

func TestMarkSold(t *testing.T) {
	env := setupTestEnv(t, "card_mark_sold")
	ctx := context.Background()
	_, cards := issueTestBatch(t, env, "CS1")

	sold, err := env.cardSvc.MarkSold(ctx, cards[0].ID, constants.SoldViaPhysical)
	if err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if sold.Status != constants.CardStatusSoldUnused {
		t.Fatalf("status = %q, want sold_unused", sold.Status)
	}
	if sold.SoldAt == nil || sold.SoldVia == nil || *sold.SoldVia != constants.SoldViaPhysical {
		t.Fatal("sold_at / sold_via not stamped")
	}

	// selling twice is an invalid transition
	if _, err := env.cardSvc.MarkSold(ctx, cards[0].ID, constants.SoldViaOnline); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	// unknown channel rejected
	if _, err := env.cardSvc.MarkSold(ctx, cards[1].ID, "carrier_pigeon"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for bad channel", err)
	}

	if _, err := env.cardSvc.MarkSold(ctx, 99999, constants.SoldViaOnline); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
}

func TestRedeemLifecycle(t *testing.T) {
	env := setupTestEnv(t, "card_redeem")
	ctx := context.Background()
	_, cards := issueTestBatch(t, env, "CS2")
	card := cards[0]
	pin := cardPin(t, env, card.ID)

	// not sold yet
	if _, err := env.cardSvc.Redeem(ctx, card.SerialNumber, pin); !errors.Is(err, ErrCardNotSold) {
		t.Fatalf("err = %v, want ErrCardNotSold", err)
	}

	if _, err := env.cardSvc.MarkSold(ctx, card.ID, constants.SoldViaOnline); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}

	// wrong pin leaves the card untouched
	if _, err := env.cardSvc.Redeem(ctx, card.SerialNumber, "000000000000"); !errors.Is(err, ErrWrongPin) {
		t.Fatalf("err = %v, want ErrWrongPin", err)
	}
	var check models.VoucherCard
	env.db.First(&check, card.ID)
	if check.Status != constants.CardStatusSoldUnused {
		t.Fatalf("status after wrong pin = %q, want sold_unused", check.Status)
	}

	redeemed, err := env.cardSvc.Redeem(ctx, card.SerialNumber, pin)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redeemed.Status != constants.CardStatusUsed {
		t.Fatalf("status = %q, want used", redeemed.Status)
	}
	if redeemed.UsedAt == nil {
		t.Fatal("used_at not stamped")
	}
	if redeemed.SoldAt == nil || redeemed.UsedAt.Before(*redeemed.SoldAt) {
		t.Fatal("used_at precedes sold_at")
	}

	// second redemption observes used
	if _, err := env.cardSvc.Redeem(ctx, card.SerialNumber, pin); !errors.Is(err, ErrCardAlreadyUsed) {
		t.Fatalf("err = %v, want ErrCardAlreadyUsed", err)
	}

	if _, err := env.cardSvc.Redeem(ctx, "NOPE-000", pin); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
}

func TestRedeemInvalidatedCard(t *testing.T) {
	env := setupTestEnv(t, "card_redeem_invalidated")
	ctx := context.Background()
	_, cards := issueTestBatch(t, env, "CS3")
	card := cards[0]
	pin := cardPin(t, env, card.ID)

	if _, err := env.cardSvc.MarkSold(ctx, card.ID, constants.SoldViaOnline); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if _, err := env.cardSvc.Invalidate(ctx, card.ID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, err := env.cardSvc.Redeem(ctx, card.SerialNumber, pin); !errors.Is(err, ErrCardInvalidated) {
		t.Fatalf("err = %v, want ErrCardInvalidated", err)
	}
}

func TestInvalidateTerminalStates(t *testing.T) {
	env := setupTestEnv(t, "card_invalidate_terminal")
	ctx := context.Background()
	_, cards := issueTestBatch(t, env, "CS4")
	card := cards[0]
	pin := cardPin(t, env, card.ID)

	if _, err := env.cardSvc.MarkSold(ctx, card.ID, constants.SoldViaOnline); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if _, err := env.cardSvc.Redeem(ctx, card.SerialNumber, pin); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	// a consumed card's record is immutable
	if _, err := env.cardSvc.Invalidate(ctx, card.ID); !errors.Is(err, ErrCardAlreadyUsed) {
		t.Fatalf("err = %v, want ErrCardAlreadyUsed", err)
	}

	other := cards[1]
	if _, err := env.cardSvc.MarkSold(ctx, other.ID, constants.SoldViaPhysical); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	invalidated, err := env.cardSvc.Invalidate(ctx, other.ID)
	if err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	// the sale record survives invalidation for the audit trail
	if invalidated.SoldAt == nil || invalidated.SoldVia == nil {
		t.Fatalf("invalidated card lost its sale record: sold_at=%v sold_via=%v", invalidated.SoldAt, invalidated.SoldVia)
	}
	if _, err := env.cardSvc.Invalidate(ctx, other.ID); !errors.Is(err, ErrCardInvalidated) {
		t.Fatalf("err = %v, want ErrCardInvalidated on repeat", err)
	}
}

func TestInvalidateBatchSkipsUsedCards(t *testing.T) {
	env := setupTestEnv(t, "card_invalidate_batch")
	ctx := context.Background()
	batch, cards := issueTestBatch(t, env, "CS5")

	used := cards[0]
	if _, err := env.cardSvc.MarkSold(ctx, used.ID, constants.SoldViaOnline); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if _, err := env.cardSvc.Redeem(ctx, used.SerialNumber, cardPin(t, env, used.ID)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	affected, err := env.cardSvc.InvalidateBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("invalidate batch failed: %v", err)
	}
	if affected != int64(len(cards)-1) {
		t.Fatalf("affected = %d, want %d", affected, len(cards)-1)
	}

	var reloaded models.VoucherCard
	env.db.First(&reloaded, used.ID)
	if reloaded.Status != constants.CardStatusUsed {
		t.Fatalf("used card status = %q, want used to survive bulk invalidation", reloaded.Status)
	}

	var invalidated int64
	env.db.Model(&models.VoucherCard{}).
		Where("batch_id = ? AND status = ?", batch.ID, constants.CardStatusInvalidated).
		Count(&invalidated)
	if invalidated != int64(len(cards)-1) {
		t.Fatalf("invalidated = %d, want %d", invalidated, len(cards)-1)
	}

	if _, err := env.cardSvc.InvalidateBatch(ctx, 9999); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}
}
