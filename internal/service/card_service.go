package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"gorm.io/gorm"
)

// cardTransitions is the full directed transition table. Anything absent
// here is rejected with ErrInvalidTransition; used and invalidated are
// terminal.
var cardTransitions = map[string]map[string]bool{
	constants.CardStatusAvailable: {
		constants.CardStatusSoldUnused:  true,
		constants.CardStatusInvalidated: true,
	},
	constants.CardStatusSoldUnused: {
		constants.CardStatusUsed:        true,
		constants.CardStatusInvalidated: true,
	},
}

func canTransition(from, to string) bool {
	return cardTransitions[from][to]
}

// CardService drives the card lifecycle: sale, redemption, invalidation.
type CardService struct {
	cardRepo  repository.VoucherCardRepository
	batchRepo repository.VoucherBatchRepository
}

func NewCardService(cardRepo repository.VoucherCardRepository, batchRepo repository.VoucherBatchRepository) *CardService {
	return &CardService{cardRepo: cardRepo, batchRepo: batchRepo}
}

// MarkSold records a sale, moving the card from available to sold_unused
// and stamping soldAt and the channel it went through.
func (s *CardService) MarkSold(ctx context.Context, cardID uint, soldVia string) (*models.VoucherCard, error) {
	if soldVia != constants.SoldViaPhysical && soldVia != constants.SoldViaOnline {
		return nil, ErrInvalidTransition
	}

	var card *models.VoucherCard
	err := s.batchRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.cardRepo.WithTx(tx)
		found, err := repo.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCardNotFound
		}
		if !canTransition(found.Status, constants.CardStatusSoldUnused) {
			return transitionError(found.Status)
		}
		now := time.Now()
		found.Status = constants.CardStatusSoldUnused
		found.SoldVia = &soldVia
		found.SoldAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		card = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dropStatusCountsCache(ctx, card.BatchID)
	return card, nil
}

// Redeem consumes a card. The row is locked so concurrent attempts on the
// same serial serialize; the second attempt observes used. The PIN check is
// constant-time so response timing leaks nothing about near-matches.
func (s *CardService) Redeem(ctx context.Context, serial, pin string) (*models.VoucherCard, error) {
	var card *models.VoucherCard
	err := s.batchRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.cardRepo.WithTx(tx)
		found, err := repo.GetBySerialForUpdate(ctx, serial)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCardNotFound
		}
		if subtle.ConstantTimeCompare([]byte(found.PIN), []byte(pin)) != 1 {
			return ErrWrongPin
		}
		switch found.Status {
		case constants.CardStatusUsed:
			return ErrCardAlreadyUsed
		case constants.CardStatusInvalidated:
			return ErrCardInvalidated
		case constants.CardStatusAvailable:
			return ErrCardNotSold
		case constants.CardStatusSoldUnused:
			// fall through to redemption
		default:
			return ErrInvalidTransition
		}
		now := time.Now()
		found.Status = constants.CardStatusUsed
		found.UsedAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		card = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dropStatusCountsCache(ctx, card.BatchID)
	logger.Infow("card_redeemed", "serial", serial, "card_id", card.ID, "batch_id", card.BatchID)
	return card, nil
}

// Invalidate withdraws a single card. Used cards are immutable and cannot
// be invalidated.
func (s *CardService) Invalidate(ctx context.Context, cardID uint) (*models.VoucherCard, error) {
	var card *models.VoucherCard
	err := s.batchRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.cardRepo.WithTx(tx)
		found, err := repo.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCardNotFound
		}
		if !canTransition(found.Status, constants.CardStatusInvalidated) {
			return transitionError(found.Status)
		}
		now := time.Now()
		found.Status = constants.CardStatusInvalidated
		found.InvalidatedAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		card = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dropStatusCountsCache(ctx, card.BatchID)
	return card, nil
}

// InvalidateBatch invalidates every not-yet-used card of a batch in one
// transaction and returns how many cards were affected. Used cards keep
// their terminal state.
func (s *CardService) InvalidateBatch(ctx context.Context, batchID uint) (int64, error) {
	var affected int64
	err := s.batchRepo.Transaction(ctx, func(tx *gorm.DB) error {
		batch, err := s.batchRepo.WithTx(tx).GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrBatchNotFound
		}
		affected, err = s.cardRepo.WithTx(tx).InvalidateBatchCards(ctx, batchID)
		return err
	})
	if err != nil {
		return 0, err
	}
	dropStatusCountsCache(ctx, batchID)
	logger.Infow("batch_cards_invalidated", "batch_id", batchID, "affected", affected)
	return affected, nil
}

// transitionError picks the most specific sentinel for a rejected
// transition out of the given state.
func transitionError(status string) error {
	switch status {
	case constants.CardStatusUsed:
		return ErrCardAlreadyUsed
	case constants.CardStatusInvalidated:
		return ErrCardInvalidated
	default:
		return ErrInvalidTransition
	}
}
