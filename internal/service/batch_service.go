package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mobi-voucher/internal/cache"
	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"gorm.io/gorm"
)

const (
	statusCountsCacheTTL = 30 * time.Second
	issueMaxAttempts     = 3
)

// IssueBatchInput is the issuance request after authentication.
type IssueBatchInput struct {
	MerchantID      uint
	Denomination    int64
	BundleCount     int
	GenerationType  string
	ReplacedBatchID *uint
	ClientRequestID string
}

// BatchDetail is a batch together with its bundles and card status
// breakdown.
type BatchDetail struct {
	Batch        *models.VoucherBatch   `json:"batch"`
	Bundles      []models.VoucherBundle `json:"bundles"`
	StatusCounts map[string]int64       `json:"status_counts"`
}

// BatchService orchestrates batch issuance and serves the registry read
// side. Issuance is a single transaction: wallet lock, balance check,
// bundles, cards, batch row and ledger debit either all commit or none do.
type BatchService struct {
	batchRepo  repository.VoucherBatchRepository
	cardRepo   repository.VoucherCardRepository
	walletRepo repository.WalletRepository
	walletSvc  *WalletService
	serialSvc  *SerialService
	discounts  *DiscountCalculator
	cfg        config.VoucherConfig
}

func NewBatchService(
	batchRepo repository.VoucherBatchRepository,
	cardRepo repository.VoucherCardRepository,
	walletRepo repository.WalletRepository,
	walletSvc *WalletService,
	serialSvc *SerialService,
	discounts *DiscountCalculator,
	cfg config.VoucherConfig,
) *BatchService {
	return &BatchService{
		batchRepo:  batchRepo,
		cardRepo:   cardRepo,
		walletRepo: walletRepo,
		walletSvc:  walletSvc,
		serialSvc:  serialSvc,
		discounts:  discounts,
		cfg:        cfg,
	}
}

// Quote prices an issuance request without creating anything.
func (s *BatchService) Quote(denomination int64, bundleCount int) (DiscountQuote, error) {
	if err := s.validateRequest(denomination, bundleCount); err != nil {
		return DiscountQuote{}, err
	}
	return s.discounts.Quote(denomination, bundleCount), nil
}

// IssueBatch creates a batch of bundleCount bundles, each holding
// bundle_size cards, and debits the merchant wallet for the discounted
// total. A non-empty ClientRequestID makes retries idempotent: the batch
// already issued for that id is returned instead of a new one.
func (s *BatchService) IssueBatch(ctx context.Context, input IssueBatchInput) (*models.VoucherBatch, error) {
	if err := s.validateRequest(input.Denomination, input.BundleCount); err != nil {
		return nil, err
	}
	if input.GenerationType == "" {
		input.GenerationType = constants.GenerationTypeNew
	}
	if input.GenerationType != constants.GenerationTypeNew && input.GenerationType != constants.GenerationTypeReplacement {
		return nil, fmt.Errorf("unknown generation type %q", input.GenerationType)
	}

	input.ClientRequestID = strings.TrimSpace(input.ClientRequestID)
	if input.ClientRequestID != "" {
		existing, err := s.batchRepo.GetByClientRequestID(ctx, input.MerchantID, input.ClientRequestID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	if input.GenerationType == constants.GenerationTypeReplacement {
		if err := s.checkReplacementPrecondition(ctx, input.ReplacedBatchID); err != nil {
			return nil, err
		}
	} else if input.ReplacedBatchID != nil {
		return nil, ErrReplacedBatchInvalid
	}

	quote := s.discounts.Quote(input.Denomination, input.BundleCount)

	var batch *models.VoucherBatch
	var err error
	for attempt := 0; attempt < issueMaxAttempts; attempt++ {
		batch, err = s.issueOnce(ctx, input, quote)
		if err == nil {
			break
		}
		// A concurrent issuance can take the same daily sequence number;
		// re-deriving it on the next attempt resolves the collision.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	if err != nil {
		return nil, ErrGenerationExhausted
	}

	logger.Infow("batch_issued",
		"batch_id", batch.ID,
		"batch_number", batch.BatchNumber,
		"merchant_id", input.MerchantID,
		"denomination", input.Denomination,
		"bundles", input.BundleCount,
		"total_cost", batch.TotalCost.String(),
		"generation_type", batch.GenerationType,
	)
	return batch, nil
}

func (s *BatchService) issueOnce(ctx context.Context, input IssueBatchInput, quote DiscountQuote) (*models.VoucherBatch, error) {
	var batch *models.VoucherBatch
	err := s.batchRepo.Transaction(ctx, func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		cardRepo := s.cardRepo.WithTx(tx)
		walletRepo := s.walletRepo.WithTx(tx)
		serials := s.serialSvc.WithRepo(cardRepo)

		account, err := walletRepo.GetAccountByMerchantIDForUpdate(ctx, input.MerchantID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrWalletNotFound
		}
		if account.Balance.Decimal.LessThan(quote.Total.Decimal) {
			return ErrInsufficientBalance
		}

		now := time.Now()
		batchNumber, err := s.nextBatchNumber(ctx, batchRepo, now)
		if err != nil {
			return err
		}

		created := &models.VoucherBatch{
			MerchantID:      input.MerchantID,
			BatchNumber:     batchNumber,
			Denomination:    input.Denomination,
			BundleCount:     input.BundleCount,
			TotalCards:      input.BundleCount * s.cfg.BundleSize,
			Status:          constants.BatchStatusActive,
			TotalCost:       quote.Total,
			DiscountApplied: quote.DiscountApplied,
			DiscountPercent: quote.DiscountPercent,
			GenerationType:  input.GenerationType,
			ReplacedBatchID: input.ReplacedBatchID,
		}
		if input.ClientRequestID != "" {
			created.ClientRequestID = &input.ClientRequestID
		}
		if err := batchRepo.Create(ctx, created); err != nil {
			return err
		}

		for i := 0; i < input.BundleCount; i++ {
			prefix, err := serials.GenerateBundlePrefix(ctx, input.Denomination, now, i)
			if err != nil {
				return err
			}
			bundle := &models.VoucherBundle{
				BatchID:      created.ID,
				SerialPrefix: prefix,
				Denomination: input.Denomination,
				CardCount:    s.cfg.BundleSize,
			}
			if err := cardRepo.CreateBundle(ctx, bundle); err != nil {
				return err
			}

			cards := make([]models.VoucherCard, 0, s.cfg.BundleSize)
			for j := 0; j < s.cfg.BundleSize; j++ {
				pin, err := serials.GeneratePin()
				if err != nil {
					return err
				}
				cards = append(cards, models.VoucherCard{
					BatchID:            created.ID,
					BundleID:           bundle.ID,
					BundleSerialPrefix: prefix,
					SerialNumber:       serials.CardSerial(prefix, j),
					PIN:                pin,
					Denomination:       input.Denomination,
					Status:             constants.CardStatusAvailable,
				})
			}
			if err := cardRepo.CreateCardsInBatches(ctx, cards, 200); err != nil {
				return err
			}
		}

		reference := "GEN-" + batchNumber
		description := fmt.Sprintf("voucher generation %s (%d x %d bundles)", batchNumber, input.Denomination, input.BundleCount)
		if _, err := s.walletSvc.DebitInTx(ctx, tx, account, quote.Total.Decimal, constants.WalletTxnTypeVoucherGeneration, reference, description, &created.ID); err != nil {
			return err
		}

		batch = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// nextBatchNumber derives issuer-code + date + daily sequence. The unique
// index on batch_number backstops concurrent issuance; a collision aborts
// the transaction and the caller retries.
func (s *BatchService) nextBatchNumber(ctx context.Context, repo repository.VoucherBatchRepository, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", strings.ToUpper(s.cfg.IssuerCode), now.Format("20060102"))
	count, err := repo.CountByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *BatchService) validateRequest(denomination int64, bundleCount int) error {
	allowed := false
	for _, d := range s.cfg.Denominations {
		if d == denomination {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidDenomination
	}
	if bundleCount <= 0 || (s.cfg.MaxBundles > 0 && bundleCount > s.cfg.MaxBundles) {
		return ErrInvalidBundleCount
	}
	return nil
}

// checkReplacementPrecondition verifies the replaced batch exists and every
// one of its cards has been invalidated. A replacement cannot coexist with
// live originals.
func (s *BatchService) checkReplacementPrecondition(ctx context.Context, replacedBatchID *uint) error {
	if replacedBatchID == nil {
		return ErrReplacedBatchInvalid
	}
	replaced, err := s.batchRepo.GetByID(ctx, *replacedBatchID)
	if err != nil {
		return err
	}
	if replaced == nil {
		return ErrReplacedBatchInvalid
	}
	counts, err := s.cardRepo.StatusCounts(ctx, *replacedBatchID)
	if err != nil {
		return err
	}
	for status, count := range counts {
		if status != constants.CardStatusInvalidated && count > 0 {
			return ErrReplacedBatchInvalid
		}
	}
	return nil
}

// Search pages the batch registry with the merchant's filters.
func (s *BatchService) Search(ctx context.Context, filter repository.BatchListFilter) ([]models.VoucherBatch, int64, error) {
	return s.batchRepo.List(ctx, filter)
}

// Detail loads a batch with its bundles and card status breakdown.
func (s *BatchService) Detail(ctx context.Context, merchantID, batchID uint) (*BatchDetail, error) {
	batch, err := s.getOwnedBatch(ctx, merchantID, batchID)
	if err != nil {
		return nil, err
	}
	bundles, err := s.cardRepo.ListBundlesByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	counts, err := s.StatusCounts(ctx, merchantID, batchID)
	if err != nil {
		return nil, err
	}
	return &BatchDetail{Batch: batch, Bundles: bundles, StatusCounts: counts}, nil
}

// StatusCounts groups a batch's cards by status, including zero-count
// statuses, so the four buckets always partition total_cards. Results are
// cached briefly; the breakdown tolerates short staleness.
func (s *BatchService) StatusCounts(ctx context.Context, merchantID, batchID uint) (map[string]int64, error) {
	if _, err := s.getOwnedBatch(ctx, merchantID, batchID); err != nil {
		return nil, err
	}

	cacheKey := statusCountsCacheKey(batchID)
	cached := map[string]int64{}
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	counts, err := s.cardRepo.StatusCounts(ctx, batchID)
	if err != nil {
		return nil, err
	}
	for _, status := range []string{
		constants.CardStatusAvailable,
		constants.CardStatusSoldUnused,
		constants.CardStatusUsed,
		constants.CardStatusInvalidated,
	} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}

	if err := cache.SetJSON(ctx, cacheKey, counts, statusCountsCacheTTL); err != nil {
		logger.Warnw("status_counts_cache_write_failed", "batch_id", batchID, "error", err)
	}
	return counts, nil
}

func statusCountsCacheKey(batchID uint) string {
	return fmt.Sprintf("batch:%d:status_counts", batchID)
}

// dropStatusCountsCache invalidates the cached breakdown after a card
// lifecycle transition so reads do not serve the pre-transition partition
// for the full TTL.
func dropStatusCountsCache(ctx context.Context, batchID uint) {
	if err := cache.Del(ctx, statusCountsCacheKey(batchID)); err != nil {
		logger.Debugw("status_counts_cache_drop_failed", "batch_id", batchID, "error", err)
	}
}

// Deactivate administratively withdraws a batch. Card statuses are left
// untouched; deactivation is a registry flag, not an invalidation.
func (s *BatchService) Deactivate(ctx context.Context, merchantID, batchID uint) (*models.VoucherBatch, error) {
	batch, err := s.getOwnedBatch(ctx, merchantID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == constants.BatchStatusInactive {
		return batch, nil
	}
	batch.Status = constants.BatchStatusInactive
	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, err
	}
	logger.Infow("batch_deactivated", "batch_id", batchID, "merchant_id", merchantID)
	return batch, nil
}

func (s *BatchService) getOwnedBatch(ctx context.Context, merchantID, batchID uint) (*models.VoucherBatch, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil || (merchantID > 0 && batch.MerchantID != merchantID) {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}
