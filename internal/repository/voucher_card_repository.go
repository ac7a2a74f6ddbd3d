package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherCardRepository persists cards and bundles.
type VoucherCardRepository interface {
	CreateBundle(ctx context.Context, bundle *models.VoucherBundle) error
	CreateCardsInBatches(ctx context.Context, cards []models.VoucherCard, batchSize int) error
	GetByID(ctx context.Context, id uint) (*models.VoucherCard, error)
	GetBySerial(ctx context.Context, serial string) (*models.VoucherCard, error)
	GetBySerialForUpdate(ctx context.Context, serial string) (*models.VoucherCard, error)
	List(ctx context.Context, filter CardListFilter) ([]models.VoucherCard, int64, error)
	ListBundlesByBatch(ctx context.Context, batchID uint) ([]models.VoucherBundle, error)
	StatusCounts(ctx context.Context, batchID uint) (map[string]int64, error)
	SerialPrefixExists(ctx context.Context, prefix string) (bool, error)
	Update(ctx context.Context, card *models.VoucherCard) error
	InvalidateBatchCards(ctx context.Context, batchID uint) (int64, error)
	WithTx(tx *gorm.DB) VoucherCardRepository
}

type GormVoucherCardRepository struct {
	db *gorm.DB
}

func NewVoucherCardRepository(db *gorm.DB) VoucherCardRepository {
	return &GormVoucherCardRepository{db: db}
}

func (r *GormVoucherCardRepository) WithTx(tx *gorm.DB) VoucherCardRepository {
	return &GormVoucherCardRepository{db: tx}
}

func (r *GormVoucherCardRepository) CreateBundle(ctx context.Context, bundle *models.VoucherBundle) error {
	return r.db.WithContext(ctx).Create(bundle).Error
}

func (r *GormVoucherCardRepository) CreateCardsInBatches(ctx context.Context, cards []models.VoucherCard, batchSize int) error {
	if len(cards) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return r.db.WithContext(ctx).CreateInBatches(cards, batchSize).Error
}

func (r *GormVoucherCardRepository) GetByID(ctx context.Context, id uint) (*models.VoucherCard, error) {
	var card models.VoucherCard
	err := r.db.WithContext(ctx).First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *GormVoucherCardRepository) GetBySerial(ctx context.Context, serial string) (*models.VoucherCard, error) {
	var card models.VoucherCard
	err := r.db.WithContext(ctx).
		Where("serial_number = ?", serial).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetBySerialForUpdate locks the card row so concurrent redemptions of the
// same serial serialize.
func (r *GormVoucherCardRepository) GetBySerialForUpdate(ctx context.Context, serial string) (*models.VoucherCard, error) {
	var card models.VoucherCard
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("serial_number = ?", serial).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *GormVoucherCardRepository) List(ctx context.Context, filter CardListFilter) ([]models.VoucherCard, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VoucherCard{})

	if filter.BatchID > 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.BundleID > 0 {
		query = query.Where("bundle_id = ?", filter.BundleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cards []models.VoucherCard
	err := applyPagination(query.Order("id ASC"), filter.Page, filter.PageSize).
		Find(&cards).Error
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *GormVoucherCardRepository) ListBundlesByBatch(ctx context.Context, batchID uint) ([]models.VoucherBundle, error) {
	var bundles []models.VoucherBundle
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&bundles).Error
	return bundles, err
}

// StatusCounts groups a batch's cards by status. Statuses with zero cards
// are absent from the map.
func (r *GormVoucherCardRepository) StatusCounts(ctx context.Context, batchID uint) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.VoucherCard{}).
		Select("status, COUNT(*) AS count").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (r *GormVoucherCardRepository) SerialPrefixExists(ctx context.Context, prefix string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VoucherBundle{}).
		Where("serial_prefix = ?", prefix).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormVoucherCardRepository) Update(ctx context.Context, card *models.VoucherCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// InvalidateBatchCards marks every card in the batch that is not already
// used or invalidated. Used cards keep their terminal state.
func (r *GormVoucherCardRepository) InvalidateBatchCards(ctx context.Context, batchID uint) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.VoucherCard{}).
		Where("batch_id = ? AND status IN ?", batchID, []string{
			constants.CardStatusAvailable,
			constants.CardStatusSoldUnused,
		}).
		Updates(map[string]interface{}{
			"status":         constants.CardStatusInvalidated,
			"invalidated_at": now,
		})
	return result.RowsAffected, result.Error
}
