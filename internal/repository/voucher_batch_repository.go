package repository

import (
	"context"
	"errors"

	"github.com/mobi-voucher/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherBatchRepository persists batches and serves registry queries.
type VoucherBatchRepository interface {
	Create(ctx context.Context, batch *models.VoucherBatch) error
	GetByID(ctx context.Context, id uint) (*models.VoucherBatch, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.VoucherBatch, error)
	GetByBatchNumber(ctx context.Context, batchNumber string) (*models.VoucherBatch, error)
	GetByClientRequestID(ctx context.Context, merchantID uint, clientRequestID string) (*models.VoucherBatch, error)
	List(ctx context.Context, filter BatchListFilter) ([]models.VoucherBatch, int64, error)
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)
	Update(ctx context.Context, batch *models.VoucherBatch) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) VoucherBatchRepository
}

type GormVoucherBatchRepository struct {
	db *gorm.DB
}

func NewVoucherBatchRepository(db *gorm.DB) VoucherBatchRepository {
	return &GormVoucherBatchRepository{db: db}
}

func (r *GormVoucherBatchRepository) WithTx(tx *gorm.DB) VoucherBatchRepository {
	return &GormVoucherBatchRepository{db: tx}
}

func (r *GormVoucherBatchRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *GormVoucherBatchRepository) Create(ctx context.Context, batch *models.VoucherBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *GormVoucherBatchRepository) GetByID(ctx context.Context, id uint) (*models.VoucherBatch, error) {
	var batch models.VoucherBatch
	err := r.db.WithContext(ctx).First(&batch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *GormVoucherBatchRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.VoucherBatch, error) {
	var batch models.VoucherBatch
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&batch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *GormVoucherBatchRepository) GetByBatchNumber(ctx context.Context, batchNumber string) (*models.VoucherBatch, error) {
	var batch models.VoucherBatch
	err := r.db.WithContext(ctx).
		Where("batch_number = ?", batchNumber).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *GormVoucherBatchRepository) GetByClientRequestID(ctx context.Context, merchantID uint, clientRequestID string) (*models.VoucherBatch, error) {
	var batch models.VoucherBatch
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND client_request_id = ?", merchantID, clientRequestID).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *GormVoucherBatchRepository) List(ctx context.Context, filter BatchListFilter) ([]models.VoucherBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VoucherBatch{})

	if filter.MerchantID > 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.BatchNumber != "" {
		query = query.Where("batch_number LIKE ?", "%"+filter.BatchNumber+"%")
	}
	if filter.Denomination > 0 {
		query = query.Where("denomination = ?", filter.Denomination)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.GenerationType != "" {
		query = query.Where("generation_type = ?", filter.GenerationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// whitelisted orderings only; anything else falls back to newest first
	orderBy := "id DESC"
	switch filter.OrderBy {
	case "created_asc":
		orderBy = "id ASC"
	case "denomination":
		orderBy = "denomination ASC, id DESC"
	}

	var batches []models.VoucherBatch
	err := applyPagination(query.Order(orderBy), filter.Page, filter.PageSize).
		Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// CountByNumberPrefix counts batches whose number starts with prefix, used
// for the daily sequence portion of new batch numbers.
func (r *GormVoucherBatchRepository) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VoucherBatch{}).
		Where("batch_number LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

func (r *GormVoucherBatchRepository) Update(ctx context.Context, batch *models.VoucherBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}
