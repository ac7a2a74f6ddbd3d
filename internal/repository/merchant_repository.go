package repository

import (
	"context"
	"errors"

	"github.com/mobi-voucher/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MerchantRepository persists merchants, their applications and stock rows.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
	GetByEmail(ctx context.Context, email string) (*models.Merchant, error)
	GetByCode(ctx context.Context, code string) (*models.Merchant, error)
	Create(ctx context.Context, merchant *models.Merchant) error
	Update(ctx context.Context, merchant *models.Merchant) error

	CreateApplication(ctx context.Context, app *models.MerchantApplication) error
	GetApplicationByID(ctx context.Context, id uint) (*models.MerchantApplication, error)
	GetApplicationByIDForUpdate(ctx context.Context, id uint) (*models.MerchantApplication, error)
	GetPendingApplication(ctx context.Context, applicantID, parentID uint) (*models.MerchantApplication, error)
	ListApplications(ctx context.Context, filter ApplicationListFilter) ([]models.MerchantApplication, int64, error)
	UpdateApplication(ctx context.Context, app *models.MerchantApplication) error

	GetStock(ctx context.Context, merchantID uint, denomination int64) (*models.MerchantStock, error)
	GetStockForUpdate(ctx context.Context, merchantID uint, denomination int64) (*models.MerchantStock, error)
	CreateStock(ctx context.Context, stock *models.MerchantStock) error
	UpdateStock(ctx context.Context, stock *models.MerchantStock) error
	ListStock(ctx context.Context, merchantID uint) ([]models.MerchantStock, error)

	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) MerchantRepository
}

type GormMerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &GormMerchantRepository{db: db}
}

func (r *GormMerchantRepository) WithTx(tx *gorm.DB) MerchantRepository {
	return &GormMerchantRepository{db: tx}
}

func (r *GormMerchantRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *GormMerchantRepository) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).First(&merchant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *GormMerchantRepository) GetByEmail(ctx context.Context, email string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&merchant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *GormMerchantRepository) GetByCode(ctx context.Context, code string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&merchant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *GormMerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *GormMerchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

func (r *GormMerchantRepository) CreateApplication(ctx context.Context, app *models.MerchantApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *GormMerchantRepository) GetApplicationByID(ctx context.Context, id uint) (*models.MerchantApplication, error) {
	var app models.MerchantApplication
	err := r.db.WithContext(ctx).First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormMerchantRepository) GetApplicationByIDForUpdate(ctx context.Context, id uint) (*models.MerchantApplication, error) {
	var app models.MerchantApplication
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormMerchantRepository) GetPendingApplication(ctx context.Context, applicantID, parentID uint) (*models.MerchantApplication, error) {
	var app models.MerchantApplication
	err := r.db.WithContext(ctx).
		Where("applicant_id = ? AND parent_id = ? AND status = ?", applicantID, parentID, "pending").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormMerchantRepository) ListApplications(ctx context.Context, filter ApplicationListFilter) ([]models.MerchantApplication, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MerchantApplication{})

	if filter.ApplicantID > 0 {
		query = query.Where("applicant_id = ?", filter.ApplicantID)
	}
	if filter.ParentID > 0 {
		query = query.Where("parent_id = ?", filter.ParentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []models.MerchantApplication
	err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).
		Preload("Applicant").
		Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *GormMerchantRepository) UpdateApplication(ctx context.Context, app *models.MerchantApplication) error {
	return r.db.WithContext(ctx).Save(app).Error
}

func (r *GormMerchantRepository) GetStock(ctx context.Context, merchantID uint, denomination int64) (*models.MerchantStock, error) {
	var stock models.MerchantStock
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND denomination = ?", merchantID, denomination).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

// GetStockForUpdate locks the stock row so concurrent purchases cannot
// oversell the same bundles.
func (r *GormMerchantRepository) GetStockForUpdate(ctx context.Context, merchantID uint, denomination int64) (*models.MerchantStock, error) {
	var stock models.MerchantStock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND denomination = ?", merchantID, denomination).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (r *GormMerchantRepository) CreateStock(ctx context.Context, stock *models.MerchantStock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *GormMerchantRepository) UpdateStock(ctx context.Context, stock *models.MerchantStock) error {
	return r.db.WithContext(ctx).Save(stock).Error
}

func (r *GormMerchantRepository) ListStock(ctx context.Context, merchantID uint) ([]models.MerchantStock, error) {
	var stocks []models.MerchantStock
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("denomination ASC").
		Find(&stocks).Error
	return stocks, err
}
