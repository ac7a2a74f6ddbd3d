package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MerchantClaims is the merchant console JWT payload.
type MerchantClaims struct {
	MerchantID uint   `json:"merchant_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// MerchantService handles merchant accounts, sub-merchant applications and
// the parent-to-sub stock trade.
type MerchantService struct {
	merchantRepo repository.MerchantRepository
	walletSvc    *WalletService
	jwtCfg       config.JWTConfig
}

func NewMerchantService(merchantRepo repository.MerchantRepository, walletSvc *WalletService, jwtCfg config.JWTConfig) *MerchantService {
	return &MerchantService{merchantRepo: merchantRepo, walletSvc: walletSvc, jwtCfg: jwtCfg}
}

// Register creates a merchant account together with its wallet.
func (s *MerchantService) Register(ctx context.Context, code, name, email, password string) (*models.Merchant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	email = strings.ToLower(strings.TrimSpace(email))
	if code == "" || name == "" || email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: missing fields or password too short", ErrInvalidCredentials)
	}

	if existing, err := s.merchantRepo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	if existing, err := s.merchantRepo.GetByCode(ctx, code); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrCodeTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	merchant := &models.Merchant{
		Code:         code,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Status:       constants.MerchantStatusActive,
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, err
	}
	if _, err := s.walletSvc.EnsureAccount(ctx, merchant.ID); err != nil {
		return nil, err
	}
	logger.Infow("merchant_registered", "merchant_id", merchant.ID, "code", merchant.Code)
	return merchant, nil
}

// Login checks credentials and issues a signed token.
func (s *MerchantService) Login(ctx context.Context, email, password string) (string, *models.Merchant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	merchant, err := s.merchantRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if merchant == nil {
		return "", nil, ErrInvalidCredentials
	}
	if merchant.Status != constants.MerchantStatusActive {
		return "", nil, ErrMerchantDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(merchant.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	expire := time.Duration(s.jwtCfg.ExpireHours) * time.Hour
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	claims := MerchantClaims{
		MerchantID: merchant.ID,
		Email:      merchant.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", nil, err
	}
	return token, merchant, nil
}

// ParseToken validates a token and returns its claims.
func (s *MerchantService) ParseToken(tokenString string) (*MerchantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MerchantClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*MerchantClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Get returns the merchant or ErrMerchantNotFound.
func (s *MerchantService) Get(ctx context.Context, id uint) (*models.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	return merchant, nil
}

// ApplyToParent files an application to become a sub-merchant of parentID.
// One pending application per (applicant, parent) pair at a time.
func (s *MerchantService) ApplyToParent(ctx context.Context, applicantID, parentID uint, fee decimal.Decimal) (*models.MerchantApplication, error) {
	if applicantID == parentID {
		return nil, ErrSelfApplication
	}
	if fee.IsNegative() {
		return nil, ErrWalletInvalidAmount
	}
	parent, err := s.merchantRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil || parent.Status != constants.MerchantStatusActive {
		return nil, ErrMerchantNotFound
	}
	pending, err := s.merchantRepo.GetPendingApplication(ctx, applicantID, parentID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrApplicationPending
	}

	app := &models.MerchantApplication{
		ApplicantID: applicantID,
		ParentID:    parentID,
		Fee:         models.NewMoneyFromDecimal(fee),
		Status:      constants.ApplicationStatusPending,
	}
	if err := s.merchantRepo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	logger.Infow("merchant_application_filed", "application_id", app.ID, "applicant_id", applicantID, "parent_id", parentID)
	return app, nil
}

// DecideApplication accepts or rejects a pending application. Acceptance
// links the applicant to the parent; decisions are terminal.
func (s *MerchantService) DecideApplication(ctx context.Context, parentID, applicationID uint, accept bool) (*models.MerchantApplication, error) {
	var app *models.MerchantApplication
	err := s.merchantRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.merchantRepo.WithTx(tx)
		found, err := repo.GetApplicationByIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if found == nil || found.ParentID != parentID {
			return ErrApplicationNotFound
		}
		if found.Status != constants.ApplicationStatusPending {
			return ErrApplicationDecided
		}

		now := time.Now()
		found.DecidedAt = &now
		if accept {
			found.Status = constants.ApplicationStatusAccepted
			applicant, err := repo.GetByID(ctx, found.ApplicantID)
			if err != nil {
				return err
			}
			if applicant == nil {
				return ErrMerchantNotFound
			}
			applicant.ParentID = &found.ParentID
			if err := repo.Update(ctx, applicant); err != nil {
				return err
			}
		} else {
			found.Status = constants.ApplicationStatusRejected
		}
		if err := repo.UpdateApplication(ctx, found); err != nil {
			return err
		}
		app = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("merchant_application_decided",
		"application_id", app.ID,
		"parent_id", parentID,
		"status", app.Status,
	)
	return app, nil
}

// ListApplications pages applications for one side of the relationship.
func (s *MerchantService) ListApplications(ctx context.Context, filter repository.ApplicationListFilter) ([]models.MerchantApplication, int64, error) {
	return s.merchantRepo.ListApplications(ctx, filter)
}

// UpsertStock sets a parent merchant's sellable bundle inventory for one
// denomination.
func (s *MerchantService) UpsertStock(ctx context.Context, merchantID uint, denomination int64, availableBundles int, pricePerBundle decimal.Decimal) (*models.MerchantStock, error) {
	if availableBundles < 0 || !pricePerBundle.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	var stock *models.MerchantStock
	err := s.merchantRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.merchantRepo.WithTx(tx)
		found, err := repo.GetStockForUpdate(ctx, merchantID, denomination)
		if err != nil {
			return err
		}
		if found == nil {
			found = &models.MerchantStock{
				MerchantID:       merchantID,
				Denomination:     denomination,
				AvailableBundles: availableBundles,
				PricePerBundle:   models.NewMoneyFromDecimal(pricePerBundle),
			}
			if err := repo.CreateStock(ctx, found); err != nil {
				return err
			}
		} else {
			found.AvailableBundles = availableBundles
			found.PricePerBundle = models.NewMoneyFromDecimal(pricePerBundle)
			if err := repo.UpdateStock(ctx, found); err != nil {
				return err
			}
		}
		stock = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// ListStock returns a merchant's stock rows ordered by denomination.
func (s *MerchantService) ListStock(ctx context.Context, merchantID uint) ([]models.MerchantStock, error) {
	return s.merchantRepo.ListStock(ctx, merchantID)
}

// PurchaseStock moves bundles from the buyer's parent to the buyer: the
// stock row decrements, the buyer's wallet is debited and the parent's
// credited, all in one transaction. Wallets are locked in merchant-id
// order so crossing purchases cannot deadlock.
func (s *MerchantService) PurchaseStock(ctx context.Context, buyerID uint, denomination int64, bundles int) (*models.MerchantStock, error) {
	if bundles <= 0 {
		return nil, ErrInsufficientStock
	}
	buyer, err := s.merchantRepo.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrMerchantNotFound
	}
	if buyer.ParentID == nil {
		return nil, ErrNotSubMerchant
	}
	parentID := *buyer.ParentID

	var stock *models.MerchantStock
	err = s.merchantRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.merchantRepo.WithTx(tx)
		walletRepo := s.walletSvc.walletRepo.WithTx(tx)

		found, err := repo.GetStockForUpdate(ctx, parentID, denomination)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrStockNotFound
		}
		if found.AvailableBundles < bundles {
			return ErrInsufficientStock
		}

		firstID, secondID := buyerID, parentID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		accounts := make(map[uint]*models.WalletAccount, 2)
		for _, merchantID := range []uint{firstID, secondID} {
			account, err := walletRepo.GetAccountByMerchantIDForUpdate(ctx, merchantID)
			if err != nil {
				return err
			}
			if account == nil {
				return ErrWalletNotFound
			}
			accounts[merchantID] = account
		}

		total := found.PricePerBundle.Decimal.Mul(decimal.NewFromInt(int64(bundles)))
		reference := "STK-" + uuid.NewString()
		description := fmt.Sprintf("stock trade: %d bundle(s) of %d", bundles, denomination)

		if _, err := s.walletSvc.DebitInTx(ctx, tx, accounts[buyerID], total, constants.WalletTxnTypeStockPurchase, reference+"-buy", description, nil); err != nil {
			return err
		}
		if _, err := s.walletSvc.CreditInTx(ctx, tx, accounts[parentID], total, constants.WalletTxnTypeStockSale, reference+"-sell", description); err != nil {
			return err
		}

		found.AvailableBundles -= bundles
		if err := repo.UpdateStock(ctx, found); err != nil {
			return err
		}
		stock = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("stock_purchased",
		"buyer_id", buyerID,
		"parent_id", parentID,
		"denomination", denomination,
		"bundles", bundles,
	)
	return stock, nil
}
