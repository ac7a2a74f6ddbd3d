package service

import "errors"

// Sentinel errors returned by services. Handlers map these onto API error
// codes with errors.Is.
var (
	ErrBatchNotFound        = errors.New("batch not found")
	ErrCardNotFound         = errors.New("card not found")
	ErrCardAlreadyUsed      = errors.New("card already used")
	ErrCardInvalidated      = errors.New("card invalidated")
	ErrCardNotSold          = errors.New("card has not been sold yet")
	ErrWrongPin             = errors.New("wrong pin")
	ErrInvalidTransition    = errors.New("invalid card state transition")
	ErrInvalidDenomination  = errors.New("denomination not supported")
	ErrInvalidBundleCount   = errors.New("bundle count out of range")
	ErrGenerationExhausted  = errors.New("could not generate a unique identifier")
	ErrReplacedBatchInvalid = errors.New("replaced batch must be deactivated first")
	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
	ErrWalletNotFound       = errors.New("wallet account not found")
	ErrWalletInvalidAmount  = errors.New("wallet amount must be positive")
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrMerchantDisabled     = errors.New("merchant account disabled")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("email already registered")
	ErrCodeTaken            = errors.New("merchant code already registered")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationDecided   = errors.New("application already decided")
	ErrApplicationPending   = errors.New("a pending application already exists")
	ErrSelfApplication      = errors.New("cannot apply to yourself")
	ErrStockNotFound        = errors.New("stock not found for denomination")
	ErrInsufficientStock    = errors.New("insufficient stock bundles")
	ErrNotSubMerchant       = errors.New("merchant is not affiliated with this parent")
)
