package models

import (
	"strings"

	"github.com/mobi-voucher/internal/constants"
	"github.com/mobi-voucher/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultMerchant creates the bootstrap merchant account when the
// merchants table is empty. The wallet account is created alongside so that
// funding works immediately.
func InitDefaultMerchant(code, email, password string) error {
	var count int64
	DB.Model(&Merchant{}).Count(&count)
	if count > 0 {
		return nil
	}

	if code == "" {
		code = "MV"
	}
	if email == "" {
		email = "root@mobivoucher.local"
	}
	if password == "" {
		password = "merchant123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	merchant := Merchant{
		Code:         strings.ToUpper(strings.TrimSpace(code)),
		Name:         "Root Merchant",
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Status:       constants.MerchantStatusActive,
	}
	if err := DB.Create(&merchant).Error; err != nil {
		return err
	}
	account := WalletAccount{
		MerchantID: merchant.ID,
		Currency:   constants.WalletCurrencyDefault,
	}
	if err := DB.Create(&account).Error; err != nil {
		return err
	}

	if password == "merchant123" {
		logger.Warnw("default_merchant_created_with_default_password", "email", merchant.Email)
		logger.Warnw("default_merchant_password_change_required", "email", merchant.Email)
	} else {
		logger.Warnw("default_merchant_created", "email", merchant.Email, "password_hidden", true)
	}
	return nil
}
