package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/mobi-voucher/internal/repository"
)

const (
	pinMinLength          = 6
	defaultPinLength      = 12
	defaultSerialAttempts = 10
	cardIndexWidth        = 2
)

// SerialService produces bundle serial prefixes, card serials and PINs.
//
// A prefix encodes denomination, issue date and a batch-local counter, plus
// a random disambiguator so that two batches issued the same day for the
// same denomination never share a prefix. Every candidate is checked against
// the registry and re-rolled on collision, up to a bounded retry budget.
type SerialService struct {
	cardRepo    repository.VoucherCardRepository
	pinLength   int
	maxAttempts int
}

func NewSerialService(cardRepo repository.VoucherCardRepository, pinLength, maxAttempts int) *SerialService {
	if pinLength < pinMinLength {
		pinLength = defaultPinLength
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultSerialAttempts
	}
	return &SerialService{cardRepo: cardRepo, pinLength: pinLength, maxAttempts: maxAttempts}
}

// WithRepo returns a copy bound to another card repository, typically the
// transaction-scoped one during issuance so collision checks see bundles
// created earlier in the same transaction.
func (s *SerialService) WithRepo(cardRepo repository.VoucherCardRepository) *SerialService {
	return &SerialService{cardRepo: cardRepo, pinLength: s.pinLength, maxAttempts: s.maxAttempts}
}

// GenerateBundlePrefix returns a registry-unique serial prefix for the
// bundleIndex-th bundle of a batch issued on issueDate.
func (s *SerialService) GenerateBundlePrefix(ctx context.Context, denomination int64, issueDate time.Time, bundleIndex int) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		disambiguator, err := randomDigits(4)
		if err != nil {
			return "", err
		}
		prefix := fmt.Sprintf("%d%s%02d%s",
			denomination,
			issueDate.Format("060102"),
			bundleIndex%100,
			disambiguator,
		)
		exists, err := s.cardRepo.SerialPrefixExists(ctx, prefix)
		if err != nil {
			return "", err
		}
		if !exists {
			return prefix, nil
		}
	}
	return "", ErrGenerationExhausted
}

// CardSerial derives the serial for a card at index within its bundle.
// Deterministic: prefix plus a zero-padded index, so cards within a bundle
// can never collide.
func (s *SerialService) CardSerial(prefix string, index int) string {
	return fmt.Sprintf("%s%0*d", prefix, cardIndexWidth, index)
}

// GeneratePin returns a fixed-length numeric PIN drawn from crypto/rand.
// PINs are independent per card; nothing about a serial or a sibling PIN
// narrows the search space.
func (s *SerialService) GeneratePin() (string, error) {
	return randomDigits(s.pinLength)
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	max := big.NewInt(10)
	for i := range digits {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
