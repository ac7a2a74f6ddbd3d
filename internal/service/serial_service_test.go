package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/repository"
)

// collidingCardRepo reports every candidate prefix as taken.
type collidingCardRepo struct {
	repository.VoucherCardRepository
	calls int
}

func (r *collidingCardRepo) SerialPrefixExists(ctx context.Context, prefix string) (bool, error) {
	r.calls++
	return true, nil
}

func TestGenerateBundlePrefixExhausted(t *testing.T) {
	repo := &collidingCardRepo{}
	svc := NewSerialService(repo, 12, 4)

	_, err := svc.GenerateBundlePrefix(context.Background(), 500, time.Now(), 0)
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("err = %v, want ErrGenerationExhausted", err)
	}
	if repo.calls != 4 {
		t.Fatalf("collision checks = %d, want 4", repo.calls)
	}
}

func TestGenerateBundlePrefixUnique(t *testing.T) {
	env := setupTestEnv(t, "serial_prefix_unique")
	svc := NewSerialService(env.cardRepo, 12, 10)

	issueDate := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		prefix, err := svc.GenerateBundlePrefix(context.Background(), 1000, issueDate, i)
		if err != nil {
			t.Fatalf("generate prefix failed: %v", err)
		}
		if !strings.HasPrefix(prefix, "1000260315") {
			t.Fatalf("prefix %q does not encode denomination and date", prefix)
		}
		if seen[prefix] {
			t.Fatalf("duplicate prefix %q", prefix)
		}
		seen[prefix] = true

		// persist so the next iteration's collision check sees it
		bundle := models.VoucherBundle{BatchID: 1, SerialPrefix: prefix, Denomination: 1000, CardCount: 5}
		if err := env.db.Create(&bundle).Error; err != nil {
			t.Fatalf("create bundle failed: %v", err)
		}
	}
}

func TestCardSerialDeterministic(t *testing.T) {
	svc := NewSerialService(nil, 12, 10)

	if got := svc.CardSerial("ABC123", 0); got != "ABC12300" {
		t.Fatalf("serial = %q, want ABC12300", got)
	}
	if got := svc.CardSerial("ABC123", 7); got != "ABC12307" {
		t.Fatalf("serial = %q, want ABC12307", got)
	}
	if got := svc.CardSerial("ABC123", 99); got != "ABC12399" {
		t.Fatalf("serial = %q, want ABC12399", got)
	}
	if svc.CardSerial("ABC123", 42) != svc.CardSerial("ABC123", 42) {
		t.Fatal("serial not deterministic for same inputs")
	}
}

func TestGeneratePin(t *testing.T) {
	svc := NewSerialService(nil, 12, 10)

	first, err := svc.GeneratePin()
	if err != nil {
		t.Fatalf("generate pin failed: %v", err)
	}
	if len(first) != 12 {
		t.Fatalf("pin length = %d, want 12", len(first))
	}
	for _, c := range first {
		if c < '0' || c > '9' {
			t.Fatalf("pin contains non-digit %q", c)
		}
	}

	second, err := svc.GeneratePin()
	if err != nil {
		t.Fatalf("generate pin failed: %v", err)
	}
	if first == second {
		t.Fatal("two generated pins are identical")
	}
}

func TestSerialServicePinLengthFloor(t *testing.T) {
	svc := NewSerialService(nil, 3, 10)
	pin, err := svc.GeneratePin()
	if err != nil {
		t.Fatalf("generate pin failed: %v", err)
	}
	if len(pin) != 12 {
		t.Fatalf("pin length = %d, want default 12 for too-short configuration", len(pin))
	}
}
