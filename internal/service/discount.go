package service

import (
	"sort"

	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/models"

	"github.com/shopspring/decimal"
)

// DiscountTier is one row of the volume discount table.
type DiscountTier struct {
	MinBundles int
	Percent    decimal.Decimal
}

// DiscountQuote is the priced result for a (denomination, bundleCount)
// pair.
type DiscountQuote struct {
	DiscountPercent decimal.Decimal
	DiscountApplied bool
	Total           models.Money
}

// DiscountCalculator maps bundle volume to a discount percent and a total
// cost. Pure and replayable: the same inputs always price identically, so
// a recorded batch cost can be re-derived during audits.
type DiscountCalculator struct {
	tiers      []DiscountTier
	bundleSize int
}

func NewDiscountCalculator(cfg config.VoucherConfig) *DiscountCalculator {
	tiers := make([]DiscountTier, 0, len(cfg.DiscountTiers))
	for _, t := range cfg.DiscountTiers {
		tiers = append(tiers, DiscountTier{
			MinBundles: t.MinBundles,
			Percent:    decimal.NewFromFloat(t.Percent),
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinBundles < tiers[j].MinBundles })
	return &DiscountCalculator{tiers: tiers, bundleSize: cfg.BundleSize}
}

// Quote prices bundleCount bundles of the given denomination. The gross is
// bundleCount × bundleSize × denomination; the discount percent is the
// highest tier whose MinBundles the count reaches. Rounding (half-up, two
// decimal places) happens exactly once, on the final total.
func (c *DiscountCalculator) Quote(denomination int64, bundleCount int) DiscountQuote {
	percent := decimal.Zero
	for _, tier := range c.tiers {
		if bundleCount >= tier.MinBundles {
			percent = tier.Percent
		}
	}

	gross := decimal.NewFromInt(int64(bundleCount)).
		Mul(decimal.NewFromInt(int64(c.bundleSize))).
		Mul(decimal.NewFromInt(denomination))
	factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
	total := gross.Mul(factor).Round(2)

	return DiscountQuote{
		DiscountPercent: percent,
		DiscountApplied: percent.IsPositive(),
		Total:           models.NewMoneyFromDecimal(total),
	}
}
