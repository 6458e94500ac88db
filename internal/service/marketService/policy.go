package marketService

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/papertrade/papertrade/config"
	"github.com/shopspring/decimal"
)

// PricePolicy draws the next price for a stock from its current price.
// Both known variants of the feed are expressed as policies, the canonical
// one is picked in config.
type PricePolicy interface {
	Perturb(price decimal.Decimal) decimal.Decimal
}

// AbsoluteDeltaPolicy shifts the price by a uniform delta in [-max, +max].
type AbsoluteDeltaPolicy struct {
	max decimal.Decimal
	rnd *rand.Rand
}

func NewAbsoluteDeltaPolicy(max decimal.Decimal) *AbsoluteDeltaPolicy {
	return &AbsoluteDeltaPolicy{
		max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *AbsoluteDeltaPolicy) Perturb(price decimal.Decimal) decimal.Decimal {
	delta := p.max.Mul(decimal.NewFromFloat(p.rnd.Float64()*2 - 1))
	return price.Add(delta)
}

// PercentDeltaPolicy shifts the price by a uniform percentage in
// [-maxPercent, +maxPercent].
type PercentDeltaPolicy struct {
	maxPercent decimal.Decimal
	rnd        *rand.Rand
}

func NewPercentDeltaPolicy(maxPercent decimal.Decimal) *PercentDeltaPolicy {
	return &PercentDeltaPolicy{
		maxPercent: maxPercent,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *PercentDeltaPolicy) Perturb(price decimal.Decimal) decimal.Decimal {
	pct := p.maxPercent.Mul(decimal.NewFromFloat(p.rnd.Float64()*2 - 1))
	return price.Add(price.Mul(pct).Div(decimal.NewFromInt(100)))
}

// PolicyFromConfig builds the configured perturbation policy.
func PolicyFromConfig(cfg *config.Config) (PricePolicy, error) {
	switch cfg.Feed.Policy {
	case "absolute":
		max, err := decimal.NewFromString(cfg.Feed.MaxDelta)
		if err != nil {
			return nil, fmt.Errorf("parse FEED_MAX_DELTA: %w", err)
		}
		return NewAbsoluteDeltaPolicy(max), nil
	case "percent":
		maxPercent, err := decimal.NewFromString(cfg.Feed.MaxPercent)
		if err != nil {
			return nil, fmt.Errorf("parse FEED_MAX_PERCENT: %w", err)
		}
		return NewPercentDeltaPolicy(maxPercent), nil
	default:
		return nil, fmt.Errorf("unknown feed policy %q", cfg.Feed.Policy)
	}
}
