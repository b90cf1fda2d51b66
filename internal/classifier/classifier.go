// Package classifier normalizes heterogeneous upstream token records into the
// canonical TokenSnapshot shape and flags noise such as stablecoins.
// Per-record failures are absorbed here: a record that cannot be normalized is
// dropped, never propagated as an error.
package classifier

import (
	"strings"
	"time"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/types"
)

// placeholderPrice substitutes a zero or implausible price when no estimate is
// possible, so downstream ratio math never divides by zero.
const placeholderPrice = 1e-9

// mcapEstimateMultiple synthesizes a market cap from volume when the upstream
// omits it. Tokens in that state rarely pass the liquidity gate anyway.
const mcapEstimateMultiple = 10.0

// RawValues is the nested per-currency quote block some upstream shapes use.
type RawValues struct {
	Price            *float64 `json:"price"`
	Volume24h        *float64 `json:"volume24h"`
	MarketCap        *float64 `json:"marketCap"`
	PercentChange24h *float64 `json:"percentChange24h"`
}

// Raw is an upstream currency record before normalization. Different provider
// shapes report the same quantity under different keys; all known aliases are
// mapped here and reconciled by Normalize.
type Raw struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Price             *float64 `json:"price"`
	Volume24h         *float64 `json:"volume24h"`
	Volume            *float64 `json:"volume"`
	MarketCap         *float64 `json:"marketCap"`
	Mcap              *float64 `json:"mcap"`
	PriceChange24h    *float64 `json:"priceChange24h"`
	PercentChange24h  *float64 `json:"percentChange24h"`
	PercentChange     struct {
		H24 *float64 `json:"h24"`
	} `json:"percentChange"`
	High24h           *float64             `json:"high24h"`
	Low24h            *float64             `json:"low24h"`
	CirculatingSupply *float64             `json:"circulatingSupply"`
	Values            map[string]RawValues `json:"values"`
}

// Classifier normalizes raw records and applies the stablecoin heuristic.
type Classifier struct {
	stable  config.StablecoinConfig
	nowFunc func() time.Time
}

// New creates a classifier with the given stablecoin tunables.
func New(stable config.StablecoinConfig) *Classifier {
	return &Classifier{
		stable:  stable,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (c *Classifier) SetNowFunc(now func() time.Time) {
	c.nowFunc = now
}

// Normalize reconciles a raw upstream record into a canonical TokenSnapshot.
// Returns nil when the record is unusable: missing symbol, or both volume and
// market cap non-positive.
func (c *Classifier) Normalize(raw Raw) *types.TokenSnapshot {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return nil
	}

	usd, hasUSD := raw.Values["USD"]

	volume := firstPositive(raw.Volume24h, raw.Volume)
	mcap := firstPositive(raw.MarketCap, raw.Mcap)
	price := deref(raw.Price)
	if hasUSD {
		if volume <= 0 {
			volume = firstPositive(usd.Volume24h)
		}
		if mcap <= 0 {
			mcap = firstPositive(usd.MarketCap)
		}
		if price <= 0 {
			price = deref(usd.Price)
		}
	}

	if volume <= 0 && mcap <= 0 {
		return nil
	}

	if price <= 0 {
		supply := deref(raw.CirculatingSupply)
		if mcap > 0 && supply > 0 {
			price = mcap / supply
		} else {
			price = placeholderPrice
		}
	}

	// A missing market cap gets a synthesized estimate so scoring stays total.
	if mcap <= 0 {
		mcap = volume * mcapEstimateMultiple
	}

	return &types.TokenSnapshot{
		Symbol:         symbol,
		Name:           strings.TrimSpace(raw.Name),
		Price:          price,
		Volume24h:      volume,
		MarketCap:      mcap,
		PriceChange24h: c.priceChange(raw, price, hasUSD, usd),
		ObservedAt:     c.nowFunc(),
	}
}

// NormalizeBatch normalizes a batch, dropping unusable records. The returned
// count of dropped records is for logging at the caller.
func (c *Classifier) NormalizeBatch(raws []Raw) ([]types.TokenSnapshot, int) {
	snapshots := make([]types.TokenSnapshot, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		snap := c.Normalize(raw)
		if snap == nil {
			dropped++
			continue
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, dropped
}

// priceChange reconciles the 24h change percentage across upstream shapes,
// falling back to a high/low midpoint estimate when no sane reported value
// exists. Reported values at or beyond +/-100% are treated as implausible.
func (c *Classifier) priceChange(raw Raw, price float64, hasUSD bool, usd RawValues) float64 {
	candidates := []*float64{raw.PriceChange24h, raw.PercentChange24h, raw.PercentChange.H24}
	if hasUSD {
		candidates = append(candidates, usd.PercentChange24h)
	}
	for _, cand := range candidates {
		if cand == nil {
			continue
		}
		if *cand > -100 && *cand < 100 {
			return *cand
		}
	}

	high := deref(raw.High24h)
	low := deref(raw.Low24h)
	if high > 0 && low > 0 {
		avg := (high + low) / 2
		return (price - avg) / avg * 100
	}
	return 0
}

// IsStablecoin reports whether the snapshot is likely a stablecoin: price
// within the configured band and a known marker in the symbol or name.
// Heuristic only; false positives and negatives are accepted.
func (c *Classifier) IsStablecoin(snap types.TokenSnapshot) bool {
	if snap.Price < c.stable.PriceLow || snap.Price > c.stable.PriceHigh {
		return false
	}
	symbol := strings.ToUpper(snap.Symbol)
	name := strings.ToUpper(snap.Name)
	for _, marker := range c.stable.Markers {
		marker = strings.ToUpper(marker)
		if strings.Contains(symbol, marker) || strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func firstPositive(values ...*float64) float64 {
	for _, v := range values {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
