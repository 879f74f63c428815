package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stock_insight_backend/models"
)

// Bar is one raw upstream observation before normalization.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Provider fetches raw bars from one upstream market data source.
//
// Implementations must pad the requested window by at least paddingPeriods
// full intervals before start so Normalize has a previous-close anchor for
// the first in-range row.
type Provider interface {
	FetchRange(ctx context.Context, code string, start, end time.Time, interval int) ([]Bar, error)

	// NativeInterval reports whether FetchRange returns bars already
	// bucketed at the requested interval. Daily-only sources return false
	// and rely on Normalize to resample.
	NativeInterval() bool
}

// paddingPeriods is how many full intervals of extra history each provider
// requests before the gap start. One would do for the anchor; three absorbs
// exchange holidays at the window edge.
const paddingPeriods = 3

func paddedStart(start time.Time, interval int) time.Time {
	return start.AddDate(0, 0, -paddingPeriods*interval)
}

// market binds a provider to the symbol form external services expect for
// instruments on that market.
type market struct {
	provider Provider
	suffix   string
}

// Registry dispatches on a ticker's market tag instead of scattering
// market-name comparisons through the fetch paths.
type Registry struct {
	markets map[string]market
}

// NewRegistry wires the KOSPI and US upstream sources.
func NewRegistry(kospi, us Provider) *Registry {
	return &Registry{
		markets: map[string]market{
			models.MarketKOSPI: {provider: kospi, suffix: ".KS"},
			models.MarketUS:    {provider: us},
		},
	}
}

// ProviderFor returns the upstream source for a market tag.
func (r *Registry) ProviderFor(marketTag string) (Provider, bool) {
	m, ok := r.markets[marketTag]
	if !ok {
		return nil, false
	}
	return m.provider, true
}

// AdjustedSymbol returns the symbol form shared external endpoints expect:
// KOSPI codes carry a market suffix, US codes pass through unchanged.
func (r *Registry) AdjustedSymbol(code, marketTag string) string {
	m, ok := r.markets[marketTag]
	if !ok {
		return code
	}
	return code + m.suffix
}
