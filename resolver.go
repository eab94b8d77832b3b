package kfolio

import (
	"fmt"

	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

// ProxyCurrencies is the ordered list of intermediate currencies tried when a
// direct market for a pair does not exist.
var ProxyCurrencies = []string{"USD", "EUR", "GBP"}

// CryptoSource returns market prices from a crypto exchange.
type CryptoSource interface {
	// Latest returns the last traded price for the pair.
	Latest(from, to string) (float64, error)
	// Daily returns the daily close series for the pair.
	Daily(from, to string) (*date.Series, error)
}

// FiatSource returns foreign exchange rates for a base currency.
type FiatSource interface {
	// Latest returns the current rates map for the base currency.
	Latest(base string) (map[string]float64, error)
	// On returns the rates map for the base currency on a given day.
	On(base string, on date.Date) (map[string]float64, error)
}

// Resolver turns a currency pair and an optional day into a price.
//
// Resolution order: identity, disk cache, then the live source matching the
// from-unit's kind. When the source has no market for the direct pair, the
// resolver retries through each proxy currency, composing the rate from the
// two hops. Resolved values are written back to the cache before returning.
//
// The resolver does not second-guess source data: a zero or negative price is
// passed through unchanged.
type Resolver struct {
	cache   *RateCache
	crypto  CryptoSource
	fiat    FiatSource
	proxies []string
	log     *zap.Logger
}

// NewResolver wires a resolver from its collaborators.
func NewResolver(cache *RateCache, crypto CryptoSource, fiat FiatSource, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		cache:   cache,
		crypto:  crypto,
		fiat:    fiat,
		proxies: ProxyCurrencies,
		log:     log,
	}
}

// SetProxies overrides the proxy currency list tried on two-hop conversions.
func (r *Resolver) SetProxies(proxies []string) {
	if len(proxies) > 0 {
		r.proxies = proxies
	}
}

// Resolve returns the from→to rate. A zero day means the latest rate; a
// non-zero day means the rate on that day, or on the nearest day the sources
// have data for.
func (r *Resolver) Resolve(from, to Unit, on date.Date) (float64, error) {
	if from.Name == to.Name {
		return 1, nil
	}

	if on.IsZero() {
		if v, ok := r.cache.Latest(from.Name, to.Name); ok {
			return v, nil
		}
		v, err := r.latest(from, to)
		if err != nil {
			return 0, err
		}
		r.cache.PutLatest(from.Name, to.Name, v)
		return v, nil
	}

	if v, ok := r.cache.On(from.Name, to.Name, on); ok {
		return v, nil
	}
	s, err := r.daily(from, to, on)
	if err != nil {
		return 0, err
	}
	r.cache.PutSeries(from.Name, to.Name, s)
	if v, ok := s.Get(on); ok {
		return v, nil
	}
	v, ok := s.Nearest(on)
	if !ok {
		return 0, fmt.Errorf("no data for %s/%s around %s: %w", from, to, on, ErrConversionUnavailable)
	}
	return v, nil
}

// Convert resolves the from→to rate and applies it to amount.
func (r *Resolver) Convert(from, to Unit, amount float64, on date.Date) (float64, error) {
	if from.Name == to.Name {
		return amount, nil
	}
	rate, err := r.Resolve(from, to, on)
	if err != nil {
		return 0, err
	}
	return rate * amount, nil
}

// fetchLatest queries the live source matching the from-unit's kind for the
// current direct rate.
func (r *Resolver) fetchLatest(from, to Unit) (float64, error) {
	if from.Kind == Crypto {
		return r.crypto.Latest(from.Name, to.Name)
	}
	rates, err := r.fiat.Latest(from.Name)
	if err != nil {
		return 0, err
	}
	v, ok := rates[to.Name]
	if !ok {
		return 0, fmt.Errorf("no %s rate for base %s: %w", to.Name, from.Name, ErrUnknownPair)
	}
	return v, nil
}

// fetchDaily queries the live source matching the from-unit's kind for a
// historical series of the direct pair. For fiat sources, which serve one day
// per request, the series holds the single requested day.
func (r *Resolver) fetchDaily(from, to Unit, on date.Date) (*date.Series, error) {
	if from.Kind == Crypto {
		return r.crypto.Daily(from.Name, to.Name)
	}
	rates, err := r.fiat.On(from.Name, on)
	if err != nil {
		return nil, err
	}
	v, ok := rates[to.Name]
	if !ok {
		return nil, fmt.Errorf("no %s rate for base %s on %s: %w", to.Name, from.Name, on, ErrUnknownPair)
	}
	return new(date.Series).Append(on, v), nil
}

// latest returns the current from→to rate, falling back to a two-hop proxy
// conversion when the direct pair fails.
func (r *Resolver) latest(from, to Unit) (float64, error) {
	v, err := r.fetchLatest(from, to)
	if err == nil {
		return v, nil
	}
	direct := err
	r.log.Debug("direct pair failed, trying proxy currencies",
		zap.String("from", from.Name), zap.String("to", to.Name), zap.Error(direct))

	for _, p := range r.proxies {
		proxy := UnitOf(p)
		v1, err := r.fetchLatest(from, proxy)
		if err != nil {
			continue
		}
		v2, err := r.fetchLatest(proxy, to)
		if err != nil {
			continue
		}
		r.log.Debug("proxy conversion succeeded", zap.String("proxy", p))
		return v1 * v2, nil
	}
	return 0, fmt.Errorf("cannot convert %s to %s (%v): %w", from, to, direct, ErrConversionUnavailable)
}

// daily returns a historical from→to series, falling back to a two-hop proxy
// conversion when the direct pair fails. The two hop series are aligned on
// calendar days and intersected on the shorter one before multiplying.
func (r *Resolver) daily(from, to Unit, on date.Date) (*date.Series, error) {
	s, err := r.fetchDaily(from, to, on)
	if err == nil {
		return s, nil
	}
	direct := err
	r.log.Debug("direct pair failed, trying proxy currencies",
		zap.String("from", from.Name), zap.String("to", to.Name), zap.Error(direct))

	for _, p := range r.proxies {
		proxy := UnitOf(p)
		s1, err := r.fetchDaily(from, proxy, on)
		if err != nil {
			continue
		}
		s2, err := r.fetchDaily(proxy, to, on)
		if err != nil {
			continue
		}
		if composed := s1.Mul(s2); composed.Len() > 0 {
			r.log.Debug("proxy conversion succeeded", zap.String("proxy", p))
			return composed, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %s to %s (%v): %w", from, to, direct, ErrConversionUnavailable)
}
