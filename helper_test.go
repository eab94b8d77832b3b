package kfolio

import (
	"fmt"
	"testing"
	"time"

	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

// fakeCrypto serves canned exchange prices, counting live calls so tests can
// assert on cache behavior. Pairs are keyed "FROM_TO"; a missing pair fails
// like a market that does not exist.
type fakeCrypto struct {
	latest map[string]float64
	daily  map[string]*date.Series
	calls  int
}

func (f *fakeCrypto) Latest(from, to string) (float64, error) {
	f.calls++
	v, ok := f.latest[from+"_"+to]
	if !ok {
		return 0, fmt.Errorf("no market for %s/%s: %w", from, to, ErrUnknownPair)
	}
	return v, nil
}

func (f *fakeCrypto) Daily(from, to string) (*date.Series, error) {
	f.calls++
	s, ok := f.daily[from+"_"+to]
	if !ok {
		return nil, fmt.Errorf("no market for %s/%s: %w", from, to, ErrUnknownPair)
	}
	return s, nil
}

// fakeFiat serves canned forex rates keyed by base currency.
type fakeFiat struct {
	rates map[string]map[string]float64
	calls int
}

func (f *fakeFiat) Latest(base string) (map[string]float64, error) {
	f.calls++
	r, ok := f.rates[base]
	if !ok {
		return nil, fmt.Errorf("no rates for base %s: %w", base, ErrUnknownPair)
	}
	return r, nil
}

func (f *fakeFiat) On(base string, on date.Date) (map[string]float64, error) {
	return f.Latest(base)
}

// newTestResolver builds a resolver over a throwaway on-disk cache.
func newTestResolver(t *testing.T, crypto *fakeCrypto, fiat *fakeFiat) *Resolver {
	t.Helper()
	if crypto == nil {
		crypto = &fakeCrypto{}
	}
	if fiat == nil {
		fiat = &fakeFiat{}
	}
	cache, err := NewRateCache(t.TempDir(), time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRateCache() failed: %v", err)
	}
	return NewResolver(cache, crypto, fiat, zap.NewNop())
}

// marketResolver is the standard fixture: BTC and ETH trade against USD, and
// USD converts to CHF and EUR through the forex side.
func marketResolver(t *testing.T) *Resolver {
	t.Helper()
	crypto := &fakeCrypto{
		latest: map[string]float64{
			"BTC_USD": 50000,
			"ETH_USD": 2500,
		},
		daily: map[string]*date.Series{
			"BTC_USD": new(date.Series).Append(date.New(2025, time.June, 1), 50000),
			"ETH_USD": new(date.Series).Append(date.New(2025, time.June, 1), 2500),
		},
	}
	fiat := &fakeFiat{rates: map[string]map[string]float64{
		"USD": {"CHF": 0.9, "EUR": 0.92},
		"EUR": {"USD": 1.087, "CHF": 0.978},
	}}
	return newTestResolver(t, crypto, fiat)
}

func ts(day int, hour int) time.Time {
	return time.Date(2025, time.June, day, hour, 0, 0, 0, time.UTC)
}
