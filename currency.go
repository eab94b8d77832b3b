package kfolio

import (
	"github.com/etnz/kfolio/date"
)

// Kind distinguishes the two families of currencies the tracker understands.
// The kind decides which live source resolves a pair: fiat rates come from the
// forex API, everything else is assumed to trade on the exchange.
type Kind int

const (
	Fiat Kind = iota
	Crypto
)

func (k Kind) String() string {
	switch k {
	case Fiat:
		return "fiat"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Unit is the immutable identity of a currency: its ticker and its kind.
// Units are created on demand from a ticker and are freely comparable.
type Unit struct {
	Name string
	Kind Kind
}

func (u Unit) String() string { return u.Name }

// fiatTickers is the static membership set used to classify a ticker.
// Anything not listed here is treated as a crypto asset.
var fiatTickers = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CHF": {}, "JPY": {}, "CAD": {},
	"AUD": {}, "NZD": {}, "SEK": {}, "NOK": {}, "DKK": {}, "PLN": {},
	"CZK": {}, "HUF": {}, "RON": {}, "BGN": {}, "ISK": {}, "RUB": {},
	"TRY": {}, "ILS": {}, "AED": {}, "SAR": {}, "INR": {}, "CNY": {},
	"HKD": {}, "SGD": {}, "KRW": {}, "TWD": {}, "THB": {}, "MYR": {},
	"IDR": {}, "PHP": {}, "VND": {}, "ZAR": {}, "MXN": {}, "BRL": {},
	"ARS": {}, "CLP": {}, "COP": {}, "PEN": {},
}

// UnitOf classifies a ticker and returns its Unit.
func UnitOf(ticker string) Unit {
	if _, ok := fiatTickers[ticker]; ok {
		return Unit{Name: ticker, Kind: Fiat}
	}
	return Unit{Name: ticker, Kind: Crypto}
}

// NewHolding instantiates an empty position in this currency, valued against
// the given reporting unit. Rates are resolved through r.
func (u Unit) NewHolding(base Unit, r *Resolver) *Holding {
	return &Holding{unit: u, base: base, resolver: r}
}

// Convert is a convenience for resolving the u→to rate through r and applying
// it to amount. A zero date means the latest rate.
func (u Unit) Convert(r *Resolver, to Unit, amount float64, on date.Date) (float64, error) {
	return r.Convert(u, to, amount, on)
}
