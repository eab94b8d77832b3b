package kfolio

import "errors"

// ErrInsufficientFunds is returned when a withdrawal or a sale exceeds the
// quantity currently held.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrCorruptedLedger is returned when trade rows cannot be paired into a
// two-sided trade (a lone leg, or two legs flowing in the same direction).
var ErrCorruptedLedger = errors.New("corrupted ledger")

// ErrConversionUnavailable is returned when neither a direct market nor any
// proxy-currency route resolves a rate for a pair.
var ErrConversionUnavailable = errors.New("conversion unavailable")

// ErrUnknownPair is reported by rate sources when they have no market for the
// requested pair. It triggers the proxy-currency fallback.
var ErrUnknownPair = errors.New("unknown pair")
