package kfolio

import (
	"fmt"
	"time"
)

// EntryType is the kind of a ledger entry.
type EntryType string

const (
	// Deposit is an external top-up of a single asset.
	Deposit EntryType = "deposit"
	// Trade is one leg of a two-sided exchange. Trades always arrive as two
	// consecutive rows, one per leg.
	Trade EntryType = "trade"
)

// LedgerEntry is a single row of the exchange transaction ledger.
type LedgerEntry struct {
	Time   time.Time
	Type   EntryType
	Asset  string
	Amount float64 // signed: negative is an outflow
	Fee    float64
}

func (e LedgerEntry) String() string {
	return fmt.Sprintf("%s %s %v %s (fee %v)", e.Time.Format(time.RFC3339), e.Type, e.Amount, e.Asset, e.Fee)
}

// LedgerSource supplies ledger entries in ascending timestamp order,
// strictly after the start cursor.
type LedgerSource interface {
	Ledgers(start time.Time) ([]LedgerEntry, error)
}
