package kfolio

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// pairState tracks the trade-pair parser across ledger rows. Trade legs come
// as two consecutive rows; the first is buffered until its counterpart
// arrives.
type pairState int

const (
	awaitingFirstLeg pairState = iota
	awaitingSecondLeg
)

// Checkpointer persists a portfolio snapshot after each processed entry, so a
// later run can resume the replay from where this one stopped.
type Checkpointer interface {
	Save(Checkpoint) error
}

// Replay folds an ordered stream of ledger entries into the portfolio.
//
// Deposits top up the asset's holding. Trade rows are paired: the negative
// leg is the sale, the positive leg the purchase. A deposit arriving between
// two legs, two legs with the same sign, or a leg left without a counterpart
// at the end of the stream corrupt the ledger and abort the replay.
//
// After every completed mutation the portfolio state is checkpointed (when
// ckpt is non-nil) so the replay can resume from the last processed entry.
func (p *Portfolio) Replay(entries []LedgerEntry, ckpt Checkpointer) error {
	state := awaitingFirstLeg
	var firstLeg LedgerEntry

	for _, entry := range entries {
		p.log.Debug("replaying entry", zap.Stringer("entry", entry))

		switch entry.Type {
		case Deposit:
			if state == awaitingSecondLeg {
				return fmt.Errorf("deposit %s interleaved in a trade pair: %w", entry.Asset, ErrCorruptedLedger)
			}
			unit := UnitOf(entry.Asset)
			if err := p.TopUp(math.Abs(entry.Amount), unit, math.Abs(entry.Fee), entry.Time); err != nil {
				return err
			}

		case Trade:
			if state == awaitingFirstLeg {
				firstLeg, state = entry, awaitingSecondLeg
				continue
			}
			state = awaitingFirstLeg
			sell, buy := firstLeg, entry
			if sell.Amount >= 0 {
				sell, buy = entry, firstLeg
			}
			if buy.Amount < 0 {
				return fmt.Errorf("trade legs %s/%s are both outflows: %w", firstLeg.Asset, entry.Asset, ErrCorruptedLedger)
			}
			if sell.Amount >= 0 {
				return fmt.Errorf("trade legs %s/%s are both inflows: %w", firstLeg.Asset, entry.Asset, ErrCorruptedLedger)
			}
			err := p.Trade(math.Abs(sell.Amount), UnitOf(sell.Asset),
				buy.Amount, UnitOf(buy.Asset),
				sell.Fee, buy.Fee, entry.Time)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("unsupported ledger entry type %q: %w", entry.Type, ErrCorruptedLedger)
		}

		if state == awaitingFirstLeg && ckpt != nil {
			if err := ckpt.Save(p.State()); err != nil {
				return fmt.Errorf("checkpoint after %s: %w", entry.Time.Format(time.RFC3339), err)
			}
		}
	}

	if state == awaitingSecondLeg {
		return fmt.Errorf("trade leg %s without a counterpart at end of ledger: %w", firstLeg.Asset, ErrCorruptedLedger)
	}
	return nil
}

// Sync brings a portfolio up to date with the ledger source: it restores the
// checkpoint when one exists, requests the entries strictly after the last
// processed timestamp, and replays them with per-entry checkpointing.
func Sync(src LedgerSource, store *CheckpointFile, base Unit, r *Resolver, log *zap.Logger) (*Portfolio, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := NewPortfolio(base, r, log)
	if c, ok, err := store.Load(); err != nil {
		return nil, fmt.Errorf("cannot load checkpoint: %w", err)
	} else if ok {
		p, err = Restore(c, r, log)
		if err != nil {
			return nil, fmt.Errorf("cannot restore checkpoint: %w", err)
		}
		log.Debug("resuming from checkpoint", zap.Time("last_update", p.LastUpdate()))
	}

	entries, err := src.Ledgers(p.LastUpdate())
	if err != nil {
		return nil, fmt.Errorf("cannot fetch ledger: %w", err)
	}
	// The source contract is "strictly after", but a replayed entry must never
	// be processed twice: drop anything at or before the cursor.
	fresh := entries[:0:0]
	for _, e := range entries {
		if e.Time.After(p.LastUpdate()) {
			fresh = append(fresh, e)
		}
	}

	if err := p.Replay(fresh, store); err != nil {
		return nil, err
	}
	return p, nil
}
