package kfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// checkpointVersion is bumped whenever the snapshot layout changes.
const checkpointVersion = 1

// HoldingState is the serializable snapshot of a single holding.
type HoldingState struct {
	Ticker             string  `json:"ticker"`
	Quantity           float64 `json:"quantity"`
	AvgBasePrice       float64 `json:"avg_base_price"`
	TotalInvested      float64 `json:"total_invested"`
	CumulativeInvested float64 `json:"cumulative_invested"`
	RealizedProfit     float64 `json:"realized_profit"`
}

// Checkpoint is the full serializable snapshot of a portfolio. It doubles as
// the structured state dump used for debug logging.
type Checkpoint struct {
	Version            int            `json:"version"`
	Base               string         `json:"base"`
	CreatedAt          time.Time      `json:"created_at"`
	FirstTransaction   time.Time      `json:"first_transaction,omitzero"`
	LastUpdate         time.Time      `json:"last_update,omitzero"`
	TotalInvested      float64        `json:"total_invested"`
	CumulativeInvested float64        `json:"cumulative_invested"`
	RealizedProfit     float64        `json:"realized_profit"`
	Holdings           []HoldingState `json:"holdings"`
}

// State snapshots a holding.
func (h *Holding) State() HoldingState {
	return HoldingState{
		Ticker:             h.unit.Name,
		Quantity:           h.quantity,
		AvgBasePrice:       h.avgBasePrice,
		TotalInvested:      h.invested,
		CumulativeInvested: h.cumInvested,
		RealizedProfit:     h.realized,
	}
}

// State snapshots the whole portfolio.
func (p *Portfolio) State() Checkpoint {
	c := Checkpoint{
		Version:            checkpointVersion,
		Base:               p.base.Name,
		CreatedAt:          p.created,
		FirstTransaction:   p.firstTx,
		LastUpdate:         p.lastUpdate,
		TotalInvested:      p.invested,
		CumulativeInvested: p.cumInvested,
		RealizedProfit:     p.realized,
	}
	for h := range p.Holdings() {
		c.Holdings = append(c.Holdings, h.State())
	}
	return c
}

// Restore rebuilds a portfolio from a checkpoint. Units are reclassified from
// their tickers, so the fiat membership set is not part of the snapshot.
func Restore(c Checkpoint, r *Resolver, log *zap.Logger) (*Portfolio, error) {
	if c.Version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d (want %d)", c.Version, checkpointVersion)
	}
	p := NewPortfolio(UnitOf(c.Base), r, log)
	p.created = c.CreatedAt
	p.firstTx = c.FirstTransaction
	p.lastUpdate = c.LastUpdate
	p.invested = c.TotalInvested
	p.cumInvested = c.CumulativeInvested
	p.realized = c.RealizedProfit
	for _, hs := range c.Holdings {
		h := UnitOf(hs.Ticker).NewHolding(p.base, r)
		h.quantity = hs.Quantity
		h.avgBasePrice = hs.AvgBasePrice
		h.invested = hs.TotalInvested
		h.cumInvested = hs.CumulativeInvested
		h.realized = hs.RealizedProfit
		p.holdings[hs.Ticker] = h
	}
	return p, nil
}

// CheckpointFile persists checkpoints as a single JSON file, overwritten
// wholesale. Writes go to a temp file first and are atomically renamed, so a
// crash cannot leave a truncated checkpoint behind.
type CheckpointFile struct {
	path string
}

// NewCheckpointFile returns a store writing to path.
func NewCheckpointFile(path string) *CheckpointFile { return &CheckpointFile{path: path} }

// Save overwrites the stored checkpoint.
func (f *CheckpointFile) Save(c Checkpoint) error {
	data, err := json.MarshalIndent(c, "", " ")
	if err != nil {
		return fmt.Errorf("cannot encode checkpoint: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create checkpoint dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create checkpoint temp file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), f.path)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot write checkpoint %q: %w", f.path, werr)
	}
	return nil
}

// Load reads the stored checkpoint. A missing file is not an error, it just
// reports false.
func (f *CheckpointFile) Load() (Checkpoint, bool, error) {
	var c Checkpoint
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("cannot read checkpoint %q: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("cannot decode checkpoint %q: %w", f.path, err)
	}
	return c, true, nil
}

var _ Checkpointer = (*CheckpointFile)(nil)
