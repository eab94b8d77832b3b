package kfolio

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

// Portfolio aggregates holdings keyed by asset ticker, all valued against a
// single reporting currency.
//
// The portfolio keeps its own running totals (invested, cumulative invested,
// realized profit) updated incrementally with the same deltas as the holding
// mutations, so they stay equal to the sums over holdings without being
// recomputed.
type Portfolio struct {
	base     Unit
	resolver *Resolver
	holdings map[string]*Holding

	invested    float64
	cumInvested float64
	realized    float64

	created    time.Time
	firstTx    time.Time
	lastUpdate time.Time // timestamp of the last processed ledger entry

	log *zap.Logger
}

// NewPortfolio returns an empty portfolio reporting in the given unit.
func NewPortfolio(base Unit, r *Resolver, log *zap.Logger) *Portfolio {
	if log == nil {
		log = zap.NewNop()
	}
	return &Portfolio{
		base:     base,
		resolver: r,
		holdings: make(map[string]*Holding),
		created:  time.Now(),
		log:      log,
	}
}

func (p *Portfolio) Base() Unit                    { return p.base }
func (p *Portfolio) TotalInvested() float64        { return p.invested }
func (p *Portfolio) CumulativeInvested() float64   { return p.cumInvested }
func (p *Portfolio) RealizedProfit() float64       { return p.realized }
func (p *Portfolio) CreatedAt() time.Time          { return p.created }
func (p *Portfolio) FirstTransaction() time.Time   { return p.firstTx }
func (p *Portfolio) LastUpdate() time.Time         { return p.lastUpdate }
func (p *Portfolio) Holding(ticker string) *Holding { return p.holdings[ticker] }

// Holdings iterates over the holdings in ticker order.
func (p *Portfolio) Holdings() iter.Seq[*Holding] {
	return func(yield func(*Holding) bool) {
		for _, ticker := range slices.Sorted(maps.Keys(p.holdings)) {
			if !yield(p.holdings[ticker]) {
				return
			}
		}
	}
}

// holding returns the position for a unit, creating it empty on first use.
func (p *Portfolio) holding(unit Unit) *Holding {
	h, ok := p.holdings[unit.Name]
	if !ok {
		h = unit.NewHolding(p.base, p.resolver)
		p.holdings[unit.Name] = h
	}
	return h
}

// touch records the entry timestamp, remembering the first one ever seen.
func (p *Portfolio) touch(ts time.Time) {
	if p.firstTx.IsZero() {
		p.firstTx = ts
	}
	p.lastUpdate = ts
}

// TopUp deposits value units of the given currency, at the asset's current
// market price, minus the fee.
func (p *Portfolio) TopUp(value float64, unit Unit, fee float64, ts time.Time) error {
	h := p.holding(unit)
	before, cumBefore := h.TotalInvested(), h.CumulativeInvested()
	if err := h.TopUp(value, fee, date.Of(ts)); err != nil {
		return fmt.Errorf("deposit %v %s: %w", value, unit, err)
	}
	p.invested += h.TotalInvested() - before
	p.cumInvested += h.CumulativeInvested() - cumBefore
	p.touch(ts)

	p.log.Debug("top up",
		zap.String("asset", unit.Name),
		zap.Float64("value", value),
		zap.Float64("fee", fee),
		zap.Float64("total_invested", p.invested))
	return nil
}

// Trade sells valueSold units of sellUnit against valueBought units of
// buyUnit, booking the realized profit in the reporting currency.
//
// Selling an asset never held is an insufficient-funds error.
func (p *Portfolio) Trade(valueSold float64, sellUnit Unit, valueBought float64, buyUnit Unit, sellFee, buyFee float64, ts time.Time) error {
	sellH, ok := p.holdings[sellUnit.Name]
	if !ok {
		return fmt.Errorf("no %s to sell: %w", sellUnit, ErrInsufficientFunds)
	}
	buyH := p.holding(buyUnit)

	before := sellH.TotalInvested() + buyH.TotalInvested()
	cumBefore := sellH.CumulativeInvested() + buyH.CumulativeInvested()

	realized, profitUnit, err := sellH.Sell(buyH, valueSold, valueBought, sellFee, buyFee, date.Of(ts))
	if err != nil {
		return fmt.Errorf("trade %v %s for %v %s: %w", valueSold, sellUnit, valueBought, buyUnit, err)
	}

	converted, err := p.resolver.Convert(profitUnit, p.base, realized, date.Date{})
	if err != nil {
		return fmt.Errorf("trade %v %s for %v %s: %w", valueSold, sellUnit, valueBought, buyUnit, err)
	}
	p.realized += converted
	p.invested += sellH.TotalInvested() + buyH.TotalInvested() - before
	p.cumInvested += sellH.CumulativeInvested() + buyH.CumulativeInvested() - cumBefore
	p.touch(ts)

	p.log.Debug("trade",
		zap.String("sold", sellUnit.Name),
		zap.Float64("value_sold", valueSold),
		zap.String("bought", buyUnit.Name),
		zap.Float64("value_bought", valueBought),
		zap.Float64("realized", converted),
		zap.Float64("total_realized", p.realized))
	return nil
}

// CurrentValue returns the market value of all holdings in the given unit, at
// the latest rates.
func (p *Portfolio) CurrentValue(to Unit) (float64, error) {
	var total float64
	for h := range p.Holdings() {
		v, err := h.CurrentValue(to)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// TotalReturn returns the unrealized return (current value minus invested) in
// the given unit.
func (p *Portfolio) TotalReturn(to Unit) (float64, error) {
	current, err := p.CurrentValue(p.base)
	if err != nil {
		return 0, err
	}
	return p.resolver.Convert(p.base, to, current-p.invested, date.Date{})
}

// TotalReturnFromHoldings sums the per-holding unrealized returns instead of
// using the portfolio running total.
func (p *Portfolio) TotalReturnFromHoldings(to Unit) (float64, error) {
	var total float64
	for h := range p.Holdings() {
		v, err := h.TotalReturn(to)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// ReturnRate returns the unrealized return as a fraction of the current
// value, or 0 when the portfolio is worth nothing.
func (p *Portfolio) ReturnRate() (float64, error) {
	current, err := p.CurrentValue(p.base)
	if err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, nil
	}
	ret, err := p.TotalReturn(p.base)
	if err != nil {
		return 0, err
	}
	return ret / current, nil
}

// TotalInvestedIn returns the invested total converted into the given unit.
func (p *Portfolio) TotalInvestedIn(to Unit) (float64, error) {
	return p.resolver.Convert(p.base, to, p.invested, date.Date{})
}

// CumulativeInvestedIn returns the cumulative invested total converted into
// the given unit.
func (p *Portfolio) CumulativeInvestedIn(to Unit) (float64, error) {
	return p.resolver.Convert(p.base, to, p.cumInvested, date.Date{})
}

// RealizedReturn returns the realized profit converted into the given unit.
func (p *Portfolio) RealizedReturn(to Unit) (float64, error) {
	return p.resolver.Convert(p.base, to, p.realized, date.Date{})
}

// RealizedReturnRate returns the realized profit as a fraction of the
// withdrawn share of the cumulative invested total, or 0 when nothing was
// withdrawn.
func (p *Portfolio) RealizedReturnRate() float64 {
	denom := p.cumInvested - p.invested
	if denom == 0 {
		return 0
	}
	return p.realized / denom
}

// AllReturnRate returns realized plus unrealized return as a fraction of the
// cumulative invested total, or 0 when nothing was ever invested.
func (p *Portfolio) AllReturnRate() (float64, error) {
	if p.cumInvested == 0 {
		return 0, nil
	}
	ret, err := p.TotalReturn(p.base)
	if err != nil {
		return 0, err
	}
	return (p.realized + ret) / p.cumInvested, nil
}
