package kfolio

import (
	"fmt"

	"github.com/etnz/kfolio/date"
)

// Holding is a position in a single asset, valued against a reporting
// currency fixed at creation.
//
// The position state is fully numeric: quantity held, average base price paid
// per unit, total invested (net of withdrawals), cumulative invested
// (monotonic, ignores withdrawals) and realized profit, all in the reporting
// currency. After every mutation totalInvested == quantity * avgBasePrice,
// with avgBasePrice defined as 0 when the quantity is 0.
//
// A holding is created lazily the first time an asset is deposited or bought,
// and is never removed: it can reach zero quantity and remain.
type Holding struct {
	unit     Unit
	base     Unit // reporting currency, fixed at creation
	resolver *Resolver

	quantity     float64
	avgBasePrice float64
	invested     float64 // total invested, net of withdrawals
	cumInvested  float64 // cumulative invested, never decreases
	realized     float64
}

func (h *Holding) Ticker() string              { return h.unit.Name }
func (h *Holding) Unit() Unit                  { return h.unit }
func (h *Holding) Base() Unit                  { return h.base }
func (h *Holding) Quantity() float64           { return h.quantity }
func (h *Holding) AvgBasePrice() float64       { return h.avgBasePrice }
func (h *Holding) TotalInvested() float64      { return h.invested }
func (h *Holding) CumulativeInvested() float64 { return h.cumInvested }
func (h *Holding) RealizedProfit() float64     { return h.realized }

func (h *Holding) String() string {
	return fmt.Sprintf("<%s holding %.4f: invested %.4f %s>", h.unit, h.quantity, h.invested, h.base)
}

// computeAvgBasePrice restores the basis invariant after a mutation.
func (h *Holding) computeAvgBasePrice() {
	if h.quantity != 0 {
		h.avgBasePrice = h.invested / h.quantity
	} else {
		h.avgBasePrice = 0
	}
}

// topUp applies an acquisition with the basis already expressed in the
// reporting currency. The fee reduces the quantity received but not the
// invested totals.
func (h *Holding) topUp(value, fee, basis float64, updateAvg bool) {
	h.quantity += value - fee
	delta := value * basis
	h.invested += delta
	h.cumInvested += delta
	if updateAvg {
		h.computeAvgBasePrice()
	}
}

// TopUp acquires value units at the current market price of the asset in the
// reporting currency (the latest rate, whatever the entry date).
func (h *Holding) TopUp(value, fee float64, on date.Date) error {
	basis, err := h.resolver.Resolve(h.unit, h.base, date.Date{})
	if err != nil {
		return fmt.Errorf("top up %s: %w", h.unit, err)
	}
	h.topUp(value, fee, basis, true)
	return nil
}

// TopUpAt acquires value units at an explicit basis price, converting it from
// basisUnit into the reporting currency at the given day when they differ.
func (h *Holding) TopUpAt(value, fee, basis float64, basisUnit Unit, on date.Date) error {
	basis, err := h.resolver.Convert(basisUnit, h.base, basis, on)
	if err != nil {
		return fmt.Errorf("top up %s: %w", h.unit, err)
	}
	h.topUp(value, fee, basis, true)
	return nil
}

// withdraw removes value+fee units and their share of the invested total,
// valued at the average base price. It checks funds before touching any state
// and returns the withdrawn value in the reporting currency.
func (h *Holding) withdraw(value, fee float64, updateAvg bool) (float64, error) {
	withFee := value + fee
	if withFee > h.quantity {
		return 0, fmt.Errorf("not enough funds to withdraw %v %s: %w", value, h.unit, ErrInsufficientFunds)
	}
	atBasis := withFee * h.avgBasePrice
	h.quantity -= withFee
	h.invested -= atBasis
	if updateAvg {
		h.computeAvgBasePrice()
	}
	return atBasis, nil
}

// Withdraw removes value+fee units from the holding and returns the withdrawn
// value at the average base price, in the reporting currency.
func (h *Holding) Withdraw(value, fee float64) (float64, Unit, error) {
	v, err := h.withdraw(value, fee, true)
	return v, h.base, err
}

// Sell exchanges valueSold units of this holding for valueBought units of the
// counterparty holding. The realized profit is the market value of what was
// bought, in this holding's reporting currency on the entry day, minus the
// withdrawn value at basis. The counterparty's basis is derived from this
// holding's average base price and the exchange rate implied by the trade.
func (h *Holding) Sell(buy *Holding, valueSold, valueBought, sellFee, buyFee float64, on date.Date) (float64, Unit, error) {
	withdrawn, err := h.withdraw(valueSold, sellFee, false)
	if err != nil {
		return 0, h.base, fmt.Errorf("sell %s for %s: %w", h.unit, buy.unit, err)
	}
	proceeds, err := h.resolver.Convert(buy.unit, h.base, valueBought, on)
	if err != nil {
		return 0, h.base, fmt.Errorf("sell %s for %s: %w", h.unit, buy.unit, err)
	}
	realized := proceeds - withdrawn
	h.realized += realized

	buyRate := valueSold / valueBought
	if err := buy.TopUpAt(valueBought, buyFee, h.avgBasePrice*buyRate, h.base, on); err != nil {
		return 0, h.base, fmt.Errorf("sell %s for %s: %w", h.unit, buy.unit, err)
	}
	h.computeAvgBasePrice()
	return realized, h.base, nil
}

// CurrentValue returns the market value of the position in the given unit,
// at the latest rate.
func (h *Holding) CurrentValue(to Unit) (float64, error) {
	return h.resolver.Convert(h.unit, to, h.quantity, date.Date{})
}

// CurrentUnitValue returns the latest price of one unit of the asset in the
// given unit.
func (h *Holding) CurrentUnitValue(to Unit) (float64, error) {
	return h.resolver.Convert(h.unit, to, 1, date.Date{})
}

// TotalInvestedIn returns the invested total converted into the given unit.
func (h *Holding) TotalInvestedIn(to Unit) (float64, error) {
	return h.resolver.Convert(h.base, to, h.invested, date.Date{})
}

// CumulativeInvestedIn returns the cumulative invested total converted into
// the given unit.
func (h *Holding) CumulativeInvestedIn(to Unit) (float64, error) {
	return h.resolver.Convert(h.base, to, h.cumInvested, date.Date{})
}

// RealizedReturn returns the realized profit converted into the given unit.
func (h *Holding) RealizedReturn(to Unit) (float64, error) {
	return h.resolver.Convert(h.base, to, h.realized, date.Date{})
}

// TotalReturn returns the unrealized return (market value minus invested) in
// the given unit.
func (h *Holding) TotalReturn(to Unit) (float64, error) {
	current, err := h.CurrentValue(h.base)
	if err != nil {
		return 0, err
	}
	return h.resolver.Convert(h.base, to, current-h.invested, date.Date{})
}

// ReturnRate returns the unrealized return as a fraction of the invested
// total, or 0 when nothing is invested.
func (h *Holding) ReturnRate() (float64, error) {
	if h.invested == 0 {
		return 0, nil
	}
	ret, err := h.TotalReturn(h.base)
	if err != nil {
		return 0, err
	}
	return ret / h.invested, nil
}

// AllReturnRate returns realized plus unrealized return as a fraction of the
// cumulative invested total, or 0 when nothing was ever invested.
func (h *Holding) AllReturnRate() (float64, error) {
	if h.cumInvested == 0 {
		return 0, nil
	}
	ret, err := h.TotalReturn(h.base)
	if err != nil {
		return 0, err
	}
	return (h.realized + ret) / h.cumInvested, nil
}

// RealizedReturnRate returns the realized profit as a fraction of the
// withdrawn share of the cumulative invested total, or 0 when nothing was
// withdrawn.
func (h *Holding) RealizedReturnRate() float64 {
	denom := h.cumInvested - h.invested
	if denom == 0 {
		return 0
	}
	return h.realized / denom
}
