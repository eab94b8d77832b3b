package kfolio

// HoldingSummary is the reportable view of a single position, expressed in
// the report's currency.
type HoldingSummary struct {
	Ticker             string
	Quantity           float64
	CurrentValue       float64
	TotalInvested      float64
	CumulativeInvested float64
	UnrealizedReturn   float64
	ReturnRate         float64
}

// Summary is the reportable view of the whole portfolio on the day it is
// built, expressed in a single currency.
type Summary struct {
	Currency           string
	CurrentValue       float64
	TotalInvested      float64
	CumulativeInvested float64
	UnrealizedReturn   float64
	RealizedProfit     float64
	ReturnRate         float64
	AllReturnRate      float64
	Holdings           []HoldingSummary
}

// Summary computes the portfolio summary in the given unit, at the latest
// rates. It has no side effect on the portfolio state beyond warming the rate
// cache.
func (p *Portfolio) Summary(to Unit) (*Summary, error) {
	current, err := p.CurrentValue(to)
	if err != nil {
		return nil, err
	}
	invested, err := p.TotalInvestedIn(to)
	if err != nil {
		return nil, err
	}
	cumInvested, err := p.CumulativeInvestedIn(to)
	if err != nil {
		return nil, err
	}
	unrealized, err := p.TotalReturn(to)
	if err != nil {
		return nil, err
	}
	realized, err := p.RealizedReturn(to)
	if err != nil {
		return nil, err
	}
	rate, err := p.ReturnRate()
	if err != nil {
		return nil, err
	}
	allRate, err := p.AllReturnRate()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Currency:           to.Name,
		CurrentValue:       current,
		TotalInvested:      invested,
		CumulativeInvested: cumInvested,
		UnrealizedReturn:   unrealized,
		RealizedProfit:     realized,
		ReturnRate:         rate,
		AllReturnRate:      allRate,
	}

	for h := range p.Holdings() {
		hv, err := h.CurrentValue(to)
		if err != nil {
			return nil, err
		}
		hi, err := h.TotalInvestedIn(to)
		if err != nil {
			return nil, err
		}
		hc, err := h.CumulativeInvestedIn(to)
		if err != nil {
			return nil, err
		}
		hr, err := h.TotalReturn(to)
		if err != nil {
			return nil, err
		}
		hrate, err := h.ReturnRate()
		if err != nil {
			return nil, err
		}
		s.Holdings = append(s.Holdings, HoldingSummary{
			Ticker:             h.Ticker(),
			Quantity:           h.Quantity(),
			CurrentValue:       hv,
			TotalInvested:      hi,
			CumulativeInvested: hc,
			UnrealizedReturn:   hr,
			ReturnRate:         hrate,
		})
	}
	return s, nil
}
