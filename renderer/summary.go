// Package renderer renders portfolio reports to markdown strings.
package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/kfolio"
)

// Summary renders the full portfolio summary with its per-holding table.
func Summary(s *kfolio.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio (%s)\n\n", s.Currency)
	fmt.Fprintf(&b, "- Current value: %s\n", money(s.CurrentValue, s.Currency))
	fmt.Fprintf(&b, "- Invested: %s\n", money(s.TotalInvested, s.Currency))
	fmt.Fprintf(&b, "- Invested all to now: %s\n", money(s.CumulativeInvested, s.Currency))
	fmt.Fprintf(&b, "- Unrealized return: %s\n", kfolio.M(s.UnrealizedReturn, s.Currency).SignedString())
	fmt.Fprintf(&b, "- Realized return: %s\n", kfolio.M(s.RealizedProfit, s.Currency).SignedString())
	fmt.Fprintf(&b, "- Return rate: %.2f %%\n", s.ReturnRate*100)
	fmt.Fprintf(&b, "- All return rate: %.2f %%\n", s.AllReturnRate*100)
	b.WriteString("\n")
	b.WriteString(Holdings(s))
	return b.String()
}

// Holdings renders the per-holding table of a summary.
func Holdings(s *kfolio.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Holdings\n\n")
	fmt.Fprintln(&b, "| Asset | Quantity | Value | Invested | Unrealized | Rate |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
	for _, h := range s.Holdings {
		fmt.Fprintf(&b, "| %s | %.8g | %s | %s | %s | %.2f %% |\n",
			h.Ticker,
			h.Quantity,
			money(h.CurrentValue, s.Currency),
			money(h.TotalInvested, s.Currency),
			kfolio.M(h.UnrealizedReturn, s.Currency).SignedString(),
			h.ReturnRate*100,
		)
	}
	return b.String()
}

func money(v float64, cur string) string { return kfolio.M(v, cur).String() }
