package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/renderer"
	"github.com/google/subcommands"
)

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	currency string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display per-asset positions and returns" }
func (*holdingsCmd) Usage() string {
	return `kfolio holdings [-c <currency>]

  Displays each asset in the portfolio with its quantity, average buying
  price, current value and returns.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Currency to report in. Defaults to the configured one.")
}

func (c *holdingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}

	p, err := a.sync(c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	currency := c.currency
	if currency == "" {
		currency = a.cfg.Currency
	}
	s, err := p.Summary(kfolio.UnitOf(currency))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing summary: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Holdings(s))

	return subcommands.ExitSuccess
}
