package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/date"
	"github.com/google/subcommands"
)

// rateCmd holds the flags for the 'rate' subcommand.
type rateCmd struct {
	date string
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "display the conversion rate between two currencies" }
func (*rateCmd) Usage() string {
	return `kfolio rate [-d <date>] <from> <to>

  Displays the conversion rate from one currency to another, today or at a
  given date, going through a proxy currency when no direct pair trades.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date for the rate, as YYYY-MM-DD. Defaults to the latest rate.")
}

func (c *rateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s", c.Usage())
		return subcommands.ExitUsageError
	}
	from, to := kfolio.UnitOf(f.Arg(0)), kfolio.UnitOf(f.Arg(1))

	var on date.Date
	if c.date != "" {
		var err error
		on, err = date.Parse(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}

	rate, err := a.resolver.Resolve(from, to, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rate: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("1 %s = %g %s\n", from.Name, rate, to.Name)

	return subcommands.ExitSuccess
}
