package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// syncCmd holds the flags for the 'sync' subcommand.
type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "replay new ledger entries into the checkpoint" }
func (*syncCmd) Usage() string {
	return `kfolio sync

  Fetches ledger entries newer than the checkpoint from the exchange,
  replays them into the portfolio and saves the updated checkpoint.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {}

func (c *syncCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}

	p, err := a.sync("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	n := 0
	for range p.Holdings() {
		n++
	}
	fmt.Printf("Portfolio up to date: %d holdings, last entry %s.\n", n, p.LastUpdate().Format("2006-01-02 15:04:05"))

	return subcommands.ExitSuccess
}
