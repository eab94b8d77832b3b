// Package cmd implements the CLI application to track a portfolio from an
// exchange ledger.
package cmd

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/frankfurter"
	"github.com/etnz/kfolio/kraken"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// Commands lists the subcommands a main package registers.
var Commands = []subcommands.Command{
	&summaryCmd{},
	&syncCmd{},
	&holdingsCmd{},
	&rateCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global flags.

var configFile = flag.String("config", "", "Path to the YAML configuration file. Defaults apply when missing.")
var dataDir = flag.String("data", "", "Override the data directory holding the rate cache and the checkpoint.")
var verbose = flag.Bool("v", false, "Enable debug logging to stderr.")

// app wires the engine and its collaborators from the configuration, once per
// invocation.
type app struct {
	cfg      kfolio.Config
	log      *zap.Logger
	resolver *kfolio.Resolver
	exchange *kraken.Client
	store    *kfolio.CheckpointFile
}

func newApp() (*app, error) {
	cfg, err := kfolio.LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	log := zap.NewNop()
	if *verbose {
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	cache, err := kfolio.NewRateCache(cfg.DataDir, cfg.TTL(), log)
	if err != nil {
		return nil, err
	}
	exchange := kraken.New(cfg.Kraken, log)
	resolver := kfolio.NewResolver(cache, exchange, frankfurter.New(cfg.Forex), log)
	resolver.SetProxies(cfg.Proxies)

	return &app{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		exchange: exchange,
		store:    kfolio.NewCheckpointFile(filepath.Join(cfg.DataDir, "portfolio.json")),
	}, nil
}

// sync brings the portfolio up to date with the exchange ledger, resuming
// from the checkpoint when one exists.
func (a *app) sync(currency string) (*kfolio.Portfolio, error) {
	if currency == "" {
		currency = a.cfg.Currency
	}
	p, err := kfolio.Sync(a.exchange, a.store, kfolio.UnitOf(currency), a.resolver, a.log)
	if err != nil {
		return nil, fmt.Errorf("cannot sync portfolio: %w", err)
	}
	return p, nil
}
