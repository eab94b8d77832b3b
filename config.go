package kfolio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config gathers everything the engine and its collaborators need. It is
// built once at startup and passed by reference, there is no ambient global
// configuration.
type Config struct {
	// DataDir is where the rate cache and the portfolio checkpoint live.
	DataDir string `yaml:"data_dir"`
	// TTLSeconds is how long a latest-price cache entry stays fresh.
	TTLSeconds int `yaml:"ttl"`
	// Currency is the default reporting currency ticker.
	Currency string `yaml:"currency"`
	// Proxies overrides the proxy currency list for two-hop conversions.
	Proxies []string `yaml:"proxies"`

	Kraken KrakenConfig `yaml:"kraken"`
	Forex  ForexConfig  `yaml:"forex"`
}

// KrakenConfig configures the exchange client. Key and Secret are only needed
// for the private ledger endpoint.
type KrakenConfig struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
}

// ForexConfig configures the fiat rates client.
type ForexConfig struct {
	URL string `yaml:"url"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		DataDir:    "data",
		TTLSeconds: 3600,
		Currency:   "CHF",
		Proxies:    ProxyCurrencies,
		Kraken:     KrakenConfig{URL: "https://api.kraken.com"},
		Forex:      ForexConfig{URL: "https://api.frankfurter.dev/v1"},
	}
}

// TTL returns the cache expiration as a duration.
func (c Config) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("cannot parse config %q: %w", path, err)
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 3600
	}
	if len(c.Proxies) == 0 {
		c.Proxies = ProxyCurrencies
	}
	return c, nil
}
