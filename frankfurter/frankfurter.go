// Package frankfurter implements the fiat rate collaborator against a
// frankfurter-style foreign exchange API: GET /latest?base=X for current
// rates, GET /{yyyy-mm-dd}?base=X for a past day, both answering a map of
// target ticker to rate.
package frankfurter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/date"
)

// Client talks to the forex rates API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the given configuration.
func New(cfg kfolio.ForexConfig) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = "https://api.frankfurter.dev/v1"
	}
	return &Client{baseURL: base, http: new(http.Client)}
}

var _ kfolio.FiatSource = (*Client)(nil)

// rates performs the GET and decodes the rates map.
func (c *Client) rates(endpoint, base string) (map[string]float64, error) {
	addr := c.baseURL + "/" + endpoint + "?" + url.Values{"base": {base}}.Encode()
	resp, err := c.http.Get(addr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	// The API answers 404 for a currency it does not serve.
	if resp.StatusCode == 404 {
		return nil, fmt.Errorf("no rates for base %s: %w", base, kfolio.ErrUnknownPair)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cannot decode rates for base %s: %w", base, err)
	}
	return payload.Rates, nil
}

// Latest returns the current rates map for the base currency.
func (c *Client) Latest(base string) (map[string]float64, error) {
	return c.rates("latest", base)
}

// On returns the rates map for the base currency on a given day.
func (c *Client) On(base string, on date.Date) (map[string]float64, error) {
	return c.rates(on.String(), base)
}
