// Package kraken implements the exchange collaborators against the Kraken
// REST API: latest and daily market prices from the public endpoints, and the
// account transaction ledger from the signed private endpoint.
package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

const ohlcDailyInterval = "1440" // minutes

// altNames maps common tickers to the ones Kraken uses in pair names.
var altNames = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

// commonNames is the reverse mapping, for normalizing ledger assets.
var commonNames = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

// Client talks to the Kraken REST API. Key and Secret are only required for
// the private ledger endpoint.
type Client struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	log     *zap.Logger

	nonce func() int64 // test hook
}

// New returns a client for the given configuration.
func New(cfg kfolio.KrakenConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = "https://api.kraken.com"
	}
	return &Client{
		baseURL: base,
		key:     cfg.Key,
		secret:  cfg.Secret,
		http:    new(http.Client),
		log:     log,
		nonce:   func() int64 { return time.Now().UnixMilli() },
	}
}

var _ kfolio.CryptoSource = (*Client)(nil)
var _ kfolio.LedgerSource = (*Client)(nil)

// pairName builds the concatenated pair ticker Kraken expects, applying its
// alternate asset names.
func pairName(from, to string) string {
	return altName(from) + altName(to)
}

func altName(ticker string) string {
	if alt, ok := altNames[ticker]; ok {
		return alt
	}
	return ticker
}

// assetName normalizes a ledger asset to its common ticker: Kraken prefixes
// 4-letter legacy assets with X (crypto) or Z (fiat), suffixes staked assets
// with ".S", and uses its own name for a few assets (XBT for BTC).
func assetName(asset string) string {
	asset, _, _ = strings.Cut(asset, ".")
	if len(asset) == 4 && (asset[0] == 'X' || asset[0] == 'Z') {
		asset = asset[1:]
	}
	if common, ok := commonNames[asset]; ok {
		return common
	}
	return asset
}

// envelope is the outer object of every Kraken API response.
type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// apiError maps the API error strings to an error, recognizing the unknown
// pair condition that triggers proxy conversion upstream.
func apiError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	msg := strings.Join(errs, "; ")
	if strings.Contains(msg, "Unknown asset pair") {
		return fmt.Errorf("kraken: %s: %w", msg, kfolio.ErrUnknownPair)
	}
	return fmt.Errorf("kraken: %s", msg)
}

// public performs a GET on a public endpoint and returns the result payload.
func (c *Client) public(endpoint string, params url.Values) (json.RawMessage, error) {
	addr := c.baseURL + "/0/public/" + endpoint
	if len(params) > 0 {
		addr += "?" + params.Encode()
	}
	resp, err := c.http.Get(addr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("cannot decode %s response: %w", endpoint, err)
	}
	if err := apiError(env.Error); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// Latest returns the last traded price for the pair, from the Ticker
// endpoint.
func (c *Client) Latest(from, to string) (float64, error) {
	pair := pairName(from, to)
	result, err := c.public("Ticker", url.Values{"pair": {pair}})
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %w", pair, err)
	}

	// The result is keyed by Kraken's internal pair name (e.g. XXBTZUSD for
	// XBTUSD), so the key cannot be predicted from the request.
	var jobj any
	if err := json.Unmarshal(result, &jobj); err != nil {
		return 0, fmt.Errorf("ticker %s: %w", pair, err)
	}
	path := "$.*.c[0]"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %q %w", pair, path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	s, ok := jval.(string)
	if !ok {
		return 0, fmt.Errorf("ticker %s: close price is not a string: %v", pair, jval)
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %w", pair, err)
	}
	return price, nil
}

// Daily returns the daily close series for the pair, from the OHLC endpoint.
func (c *Client) Daily(from, to string) (*date.Series, error) {
	pair := pairName(from, to)
	result, err := c.public("OHLC", url.Values{"pair": {pair}, "interval": {ohlcDailyInterval}})
	if err != nil {
		return nil, fmt.Errorf("ohlc %s: %w", pair, err)
	}

	// Same dynamic pair key as Ticker, plus a "last" cursor to skip.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("ohlc %s: %w", pair, err)
	}
	series := new(date.Series)
	for key, raw := range payload {
		if key == "last" {
			continue
		}
		// Each row is [time, open, high, low, close, vwap, volume, count],
		// with time numeric and the prices as strings.
		var rows [][]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("ohlc %s: %w", pair, err)
		}
		for _, row := range rows {
			if len(row) < 5 {
				return nil, fmt.Errorf("ohlc %s: short row %v", pair, row)
			}
			ts, ok := row[0].(float64)
			if !ok {
				return nil, fmt.Errorf("ohlc %s: time is not a number: %v", pair, row[0])
			}
			s, ok := row[4].(string)
			if !ok {
				return nil, fmt.Errorf("ohlc %s: close is not a string: %v", pair, row[4])
			}
			closePrice, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("ohlc %s: %w", pair, err)
			}
			series.Append(date.Of(time.Unix(int64(ts), 0)), closePrice)
		}
	}
	c.log.Debug("fetched ohlc series", zap.String("pair", pair), zap.Int("days", series.Len()))
	return series, nil
}

// jledger is a ledger row as the private API returns it.
type jledger struct {
	Refid  string  `json:"refid"`
	Time   float64 `json:"time"` // unix seconds
	Type   string  `json:"type"`
	Asset  string  `json:"asset"`
	Amount string  `json:"amount"`
	Fee    string  `json:"fee"`
}

// sign computes the API-Sign header for a private request:
// HMAC-SHA512 of (path + SHA256(nonce + postdata)) with the base64-decoded
// secret as key.
func (c *Client) sign(path, nonce, postdata string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.secret)
	if err != nil {
		return "", fmt.Errorf("invalid API secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// private performs a signed POST on a private endpoint and returns the result
// payload.
func (c *Client) private(endpoint string, params url.Values) (json.RawMessage, error) {
	if c.key == "" || c.secret == "" {
		return nil, fmt.Errorf("kraken %s requires API credentials", endpoint)
	}
	path := "/0/private/" + endpoint
	nonce := strconv.FormatInt(c.nonce(), 10)
	params.Set("nonce", nonce)
	postdata := params.Encode()

	sig, err := c.sign(path, nonce, postdata)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", c.baseURL+path, strings.NewReader(postdata))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.key)
	req.Header.Set("API-Sign", sig)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("cannot http POST %v%v: %v", req.URL.Host, path, resp.Status)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("cannot decode %s response: %w", endpoint, err)
	}
	if err := apiError(env.Error); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// Ledgers returns the account ledger entries strictly after start, ascending
// by timestamp, keeping only deposits and trade legs. The endpoint pages by
// offset; all pages are fetched.
func (c *Client) Ledgers(start time.Time) ([]kfolio.LedgerEntry, error) {
	var rows []jledger
	for ofs := 0; ; {
		params := url.Values{"ofs": {strconv.Itoa(ofs)}}
		if !start.IsZero() {
			params.Set("start", strconv.FormatInt(start.Unix(), 10))
		}
		result, err := c.private("Ledgers", params)
		if err != nil {
			return nil, fmt.Errorf("ledgers: %w", err)
		}
		var payload struct {
			Ledger map[string]jledger `json:"ledger"`
			Count  int                `json:"count"`
		}
		if err := json.Unmarshal(result, &payload); err != nil {
			return nil, fmt.Errorf("ledgers: %w", err)
		}
		if len(payload.Ledger) == 0 {
			break
		}
		for _, row := range payload.Ledger {
			rows = append(rows, row)
		}
		ofs += len(payload.Ledger)
		if ofs >= payload.Count {
			break
		}
	}

	// Sort by time, and by trade reference within the same second, so the two
	// legs of a trade stay adjacent even when trades share a timestamp.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Time != rows[j].Time {
			return rows[i].Time < rows[j].Time
		}
		return rows[i].Refid < rows[j].Refid
	})

	var out []kfolio.LedgerEntry
	for _, row := range rows {
		entry, ok, err := toEntry(row)
		if err != nil {
			return nil, fmt.Errorf("ledgers: %w", err)
		}
		if !ok {
			continue
		}
		if !start.IsZero() && !entry.Time.After(start) {
			continue
		}
		out = append(out, entry)
	}
	c.log.Debug("fetched ledger", zap.Int("entries", len(out)), zap.Time("start", start))
	return out, nil
}

// toEntry maps a ledger row to a LedgerEntry. Rows of other types (staking,
// transfers, ...) report false.
func toEntry(row jledger) (kfolio.LedgerEntry, bool, error) {
	var t kfolio.EntryType
	switch row.Type {
	case "deposit":
		t = kfolio.Deposit
	case "trade":
		t = kfolio.Trade
	default:
		return kfolio.LedgerEntry{}, false, nil
	}
	amount, err := strconv.ParseFloat(row.Amount, 64)
	if err != nil {
		return kfolio.LedgerEntry{}, false, fmt.Errorf("bad amount %q: %w", row.Amount, err)
	}
	fee, err := strconv.ParseFloat(row.Fee, 64)
	if err != nil {
		return kfolio.LedgerEntry{}, false, fmt.Errorf("bad fee %q: %w", row.Fee, err)
	}
	sec, frac := int64(row.Time), row.Time-float64(int64(row.Time))
	return kfolio.LedgerEntry{
		Time:   time.Unix(sec, int64(frac*1e9)).UTC(),
		Type:   t,
		Asset:  assetName(row.Asset),
		Amount: amount,
		Fee:    fee,
	}, true, nil
}
