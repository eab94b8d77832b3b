package kraken

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/kfolio"
	"github.com/etnz/kfolio/date"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(kfolio.KrakenConfig{
		URL:    srv.URL,
		Key:    "test-key",
		Secret: base64.StdEncoding.EncodeToString([]byte("test-secret")),
	}, zap.NewNop())
	c.nonce = func() int64 { return 1700000000000 }
	return c
}

func TestPairName(t *testing.T) {
	testCases := []struct {
		from, to string
		want     string
	}{
		{"BTC", "USD", "XBTUSD"},
		{"ETH", "EUR", "ETHEUR"},
		{"DOGE", "BTC", "XDGXBT"},
	}
	for _, tc := range testCases {
		if got := pairName(tc.from, tc.to); got != tc.want {
			t.Errorf("pairName(%s, %s) = %s, want %s", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAssetName(t *testing.T) {
	testCases := []struct {
		asset string
		want  string
	}{
		{"XXBT", "BTC"},
		{"ZUSD", "USD"},
		{"ZEUR", "EUR"},
		{"ETH", "ETH"},
		{"XETH", "ETH"},
		{"ETH2.S", "ETH2"},
		{"XXDG", "DOGE"},
		{"SOL", "SOL"},
	}
	for _, tc := range testCases {
		if got := assetName(tc.asset); got != tc.want {
			t.Errorf("assetName(%s) = %s, want %s", tc.asset, got, tc.want)
		}
	}
}

func TestClient_Latest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Ticker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pair"); got != "XBTUSD" {
			t.Errorf("pair = %s, want XBTUSD", got)
		}
		// The response key is Kraken's internal pair name, not the requested one.
		fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":{"a":["50001.1","1","1.0"],"b":["49999.9","1","1.0"],"c":["50000.5","0.01"]}}}`)
	}))

	v, err := c.Latest("BTC", "USD")
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if v != 50000.5 {
		t.Errorf("Latest() = %v, want 50000.5", v)
	}
}

func TestClient_LatestUnknownPair(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"],"result":{}}`)
	}))

	_, err := c.Latest("BTC", "CHF")
	if err == nil {
		t.Fatal("Latest() should fail on an unknown pair")
	}
	if !errors.Is(err, kfolio.ErrUnknownPair) {
		t.Errorf("Latest() error = %v, want ErrUnknownPair", err)
	}
}

func TestClient_Daily(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/OHLC" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1440" {
			t.Errorf("interval = %s, want 1440", got)
		}
		// Two daily candles: 2025-06-01 and 2025-06-02 (midnight UTC).
		fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":[
			[1748736000,"48000.0","50500.0","47500.0","48500.0","48900.1","120.5",1000],
			[1748822400,"48500.0","51000.0","48200.0","50000.0","49900.2","98.2",900]
		],"last":1748822400}}`)
	}))

	s, err := c.Daily("BTC", "USD")
	if err != nil {
		t.Fatalf("Daily() failed: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Daily() has %d days, want 2", s.Len())
	}
	if v, ok := s.Get(date.New(2025, time.June, 1)); !ok || v != 48500 {
		t.Errorf("close on 2025-06-01 = %v, %v, want 48500, true", v, ok)
	}
	if v, ok := s.Get(date.New(2025, time.June, 2)); !ok || v != 50000 {
		t.Errorf("close on 2025-06-02 = %v, %v, want 50000, true", v, ok)
	}
}

func TestClient_LedgersPagination(t *testing.T) {
	// Two pages: the handler serves rows by offset. Rows are keyed by ledger
	// id, unordered, and include a staking row to skip.
	pages := map[string]string{
		"0": `{"error":[],"result":{"count":3,"ledger":{
			"L2":{"refid":"T1","time":1748858400,"type":"trade","asset":"XXBT","amount":"0.01","fee":"0"},
			"L1":{"refid":"T1","time":1748858400,"type":"trade","asset":"ZUSD","amount":"-500.0","fee":"0.5"}
		}}}`,
		"2": `{"error":[],"result":{"count":3,"ledger":{
			"L3":{"refid":"S1","time":1748860000,"type":"staking","asset":"ETH2.S","amount":"0.001","fee":"0"}
		}}}`,
	}
	var gotKey, gotSign string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/private/Ledgers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("API-Key")
		gotSign = r.Header.Get("API-Sign")
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		page, ok := pages[r.PostForm.Get("ofs")]
		if !ok {
			t.Fatalf("unexpected offset %q", r.PostForm.Get("ofs"))
		}
		fmt.Fprint(w, page)
	}))

	entries, err := c.Ledgers(time.Time{})
	if err != nil {
		t.Fatalf("Ledgers() failed: %v", err)
	}

	// The staking row is dropped; the two trade legs remain, adjacent.
	if len(entries) != 2 {
		t.Fatalf("Ledgers() returned %d entries, want 2", len(entries))
	}
	if entries[0].Asset != "BTC" && entries[0].Asset != "USD" {
		t.Errorf("asset %q was not normalized", entries[0].Asset)
	}
	for _, e := range entries {
		if e.Type != kfolio.Trade {
			t.Errorf("entry type = %s, want trade", e.Type)
		}
	}

	if gotKey != "test-key" {
		t.Errorf("API-Key header = %q, want test-key", gotKey)
	}
	sig, err := base64.StdEncoding.DecodeString(gotSign)
	if err != nil || len(sig) != 64 {
		t.Errorf("API-Sign header is not a base64 HMAC-SHA512: %q", gotSign)
	}
}

func TestClient_LedgersStartFilter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":[],"result":{"count":2,"ledger":{
			"L1":{"refid":"D1","time":1748858400,"type":"deposit","asset":"ZUSD","amount":"1000.0","fee":"0"},
			"L2":{"refid":"D2","time":1748944800,"type":"deposit","asset":"ZUSD","amount":"500.0","fee":"0"}
		}}}`)
	}))

	// Start exactly at the first row: only the strictly later one survives.
	entries, err := c.Ledgers(time.Unix(1748858400, 0))
	if err != nil {
		t.Fatalf("Ledgers() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount != 500 {
		t.Errorf("Ledgers() = %v, want the single later deposit", entries)
	}
}

func TestClient_LedgersWithoutCredentials(t *testing.T) {
	c := New(kfolio.KrakenConfig{URL: "http://127.0.0.1:0"}, zap.NewNop())
	if _, err := c.Ledgers(time.Time{}); err == nil {
		t.Error("Ledgers() without credentials should fail")
	}
}
