package kfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/etnz/kfolio/date"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHolding_TopUp(t *testing.T) {
	r := marketResolver(t)
	usd := UnitOf("USD")
	h := usd.NewHolding(usd, r)

	if err := h.TopUp(1000, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	if h.Quantity() != 1000 {
		t.Errorf("Quantity() = %v, want 1000", h.Quantity())
	}
	if h.AvgBasePrice() != 1 {
		t.Errorf("AvgBasePrice() = %v, want 1 (own currency)", h.AvgBasePrice())
	}
	if h.TotalInvested() != 1000 {
		t.Errorf("TotalInvested() = %v, want 1000", h.TotalInvested())
	}
}

func TestHolding_TopUpFeeReducesQuantityNotBasis(t *testing.T) {
	r := marketResolver(t)
	usd := UnitOf("USD")
	h := usd.NewHolding(usd, r)

	if err := h.TopUp(1000, 10, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	// The fee is lost quantity; the invested total still counts the full value.
	if h.Quantity() != 990 {
		t.Errorf("Quantity() = %v, want 990", h.Quantity())
	}
	if h.TotalInvested() != 1000 {
		t.Errorf("TotalInvested() = %v, want 1000", h.TotalInvested())
	}
}

func TestHolding_Withdraw(t *testing.T) {
	r := marketResolver(t)
	usd := UnitOf("USD")
	h := usd.NewHolding(usd, r)
	if err := h.TopUp(1000, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	v, unit, err := h.Withdraw(200, 0)
	if err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if v != 200 || unit != usd {
		t.Errorf("Withdraw() = %v %s, want 200 USD", v, unit)
	}
	if h.Quantity() != 800 {
		t.Errorf("Quantity() = %v, want 800", h.Quantity())
	}
	// Cumulative invested never decreases.
	if h.CumulativeInvested() != 1000 {
		t.Errorf("CumulativeInvested() = %v, want 1000", h.CumulativeInvested())
	}
	if h.TotalInvested() != 800 {
		t.Errorf("TotalInvested() = %v, want 800", h.TotalInvested())
	}
}

func TestHolding_WithdrawInsufficientFunds(t *testing.T) {
	r := marketResolver(t)
	usd := UnitOf("USD")
	h := usd.NewHolding(usd, r)
	if err := h.TopUp(100, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	_, _, err := h.Withdraw(95, 10) // value+fee exceeds the quantity
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Withdraw() error = %v, want ErrInsufficientFunds", err)
	}

	// A rejected withdrawal must leave the position untouched.
	if h.Quantity() != 100 || h.TotalInvested() != 100 {
		t.Errorf("state changed after rejected withdrawal: quantity %v, invested %v", h.Quantity(), h.TotalInvested())
	}
}

func TestHolding_SellAtMarket(t *testing.T) {
	r := marketResolver(t)
	usd, btc := UnitOf("USD"), UnitOf("BTC")
	cash := usd.NewHolding(usd, r)
	coin := btc.NewHolding(usd, r)
	if err := cash.TopUp(1000, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	// 500 USD for 0.01 BTC at exactly the market price: nothing is realized.
	realized, unit, err := cash.Sell(coin, 500, 0.01, 0, 0, date.New(2025, time.June, 2))
	if err != nil {
		t.Fatalf("Sell() failed: %v", err)
	}
	if unit != usd {
		t.Errorf("realized unit = %s, want USD", unit)
	}
	if !almostEqual(realized, 0) {
		t.Errorf("realized = %v, want 0 (trade at market)", realized)
	}

	if cash.Quantity() != 500 {
		t.Errorf("cash Quantity() = %v, want 500", cash.Quantity())
	}
	if coin.Quantity() != 0.01 {
		t.Errorf("coin Quantity() = %v, want 0.01", coin.Quantity())
	}
	// The coin basis is the exchange rate implied by the trade.
	if !almostEqual(coin.AvgBasePrice(), 50000) {
		t.Errorf("coin AvgBasePrice() = %v, want 50000", coin.AvgBasePrice())
	}
	if !almostEqual(coin.TotalInvested(), 500) {
		t.Errorf("coin TotalInvested() = %v, want 500", coin.TotalInvested())
	}
}

func TestHolding_SellRealizesProfit(t *testing.T) {
	// BTC was acquired at 40000 but trades at 50000: selling 0.01 BTC for 500
	// USD realizes the 100 USD difference on the sold share.
	crypto := &fakeCrypto{latest: map[string]float64{"BTC_USD": 40000}}
	r := newTestResolver(t, crypto, nil)
	usd, btc := UnitOf("USD"), UnitOf("BTC")
	cash := usd.NewHolding(usd, r)
	coin := btc.NewHolding(usd, r)

	if err := coin.TopUp(0.02, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}
	if coin.AvgBasePrice() != 40000 {
		t.Fatalf("coin AvgBasePrice() = %v, want 40000", coin.AvgBasePrice())
	}

	realized, _, err := coin.Sell(cash, 0.01, 500, 0, 0, date.New(2025, time.June, 2))
	if err != nil {
		t.Fatalf("Sell() failed: %v", err)
	}
	// Proceeds are 500 USD against a 0.01 * 40000 = 400 USD basis.
	if !almostEqual(realized, 100) {
		t.Errorf("realized = %v, want 100", realized)
	}
	if !almostEqual(coin.RealizedProfit(), 100) {
		t.Errorf("RealizedProfit() = %v, want 100", coin.RealizedProfit())
	}
	if coin.Quantity() != 0.01 {
		t.Errorf("coin Quantity() = %v, want 0.01", coin.Quantity())
	}
}

func TestHolding_SellInsufficientFunds(t *testing.T) {
	r := marketResolver(t)
	usd, btc := UnitOf("USD"), UnitOf("BTC")
	cash := usd.NewHolding(usd, r)
	coin := btc.NewHolding(usd, r)
	if err := cash.TopUp(100, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatalf("TopUp() failed: %v", err)
	}

	_, _, err := cash.Sell(coin, 500, 0.01, 0, 0, date.New(2025, time.June, 2))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Sell() error = %v, want ErrInsufficientFunds", err)
	}
	if cash.Quantity() != 100 || coin.Quantity() != 0 {
		t.Errorf("state changed after rejected sale: cash %v, coin %v", cash.Quantity(), coin.Quantity())
	}
}

func TestHolding_BasisInvariant(t *testing.T) {
	// After any sequence of operations, invested == quantity * average price.
	r := marketResolver(t)
	usd, btc := UnitOf("USD"), UnitOf("BTC")
	cash := usd.NewHolding(usd, r)
	coin := btc.NewHolding(usd, r)

	check := func(step string, h *Holding) {
		t.Helper()
		want := h.Quantity() * h.AvgBasePrice()
		if !almostEqual(h.TotalInvested(), want) {
			t.Errorf("%s: %s invested %v != quantity*avg %v", step, h.Ticker(), h.TotalInvested(), want)
		}
	}

	if err := cash.TopUp(1000, 0, date.New(2025, time.June, 1)); err != nil {
		t.Fatal(err)
	}
	check("after top up", cash)

	if _, _, err := cash.Withdraw(100, 5); err != nil {
		t.Fatal(err)
	}
	check("after withdraw", cash)

	if _, _, err := cash.Sell(coin, 400, 0.008, 0, 0.0001, date.New(2025, time.June, 2)); err != nil {
		t.Fatal(err)
	}
	check("after sell", cash)
	check("after sell", coin)

	if _, _, err := coin.Sell(cash, 0.004, 200, 0, 1, date.New(2025, time.June, 3)); err != nil {
		t.Fatal(err)
	}
	check("after sell back", cash)
	check("after sell back", coin)

	// An empty position has no basis.
	if _, _, err := coin.Sell(cash, coin.Quantity()-0.0001, 190, 0.0001, 0, date.New(2025, time.June, 4)); err != nil {
		t.Fatal(err)
	}
	check("after closing", coin)
}

func TestHolding_ReturnRates(t *testing.T) {
	crypto := &fakeCrypto{latest: map[string]float64{"BTC_USD": 60000}}
	r := newTestResolver(t, crypto, nil)
	usd, btc := UnitOf("USD"), UnitOf("BTC")
	coin := btc.NewHolding(usd, r)

	// 0.01 BTC acquired for 500 USD, now worth 600 USD.
	if err := coin.TopUpAt(0.01, 0, 50000, usd, date.Date{}); err != nil {
		t.Fatalf("TopUpAt() failed: %v", err)
	}

	ret, err := coin.TotalReturn(usd)
	if err != nil {
		t.Fatalf("TotalReturn() failed: %v", err)
	}
	if !almostEqual(ret, 100) {
		t.Errorf("TotalReturn() = %v, want 100", ret)
	}

	rate, err := coin.ReturnRate()
	if err != nil {
		t.Fatalf("ReturnRate() failed: %v", err)
	}
	if !almostEqual(rate, 0.2) {
		t.Errorf("ReturnRate() = %v, want 0.2", rate)
	}

	if rr := coin.RealizedReturnRate(); rr != 0 {
		t.Errorf("RealizedReturnRate() = %v, want 0 (nothing withdrawn)", rr)
	}
}
