package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

var testBasket = []Pair{
	{Underlying: "WMT", Main: "WMT-M", Alt: "WMT-A"},
	{Underlying: "MMM", Main: "MMM-M", Alt: "MMM-A"},
}

func quote(sym string, bid float64, bidSize int64, ask float64, askSize int64) domain.Quote {
	return domain.Quote{Symbol: sym, Bid: bid, BidSize: bidSize, Ask: ask, AskSize: askSize}
}

func TestBuildComposite(t *testing.T) {
	quotes := map[string]domain.Quote{
		"WMT-M": quote("WMT-M", 49.90, 300, 50.00, 300),
		"WMT-A": quote("WMT-A", 49.95, 200, 49.98, 200),
		"MMM-M": quote("MMM-M", 49.90, 400, 49.99, 400),
		"MMM-A": quote("MMM-A", 49.80, 100, 50.05, 100),
	}
	c := BuildComposite(testBasket, quotes)

	require.True(t, c.HasBid)
	require.True(t, c.HasAsk)
	assert.InDelta(t, 99.85, c.Bid, 1e-9)
	assert.InDelta(t, 99.97, c.Ask, 1e-9)
	assert.Equal(t, []string{"WMT-A", "MMM-M"}, c.BidLegs)
	assert.Equal(t, []string{"WMT-A", "MMM-M"}, c.AskLegs)
	assert.Equal(t, int64(200), c.BidSize)
	assert.Equal(t, int64(200), c.AskSize)
}

func TestBuildComposite_TiePrefersMain(t *testing.T) {
	quotes := map[string]domain.Quote{
		"WMT-M": quote("WMT-M", 50, 10, 51, 10),
		"WMT-A": quote("WMT-A", 50, 20, 51, 20),
	}
	c := BuildComposite(testBasket[:1], quotes)
	assert.Equal(t, []string{"WMT-M"}, c.BidLegs)
	assert.Equal(t, []string{"WMT-M"}, c.AskLegs)
}

func TestBuildComposite_MissingSide(t *testing.T) {
	quotes := map[string]domain.Quote{
		"WMT-M": quote("WMT-M", 49.90, 300, 50.00, 300),
		"MMM-M": quote("MMM-M", 0, 0, 49.99, 400),
	}
	c := BuildComposite(testBasket, quotes)
	assert.False(t, c.HasBid)
	assert.Nil(t, c.BidLegs)
	assert.True(t, c.HasAsk)
	assert.InDelta(t, 99.99, c.Ask, 1e-9)
}

func TestIndexArb_SellsRichIndex(t *testing.T) {
	md := newFakeMarket()
	md.quotes = map[string]domain.Quote{
		"ETF":   quote("ETF", 100.10, 500, 100.20, 500),
		"WMT-M": quote("WMT-M", 49.90, 300, 50.00, 300),
		"WMT-A": quote("WMT-A", 49.95, 200, 49.98, 200),
		"MMM-M": quote("MMM-M", 49.90, 400, 49.99, 400),
		"MMM-A": quote("MMM-A", 49.80, 100, 50.05, 100),
	}
	x := NewIndexArb(IndexArbConfig{Index: "ETF", Basket: testBasket, Fees: testFees}, md, testLogger())

	insts, err := x.Evaluate(context.Background(), TickContext{Tick: 3})
	require.NoError(t, err)
	require.Len(t, insts, 3)

	assert.Equal(t, "ETF", insts[0].Symbol)
	assert.Equal(t, domain.OrderSideSell, insts[0].Side)
	assert.Equal(t, "WMT-A", insts[1].Symbol)
	assert.Equal(t, domain.OrderSideBuy, insts[1].Side)
	assert.Equal(t, "MMM-M", insts[2].Symbol)
	assert.Equal(t, domain.OrderSideBuy, insts[2].Side)
	for _, in := range insts {
		assert.Equal(t, int64(200), in.Quantity)
		assert.Equal(t, domain.OrderTypeMarket, in.Type)
		assert.Equal(t, insts[0].Group, in.Group)
	}
	assert.NotEmpty(t, insts[0].Group)
}

func TestIndexArb_BuysCheapIndex(t *testing.T) {
	quotes := map[string]domain.Quote{
		"ETF":   quote("ETF", 99.00, 50, 99.10, 50),
		"WMT-M": quote("WMT-M", 49.90, 300, 50.00, 300),
		"WMT-A": quote("WMT-A", 49.95, 200, 49.98, 200),
		"MMM-M": quote("MMM-M", 49.90, 400, 49.99, 400),
		"MMM-A": quote("MMM-A", 49.80, 100, 50.05, 100),
	}
	x := NewIndexArb(IndexArbConfig{Index: "ETF", Basket: testBasket, Fees: testFees}, newFakeMarket(), testLogger())

	insts := x.Check(TickContext{Tick: 1}, quotes)
	require.Len(t, insts, 3)
	assert.Equal(t, domain.OrderSideBuy, insts[0].Side)
	assert.Equal(t, domain.OrderSideSell, insts[1].Side)
	assert.Equal(t, domain.OrderSideSell, insts[2].Side)
	assert.Equal(t, int64(50), insts[0].Quantity)
}

func TestIndexArb_WithinHurdle(t *testing.T) {
	// hurdle = 4*0.005 + 0.015 = 0.035
	quotes := map[string]domain.Quote{
		"ETF":   quote("ETF", 100.00, 500, 100.20, 500),
		"WMT-M": quote("WMT-M", 49.90, 300, 49.98, 300),
		"MMM-M": quote("MMM-M", 49.90, 400, 49.99, 400),
	}
	x := NewIndexArb(IndexArbConfig{Index: "ETF", Basket: testBasket, Fees: testFees}, newFakeMarket(), testLogger())
	assert.Empty(t, x.Check(TickContext{Tick: 1}, quotes))
}

func TestIndexArb_QuoteErrorIsNotFatal(t *testing.T) {
	md := newFakeMarket()
	md.errs[domain.OpQuotes] = &domain.TransportError{Op: domain.OpQuotes, Status: 500}
	x := NewIndexArb(IndexArbConfig{Index: "ETF", Basket: testBasket, Fees: testFees}, md, testLogger())

	_, err := x.Evaluate(context.Background(), TickContext{Tick: 1})
	require.Error(t, err)
	assert.False(t, domain.IsFatal(err))
	var te *domain.TransportError
	assert.True(t, errors.As(err, &te))
}
