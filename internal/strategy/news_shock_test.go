package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

func TestParseMagnitude(t *testing.T) {
	tests := []struct {
		headline string
		want     float64
	}{
		{"WMT shares jump by $1.50", 1.50},
		{"CAT drops by -$0.75.", -0.75},
		{"MMM moves $-2", -2},
		{"Index up +$3.25!", 3.25},
		{"Big order $1,200.5", 1200.5},
		{"No number here", 0},
		{"", 0},
		{"trailing dollar $", 0},
		{"WMT to open new stores in 2024", 0},
		{"CAT falls -0.75", 0},
		{"MMM up 5%", 0},
	}
	for _, tt := range tests {
		t.Run(tt.headline, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseMagnitude(tt.headline), 1e-9)
		})
	}
}

func TestActionable(t *testing.T) {
	items := []domain.NewsItem{
		{ID: 1, Ticker: "WMT", Tick: 8, Headline: "old $1"},
		{ID: 2, Ticker: "WMT", Tick: 9, Headline: "two $1"},
		{ID: 3, Ticker: "CAT", Tick: 10, Headline: "fresh $1"},
		{ID: 4, Ticker: "MMM", Tick: 12, Headline: "future $1"},
		{ID: 5, Ticker: "MMM", Tick: 7, Headline: "stale $1"},
	}
	got := Actionable(items, 10, 2)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].NewsID)
	assert.Equal(t, int64(0), got[0].Elapsed)
	assert.Equal(t, int64(2), got[1].NewsID)
	assert.Equal(t, int64(2), got[2].Elapsed)
}

func newTestNewsShock(md domain.MarketData) *NewsShock {
	return NewNewsShock(NewsShockConfig{
		Pairs:    []Pair{{Underlying: "WMT", Main: "WMT-M", Alt: "WMT-A"}},
		TakerFee: 0.02,
		Buffer:   0.01,
		Clip:     1000,
	}, md, testLogger())
}

func TestNewsShock_ReactThenReverse(t *testing.T) {
	md := newFakeMarket()
	md.news = []domain.NewsItem{{ID: 11, Ticker: "WMT", Tick: 20, Headline: "WMT beats estimates, up $0.80"}}
	ns := newTestNewsShock(md)
	ctx := context.Background()

	insts, err := ns.Evaluate(ctx, TickContext{Tick: 20})
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "WMT-M", insts[0].Symbol)
	assert.Equal(t, "WMT-A", insts[1].Symbol)
	for _, in := range insts {
		assert.Equal(t, domain.OrderSideBuy, in.Side)
		assert.Equal(t, domain.OrderTypeMarket, in.Type)
		assert.Equal(t, int64(1000), in.Quantity)
	}

	// Same tick again is deduplicated.
	insts, err = ns.Evaluate(ctx, TickContext{Tick: 20})
	require.NoError(t, err)
	assert.Empty(t, insts)

	// Elapsed 1: neither fresh nor at the reversal tick.
	insts, err = ns.Evaluate(ctx, TickContext{Tick: 21})
	require.NoError(t, err)
	assert.Empty(t, insts)

	insts, err = ns.Evaluate(ctx, TickContext{Tick: 22})
	require.NoError(t, err)
	require.Len(t, insts, 2)
	for _, in := range insts {
		assert.Equal(t, domain.OrderSideSell, in.Side)
	}

	insts, err = ns.Evaluate(ctx, TickContext{Tick: 23})
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestNewsShock_NoReversalWithoutReaction(t *testing.T) {
	md := newFakeMarket()
	md.news = []domain.NewsItem{{ID: 12, Ticker: "WMT", Tick: 20, Headline: "WMT up $0.80"}}
	ns := newTestNewsShock(md)
	ctx := context.Background()

	// The loop first sees the event one tick late, after the react window.
	insts, err := ns.Evaluate(ctx, TickContext{Tick: 21})
	require.NoError(t, err)
	assert.Empty(t, insts)

	insts, err = ns.Evaluate(ctx, TickContext{Tick: 22})
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestNewsShock_LegsShareGroup(t *testing.T) {
	md := newFakeMarket()
	md.news = []domain.NewsItem{{ID: 13, Ticker: "WMT", Tick: 5, Headline: "up $1"}}
	insts, err := newTestNewsShock(md).Evaluate(context.Background(), TickContext{Tick: 5})
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.NotEmpty(t, insts[0].Group)
	assert.Equal(t, insts[0].Group, insts[1].Group)
}

func TestNewsShock_Filters(t *testing.T) {
	tests := []struct {
		name string
		item domain.NewsItem
		want int
	}{
		{name: "negative shock sells", item: domain.NewsItem{ID: 1, Ticker: "WMT-A", Tick: 5, Headline: "falls -$0.50"}, want: 2},
		{name: "at threshold ignored", item: domain.NewsItem{ID: 2, Ticker: "WMT", Tick: 5, Headline: "moves $0.04"}, want: 0},
		{name: "unknown ticker ignored", item: domain.NewsItem{ID: 3, Ticker: "XOM", Tick: 5, Headline: "up $5"}, want: 0},
		{name: "lowercase ticker matched", item: domain.NewsItem{ID: 4, Ticker: "wmt", Tick: 5, Headline: "up $5"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := newFakeMarket()
			md.news = []domain.NewsItem{tt.item}
			insts, err := newTestNewsShock(md).Evaluate(context.Background(), TickContext{Tick: 5})
			require.NoError(t, err)
			assert.Len(t, insts, tt.want)
		})
	}
}

func TestNewsShock_NewsErrorIsNotFatal(t *testing.T) {
	md := newFakeMarket()
	md.errs[domain.OpNews] = &domain.TransportError{Op: domain.OpNews, Status: 503}
	_, err := newTestNewsShock(md).Evaluate(context.Background(), TickContext{Tick: 1})
	require.Error(t, err)
	assert.False(t, domain.IsFatal(err))
}
