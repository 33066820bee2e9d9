package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/config"
	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/faultlog"
	"github.com/alanyoungcy/tickbot/internal/metrics"
	"github.com/alanyoungcy/tickbot/internal/notify"
	"github.com/alanyoungcy/tickbot/internal/state"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// scriptedVenue plays back a fixed tick sequence, then reports STOPPED.
type scriptedVenue struct {
	mu     sync.Mutex
	ticks  []int64
	books  map[string]domain.OrderBookSnapshot
	quotes map[string]domain.Quote
	orders []string
}

func (v *scriptedVenue) GetTick(context.Context) (domain.TickStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.ticks) == 0 {
		return domain.TickStatus{Status: domain.StatusStopped}, nil
	}
	t := v.ticks[0]
	v.ticks = v.ticks[1:]
	return domain.TickStatus{Status: "ACTIVE", Tick: t}, nil
}

func (v *scriptedVenue) GetBook(_ context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	if b, ok := v.books[symbol]; ok {
		return b, nil
	}
	return domain.OrderBookSnapshot{Symbol: symbol}, nil
}

func (v *scriptedVenue) GetQuotes(_ context.Context, symbols ...string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote)
	for _, s := range symbols {
		if q, ok := v.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (v *scriptedVenue) GetHistory(context.Context, string, int) ([]domain.OHLCBar, error) {
	return nil, nil
}

func (v *scriptedVenue) GetNews(context.Context, int) ([]domain.NewsItem, error) {
	return nil, nil
}

func (v *scriptedVenue) GetLimits(context.Context) ([]domain.Limits, error) {
	return nil, nil
}

func (v *scriptedVenue) SubmitLimitOrder(_ context.Context, symbol string, _ domain.OrderSide, _ float64, _ int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = append(v.orders, symbol)
	return nil
}

func (v *scriptedVenue) SubmitMarketOrder(_ context.Context, symbol string, _ domain.OrderSide, _ int64) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = append(v.orders, symbol)
	return 0, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Venue.APIKey = "key"
	cfg.FaultLog.Path = filepath.Join(t.TempDir(), "faults.jsonl")
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "state.json")
	cfg.Server.Enabled = false
	cfg.Engine.PollInterval.Duration = time.Millisecond
	return &cfg
}

func TestBuildStrategies_DefaultOrder(t *testing.T) {
	cfg := config.Defaults()
	got, err := buildStrategies(cfg.Strategy, cfg.Fees, &scriptedVenue{}, testLogger())
	require.NoError(t, err)

	var names []string
	for _, s := range got {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"cross_venue_arb", "index_arb", "news_shock", "index_ratio"}, names)
}

func TestBuildStrategies_ExplicitOrder(t *testing.T) {
	cfg := config.Defaults()
	cfg.Strategy.Order = []string{"index_ratio", "news_shock"}
	got, err := buildStrategies(cfg.Strategy, cfg.Fees, &scriptedVenue{}, testLogger())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "index_ratio", got[0].Name())
	assert.Equal(t, "news_shock", got[1].Name())
}

func TestWire_OptionalBackendsDisabled(t *testing.T) {
	cfg := testConfig(t)
	deps, cleanup, err := Wire(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Venue)
	assert.NotNil(t, deps.Metrics)
	assert.Nil(t, deps.Journal)
	assert.Nil(t, deps.SignalBus)
	assert.Nil(t, deps.BlobWriter)
	assert.Len(t, deps.FaultLogs, 1)
	assert.False(t, deps.Notifier.Enabled())
	assert.FileExists(t, cfg.FaultLog.Path)
}

func TestWire_MissingKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Venue.APIKey = ""
	_, _, err := Wire(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue key")
}

func TestPaperMode_RunsUntilStoppedAndSnapshots(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = "paper"
	cfg.Engine.LimitGuard = false
	cfg.Strategy.Order = []string{"cross_venue_arb"}
	cfg.Strategy.Pairs = []config.PairConfig{{Underlying: "WMT", Main: "WMT-M", Alt: "WMT-A"}}

	venue := &scriptedVenue{
		ticks: []int64{1},
		books: map[string]domain.OrderBookSnapshot{
			"WMT-M": {
				Symbol: "WMT-M",
				Bids:   []domain.BookLevel{{Price: 10.50, Quantity: 100}},
				Asks:   []domain.BookLevel{{Price: 10.60, Quantity: 100}},
			},
			"WMT-A": {
				Symbol: "WMT-A",
				Bids:   []domain.BookLevel{{Price: 10.00, Quantity: 100}},
				Asks:   []domain.BookLevel{{Price: 10.20, Quantity: 100}},
			},
		},
		quotes: map[string]domain.Quote{
			"WMT-M": {Symbol: "WMT-M", Bid: 10.50, BidSize: 100, Ask: 10.60, AskSize: 100},
			"WMT-A": {Symbol: "WMT-A", Bid: 10.00, BidSize: 100, Ask: 10.20, AskSize: 100},
		},
	}
	deps := &Dependencies{
		Venue:     venue,
		FaultLogs: faultlog.Multi{},
		Metrics:   metrics.New(),
		Notifier:  notify.NewNotifier(nil, nil, testLogger()),
	}

	a := New(cfg, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.PaperMode(ctx, deps))

	// Paper fills never reach the venue.
	assert.Empty(t, venue.orders)

	data, err := os.ReadFile(cfg.Snapshot.Path)
	require.NoError(t, err)
	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, strategy.StateTerminated, snap.Status.State)
	assert.Equal(t, int64(1), snap.Status.Ticks)
	assert.Equal(t, int64(2), snap.Status.Orders)
	assert.Equal(t, map[string]int64{"WMT-M": -100, "WMT-A": 100}, snap.Positions)
}
