package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type quoteMarket struct {
	quotes map[string]domain.Quote
	err    error
}

func (m *quoteMarket) GetBook(context.Context, string) (domain.OrderBookSnapshot, error) {
	return domain.OrderBookSnapshot{}, nil
}

func (m *quoteMarket) GetQuotes(context.Context, ...string) (map[string]domain.Quote, error) {
	return m.quotes, m.err
}

func (m *quoteMarket) GetHistory(context.Context, string, int) ([]domain.OHLCBar, error) {
	return nil, nil
}

func (m *quoteMarket) GetNews(context.Context, int) ([]domain.NewsItem, error) { return nil, nil }

func (m *quoteMarket) GetLimits(context.Context) ([]domain.Limits, error) { return nil, nil }

type memBlob struct {
	key  string
	body []byte
	err  error
}

func (b *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if b.err != nil {
		return b.err
	}
	b.key = path
	var buf bytes.Buffer
	_, err := buf.ReadFrom(data)
	b.body = buf.Bytes()
	return err
}

func fixedNow() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func TestBuild(t *testing.T) {
	h := strategy.NewHistory(0)
	for _, v := range []float64{0.5, 0.4, 0.6} {
		h.Append("ratio:ES/ETF", v)
	}
	w := NewWriter("", h, testLogger())
	w.now = fixedNow
	w.SetPositions(QuotePositions(&quoteMarket{quotes: map[string]domain.Quote{
		"WMT-M": {Symbol: "WMT-M", Position: -1500},
		"WMT-A": {Symbol: "WMT-A", Position: 1500},
		"ETF":   {Symbol: "ETF"},
	}}))

	st := strategy.Status{State: strategy.StateTerminated, LastTick: 299, Faults: map[string]int64{"news_shock": 2}}
	snap := w.Build(context.Background(), st, errors.New("transport book: HTTP 500"))

	assert.Equal(t, int64(299), snap.Status.LastTick)
	assert.Equal(t, "transport book: HTTP 500", snap.Cause)
	assert.Equal(t, map[string]int64{"WMT-M": -1500, "WMT-A": 1500}, snap.Positions)
	require.Contains(t, snap.Series, "ratio:ES/ETF")
	assert.Equal(t, 3, snap.Series["ratio:ES/ETF"].Count)
	assert.Equal(t, 0.5, snap.Series["ratio:ES/ETF"].Median)
	assert.Equal(t, fixedNow(), snap.WrittenAt)
}

func TestBuild_PositionError(t *testing.T) {
	w := NewWriter("", nil, testLogger())
	w.SetPositions(QuotePositions(&quoteMarket{err: errors.New("down")}))

	snap := w.Build(context.Background(), strategy.Status{}, nil)
	assert.Contains(t, snap.PositionsError, "down")
	assert.Empty(t, snap.Positions)
	assert.Empty(t, snap.Cause)
}

func TestHook_WritesFileAndUploads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "state.json")
	blob := &memBlob{}

	w := NewWriter(path, strategy.NewHistory(0), testLogger())
	w.now = fixedNow
	w.SetBlob(blob)
	w.SetPositions(StaticPositions(func() map[string]int64 { return map[string]int64{"CAT-M": 10} }))

	w.Hook()(context.Background(), strategy.Status{LastTick: 42}, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, int64(42), got.Status.LastTick)
	assert.Equal(t, int64(10), got.Positions["CAT-M"])

	assert.Equal(t, "state-20260304T050607Z.json", blob.key)
	assert.JSONEq(t, string(data), string(blob.body))
}

func TestWrite_UploadError(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "state.json"), nil, testLogger())
	w.SetBlob(&memBlob{err: errors.New("denied")})
	err := w.Write(context.Background(), Snapshot{WrittenAt: fixedNow()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
