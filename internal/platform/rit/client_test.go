package rit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", time.Second)
}

func TestGetTick(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/case", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"name":"ALGO2","period":1,"tick":42,"status":"ACTIVE"}`))
	})
	st, err := c.GetTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), st.Tick)
	assert.False(t, st.Stopped())
}

func TestGetBook(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/securities/book", r.URL.Path)
		assert.Equal(t, "WMT-M", r.URL.Query().Get("ticker"))
		_, _ = w.Write([]byte(`{
			"bids":[{"price":10.5,"quantity":2000,"quantity_filled":500},{"price":10.49,"quantity":100,"quantity_filled":0}],
			"asks":[{"price":10.6,"quantity":300,"quantity_filled":0}]
		}`))
	})
	snap, err := c.GetBook(context.Background(), "WMT-M")
	require.NoError(t, err)
	assert.Equal(t, "WMT-M", snap.Symbol)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, 10.5, snap.Bids[0].Price)
	assert.Equal(t, int64(1500), snap.Bids[0].Remaining())
	require.Len(t, snap.Asks, 1)
}

func TestGetBook_ErrorsAreFatalTransportErrors(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"INTERNAL","message":"case not running"}`))
	})
	_, err := c.GetBook(context.Background(), "WMT-M")
	require.Error(t, err)

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.OpBook, te.Op)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
	assert.Equal(t, "case not running (INTERNAL)", te.Body)
	assert.True(t, domain.IsFatal(err))
}

func TestUnauthorized(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.GetNews(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.False(t, domain.IsFatal(err))
}

func TestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, "k", time.Second)

	_, err := c.GetTick(context.Background())
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Status)
	assert.True(t, domain.IsFatal(err))
}

func TestGetQuotes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/securities", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"ticker":"ETF","bid":100.1,"bid_size":500,"ask":100.2,"ask_size":400,"position":-200,"last":100.15},
			{"ticker":"WMT-M","bid":49.9,"bid_size":300,"ask":50,"ask_size":300},
			{"ticker":"CAT-M","bid":20,"bid_size":1,"ask":21,"ask_size":1}
		]`))
	})
	qs, err := c.GetQuotes(context.Background(), "ETF", "WMT-M")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, int64(-200), qs["ETF"].Position)
	assert.Equal(t, int64(400), qs["ETF"].AskSize)

	all, err := c.GetQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetHistory_OldestFirst(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"tick":12,"open":3,"high":3,"low":3,"close":3},
			{"tick":11,"open":2,"high":2,"low":2,"close":2},
			{"tick":10,"open":1,"high":1,"low":1,"close":1}
		]`))
	})
	bars, err := c.GetHistory(context.Background(), "CAT-M", 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, int64(10), bars[0].Tick)
	assert.Equal(t, int64(12), bars[2].Tick)
}

func TestGetNewsAndLimits(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/news":
			_, _ = w.Write([]byte(`[{"news_id":7,"tick":30,"ticker":"WMT","headline":"WMT up $1.00","body":""}]`))
		case "/v1/limits":
			_, _ = w.Write([]byte(`[{"name":"LIMIT-STOCK","gross":100,"net":-50,"gross_limit":25000,"net_limit":10000}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	news, err := c.GetNews(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, domain.NewsItem{ID: 7, Ticker: "WMT", Tick: 30, Headline: "WMT up $1.00"}, news[0])

	limits, err := c.GetLimits(context.Background())
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.Equal(t, 24900.0, limits[0].GrossHeadroom())
}

func TestSubmitOrders(t *testing.T) {
	var got []map[string]string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		q := r.URL.Query()
		got = append(got, map[string]string{
			"ticker":   q.Get("ticker"),
			"type":     q.Get("type"),
			"action":   q.Get("action"),
			"quantity": q.Get("quantity"),
			"price":    q.Get("price"),
		})
		_, _ = w.Write([]byte(`{"order_id":1,"ticker":"WMT-A","vwap":10.31,"status":"TRANSACTED"}`))
	})

	px, err := c.SubmitMarketOrder(context.Background(), "WMT-A", domain.OrderSideBuy, 1500)
	require.NoError(t, err)
	assert.Equal(t, 10.31, px)

	require.NoError(t, c.SubmitLimitOrder(context.Background(), "WMT-M", domain.OrderSideSell, 10.5, 200))

	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"ticker": "WMT-A", "type": "MARKET", "action": "BUY", "quantity": "1500", "price": ""}, got[0])
	assert.Equal(t, map[string]string{"ticker": "WMT-M", "type": "LIMIT", "action": "SELL", "quantity": "200", "price": "10.50"}, got[1])
}

func TestOrderRejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"TOO_MANY_REQUESTS","message":"rate limited"}`))
	})
	_, err := c.SubmitMarketOrder(context.Background(), "WMT-A", domain.OrderSideBuy, 1)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.OpOrder, te.Op)
	assert.False(t, domain.IsFatal(err))
}
