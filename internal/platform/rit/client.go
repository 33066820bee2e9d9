// Package rit is the REST client for the Rotman Interactive Trader client
// API, the venue the strategy loop trades against.
package rit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// DefaultBaseURL is where a local RIT client listens.
const DefaultBaseURL = "http://localhost:9999"

const maxErrorBody = 512

// Client talks to the RIT client API. It implements domain.Venue.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a RIT client. Every request carries apiKey in the
// X-API-Key header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ domain.Venue = (*Client)(nil)

// GetTick returns the case status and current tick.
func (c *Client) GetTick(ctx context.Context) (domain.TickStatus, error) {
	var resp caseResponse
	if err := c.getJSON(ctx, domain.OpTick, "/v1/case", nil, &resp); err != nil {
		return domain.TickStatus{}, err
	}
	return domain.TickStatus{Status: resp.Status, Tick: resp.Tick}, nil
}

// GetBook returns the full depth book for symbol.
func (c *Client) GetBook(ctx context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	var resp bookResponse
	params := url.Values{"ticker": {symbol}}
	if err := c.getJSON(ctx, domain.OpBook, "/v1/securities/book", params, &resp); err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	snap := domain.OrderBookSnapshot{
		Symbol: symbol,
		Bids:   make([]domain.BookLevel, len(resp.Bids)),
		Asks:   make([]domain.BookLevel, len(resp.Asks)),
	}
	for i, l := range resp.Bids {
		snap.Bids[i] = l.toDomain()
	}
	for i, l := range resp.Asks {
		snap.Asks[i] = l.toDomain()
	}
	return snap, nil
}

// GetQuotes returns the securities list keyed by ticker, filtered to symbols
// when any are given.
func (c *Client) GetQuotes(ctx context.Context, symbols ...string) (map[string]domain.Quote, error) {
	var resp []security
	var params url.Values
	if len(symbols) == 1 {
		params = url.Values{"ticker": {symbols[0]}}
	}
	if err := c.getJSON(ctx, domain.OpQuotes, "/v1/securities", params, &resp); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	out := make(map[string]domain.Quote, len(resp))
	for _, s := range resp {
		if len(want) > 0 && !want[s.Ticker] {
			continue
		}
		out[s.Ticker] = s.toDomain()
	}
	return out, nil
}

// GetHistory returns up to count bars for symbol, oldest first.
func (c *Client) GetHistory(ctx context.Context, symbol string, count int) ([]domain.OHLCBar, error) {
	params := url.Values{"ticker": {symbol}}
	if count > 0 {
		params.Set("limit", strconv.Itoa(count))
	}
	var resp []historyBar
	if err := c.getJSON(ctx, domain.OpHistory, "/v1/securities/history", params, &resp); err != nil {
		return nil, err
	}
	// The venue returns newest first.
	out := make([]domain.OHLCBar, len(resp))
	for i, b := range resp {
		out[len(resp)-1-i] = domain.OHLCBar{Tick: b.Tick, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
	}
	return out, nil
}

// GetNews returns the most recent headlines, newest first.
func (c *Client) GetNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	var params url.Values
	if limit > 0 {
		params = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var resp []newsItem
	if err := c.getJSON(ctx, domain.OpNews, "/v1/news", params, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.NewsItem, len(resp))
	for i, n := range resp {
		out[i] = domain.NewsItem{ID: n.NewsID, Ticker: n.Ticker, Tick: n.Tick, Headline: n.Headline}
	}
	return out, nil
}

// GetLimits returns the trader's exposure limits.
func (c *Client) GetLimits(ctx context.Context) ([]domain.Limits, error) {
	var resp []limit
	if err := c.getJSON(ctx, domain.OpLimits, "/v1/limits", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Limits, len(resp))
	for i, l := range resp {
		out[i] = domain.Limits{Name: l.Name, Gross: l.Gross, Net: l.Net, GrossLimit: l.GrossLimit, NetLimit: l.NetLimit}
	}
	return out, nil
}

// SubmitLimitOrder rests a limit order at price.
func (c *Client) SubmitLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, price float64, qty int64) error {
	params := orderParams(symbol, domain.OrderTypeLimit, side, qty)
	params.Set("price", strconv.FormatFloat(price, 'f', 2, 64))
	_, err := c.postOrder(ctx, params)
	return err
}

// SubmitMarketOrder crosses the book and returns the volume-weighted fill
// price reported by the venue.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, qty int64) (float64, error) {
	resp, err := c.postOrder(ctx, orderParams(symbol, domain.OrderTypeMarket, side, qty))
	if err != nil {
		return 0, err
	}
	return resp.VWAP, nil
}

func orderParams(symbol string, typ domain.OrderType, side domain.OrderSide, qty int64) url.Values {
	return url.Values{
		"ticker":   {symbol},
		"type":     {string(typ)},
		"action":   {string(side)},
		"quantity": {strconv.FormatInt(qty, 10)},
	}
}

func (c *Client) postOrder(ctx context.Context, params url.Values) (orderResponse, error) {
	var resp orderResponse
	body, err := c.do(ctx, domain.OpOrder, http.MethodPost, "/v1/orders", params)
	if err != nil {
		return resp, err
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return resp, &domain.TransportError{Op: domain.OpOrder, Status: http.StatusOK, Err: fmt.Errorf("decode: %w", err)}
		}
	}
	return resp, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) getJSON(ctx context.Context, op domain.TransportOp, path string, params url.Values, out any) error {
	body, err := c.do(ctx, op, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.TransportError{Op: op, Status: http.StatusOK, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}

// do sends one request with the API key header. Any failure, including a
// non-2xx status, comes back as a *domain.TransportError tagged with op.
func (c *Client) do(ctx context.Context, op domain.TransportOp, method, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := checkStatus(op, resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx responses to a TransportError. Unauthorized
// responses also wrap domain.ErrUnauthorized.
func checkStatus(op domain.TransportOp, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
		if apiErr.Code != "" {
			msg += " (" + apiErr.Code + ")"
		}
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}

	te := &domain.TransportError{Op: op, Status: statusCode, Body: msg}
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		te.Err = domain.ErrUnauthorized
	}
	return te
}
