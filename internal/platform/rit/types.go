package rit

import "github.com/alanyoungcy/tickbot/internal/domain"

// --------------------------------------------------------------------------
// RIT client API DTOs
// --------------------------------------------------------------------------

// caseResponse is the body of GET /v1/case.
type caseResponse struct {
	Name   string `json:"name"`
	Period int64  `json:"period"`
	Tick   int64  `json:"tick"`
	Status string `json:"status"` // "ACTIVE", "PAUSED", "STOPPED"
}

// bookLevel is one resting order in the book.
type bookLevel struct {
	OrderID        int64   `json:"order_id"`
	Period         int64   `json:"period"`
	Tick           int64   `json:"tick"`
	Trader         string  `json:"trader_id"`
	Ticker         string  `json:"ticker"`
	Type           string  `json:"type"`
	Action         string  `json:"action"`
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	QuantityFilled float64 `json:"quantity_filled"`
	VWAP           float64 `json:"vwap"`
	Status         string  `json:"status"`
}

// bookResponse is the body of GET /v1/securities/book.
type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

// security is one entry of GET /v1/securities.
type security struct {
	Ticker     string  `json:"ticker"`
	Type       string  `json:"type"`
	Position   float64 `json:"position"`
	VWAP       float64 `json:"vwap"`
	NLV        float64 `json:"nlv"`
	Last       float64 `json:"last"`
	BidSize    float64 `json:"bid_size"`
	Bid        float64 `json:"bid"`
	AskSize    float64 `json:"ask_size"`
	Ask        float64 `json:"ask"`
	Unrealized float64 `json:"unrealized"`
	Realized   float64 `json:"realized"`
}

// historyBar is one entry of GET /v1/securities/history.
type historyBar struct {
	Tick  int64   `json:"tick"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// newsItem is one entry of GET /v1/news.
type newsItem struct {
	NewsID   int64  `json:"news_id"`
	Period   int64  `json:"period"`
	Tick     int64  `json:"tick"`
	Ticker   string `json:"ticker"`
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

// limit is one entry of GET /v1/limits.
type limit struct {
	Name       string  `json:"name"`
	Gross      float64 `json:"gross"`
	Net        float64 `json:"net"`
	GrossLimit float64 `json:"gross_limit"`
	NetLimit   float64 `json:"net_limit"`
}

// orderResponse is the body of POST /v1/orders.
type orderResponse struct {
	OrderID        int64   `json:"order_id"`
	Ticker         string  `json:"ticker"`
	Type           string  `json:"type"`
	Action         string  `json:"action"`
	Quantity       float64 `json:"quantity"`
	QuantityFilled float64 `json:"quantity_filled"`
	Price          float64 `json:"price"`
	VWAP           float64 `json:"vwap"`
	Status         string  `json:"status"`
}

// apiError is the error body the venue returns on non-2xx responses.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (l bookLevel) toDomain() domain.BookLevel {
	return domain.BookLevel{
		Price:          l.Price,
		Quantity:       int64(l.Quantity),
		QuantityFilled: int64(l.QuantityFilled),
	}
}

func (s security) toDomain() domain.Quote {
	return domain.Quote{
		Symbol:     s.Ticker,
		Bid:        s.Bid,
		Ask:        s.Ask,
		BidSize:    int64(s.BidSize),
		AskSize:    int64(s.AskSize),
		Last:       s.Last,
		Position:   int64(s.Position),
		VWAP:       s.VWAP,
		Unrealized: s.Unrealized,
		Realized:   s.Realized,
	}
}
