package domain

// BookLevel is a single resting price level as reported by the venue.
type BookLevel struct {
	Price          float64
	Quantity       int64
	QuantityFilled int64
}

// Remaining returns the unfilled quantity at the level. A level reporting more
// filled than quoted contributes nothing.
func (l BookLevel) Remaining() int64 {
	if l.QuantityFilled >= l.Quantity {
		return 0
	}
	return l.Quantity - l.QuantityFilled
}

// OrderBookSnapshot is a full depth snapshot for one symbol. Bids and Asks are
// ordered best first.
type OrderBookSnapshot struct {
	Symbol string
	Bids   []BookLevel
	Asks   []BookLevel
}

// Quote is the flat top-of-book and position view of a security.
type Quote struct {
	Symbol     string
	Bid        float64
	Ask        float64
	BidSize    int64
	AskSize    int64
	Last       float64
	Position   int64
	VWAP       float64
	Unrealized float64
	Realized   float64
}

// HasBid reports whether the quote carries a usable bid.
func (q Quote) HasBid() bool { return q.Bid > 0 && q.BidSize > 0 }

// HasAsk reports whether the quote carries a usable ask.
func (q Quote) HasAsk() bool { return q.Ask > 0 && q.AskSize > 0 }

// Mid returns the midpoint of bid and ask, or 0 when either side is missing.
func (q Quote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}
