package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType selects between resting and immediately executable orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderInstruction is emitted by a strategy to request order execution.
type OrderInstruction struct {
	ID       string // UUID for journal correlation
	Source   string // strategy name
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Quantity int64
	Price    float64 // limit orders only
	Tick     int64
	Reason   string

	// Group ties the legs of one trade together; the executor accepts or
	// skips them as a unit. Empty for single orders.
	Group string
}

// OrderResult is the outcome of submitting one instruction.
type OrderResult struct {
	InstructionID string
	Success       bool
	Skipped       bool
	FillPrice     float64
	Message       string
	SubmittedAt   time.Time
}
