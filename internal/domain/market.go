package domain

import "strings"

// StatusStopped is the case status reported once the session has ended.
const StatusStopped = "STOPPED"

// TickStatus is the venue's view of the trading session clock.
type TickStatus struct {
	Status string
	Tick   int64
}

// Stopped reports whether the venue has ended the session.
func (s TickStatus) Stopped() bool {
	return strings.EqualFold(s.Status, StatusStopped)
}

// NewsItem is a headline published by the venue at a given tick.
type NewsItem struct {
	ID       int64
	Ticker   string
	Tick     int64
	Headline string
}

// NewsShock is a news item scored against the current tick.
type NewsShock struct {
	NewsID    int64
	Ticker    string
	Elapsed   int64
	Magnitude float64
	Headline  string
}

// OHLCBar is one bar of tick history.
type OHLCBar struct {
	Tick  int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Limits describes a trader's exposure against the configured caps.
type Limits struct {
	Name       string
	Gross      float64
	Net        float64
	GrossLimit float64
	NetLimit   float64
}

// GrossHeadroom returns how much more gross exposure is allowed. A zero
// GrossLimit means uncapped and yields -1.
func (l Limits) GrossHeadroom() float64 {
	if l.GrossLimit <= 0 {
		return -1
	}
	room := l.GrossLimit - l.Gross
	if room < 0 {
		return 0
	}
	return room
}
