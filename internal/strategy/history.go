package strategy

import "sort"

// defaultHistoryCap bounds each series kept by a History.
const defaultHistoryCap = 10_000

// History is the rolling accumulator owned by the strategy loop. The engine
// hands the same instance to every strategy each tick; strategies only touch
// it from inside Evaluate, so it needs no locking.
type History struct {
	series map[string][]float64
	cap    int
}

// NewHistory creates a History keeping at most capacity points per series.
// A non-positive capacity selects the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &History{
		series: make(map[string][]float64),
		cap:    capacity,
	}
}

// Append records a value on the named series, dropping the oldest point once
// the series is full.
func (h *History) Append(key string, v float64) {
	s := append(h.series[key], v)
	if overflow := len(s) - h.cap; overflow > 0 {
		s = append([]float64(nil), s[overflow:]...)
	}
	h.series[key] = s
}

// Series returns a copy of the named series, oldest first.
func (h *History) Series(key string) []float64 {
	src := h.series[key]
	if len(src) == 0 {
		return nil
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Len returns the number of points on the named series.
func (h *History) Len(key string) int {
	return len(h.series[key])
}

// Keys returns the series names in sorted order.
func (h *History) Keys() []string {
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeriesStats summarises one series.
type SeriesStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Last   float64 `json:"last"`
}

// Stats summarises the named series. The zero value is returned for an
// empty series.
func (h *History) Stats(key string) SeriesStats {
	src := h.series[key]
	if len(src) == 0 {
		return SeriesStats{}
	}
	sorted := make([]float64, len(src))
	copy(sorted, src)
	sort.Float64s(sorted)

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return SeriesStats{
		Count:  n,
		Min:    sorted[0],
		Median: median,
		Max:    sorted[n-1],
		Last:   src[n-1],
	}
}
