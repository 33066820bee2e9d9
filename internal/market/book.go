// Package market derives tradeable figures from raw venue snapshots.
package market

import "github.com/alanyoungcy/tickbot/internal/domain"

// BestPriceRoom is the top of book for one snapshot. HasBid and HasAsk are
// false when the side is empty; the matching price is then meaningless and
// must not be traded against.
type BestPriceRoom struct {
	Symbol  string
	BestBid float64
	BestAsk float64
	HasBid  bool
	HasAsk  bool
	BidRoom int64
	AskRoom int64
}

// Depth computes best prices and the room resting at them. Room is the
// unfilled quantity summed over every level quoting exactly the best price;
// deeper levels are ignored.
func Depth(snap domain.OrderBookSnapshot) BestPriceRoom {
	out := BestPriceRoom{Symbol: snap.Symbol}
	out.BestBid, out.BidRoom, out.HasBid = best(snap.Bids)
	out.BestAsk, out.AskRoom, out.HasAsk = best(snap.Asks)
	return out
}

// Mid returns the midpoint of the book, or false if either side is empty.
func (b BestPriceRoom) Mid() (float64, bool) {
	if !b.HasBid || !b.HasAsk {
		return 0, false
	}
	return (b.BestBid + b.BestAsk) / 2, true
}

func best(levels []domain.BookLevel) (price float64, room int64, ok bool) {
	if len(levels) == 0 {
		return 0, 0, false
	}
	price = levels[0].Price
	for _, l := range levels {
		if l.Price == price {
			room += l.Remaining()
		}
	}
	return price, room, true
}
