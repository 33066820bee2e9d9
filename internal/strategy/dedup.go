package strategy

// Dedup prevents the same event key from firing more than once within a
// window measured in ticks.
type Dedup struct {
	seen map[string]int64 // key -> tick first seen
	ttl  int64
}

// NewDedup creates a Dedup that treats a key as a duplicate for ttl ticks
// after it was first seen.
func NewDedup(ttl int64) *Dedup {
	if ttl < 1 {
		ttl = 1
	}
	return &Dedup{
		seen: make(map[string]int64),
		ttl:  ttl,
	}
}

// IsDuplicate returns true if key was seen within the window ending at tick.
// Otherwise the key is recorded and false is returned.
func (d *Dedup) IsDuplicate(key string, tick int64) bool {
	if at, ok := d.seen[key]; ok && tick-at < d.ttl {
		return true
	}
	d.seen[key] = tick
	return false
}

// Seen reports whether key was recorded within the window ending at tick,
// without recording it.
func (d *Dedup) Seen(key string, tick int64) bool {
	at, ok := d.seen[key]
	return ok && tick-at < d.ttl
}

// Cleanup forgets keys that have aged out of the window.
func (d *Dedup) Cleanup(tick int64) {
	for k, at := range d.seen {
		if tick-at >= d.ttl {
			delete(d.seen, k)
		}
	}
}
