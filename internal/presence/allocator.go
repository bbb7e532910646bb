package presence

import (
	"log/slog"
	"sync"
)

// Allocator owns one client's presence record. Slots are keyed by connection id;
// when two slots share a color the one whose id sorts higher yields.
type Allocator struct {
	slot    string
	palette []string
	publish func(Record)

	mu     sync.Mutex
	user   User
	cursor *Cursor
}

// NewAllocator creates the allocator for the connection slot. publish is called
// with the new record whenever it changes and may be nil.
func NewAllocator(slot string, user User, palette []string, publish func(Record)) *Allocator {
	if len(palette) == 0 {
		palette = Palette
	}
	return &Allocator{slot: slot, palette: palette, publish: publish, user: user}
}

func (a *Allocator) Slot() string { return a.slot }

// Claim picks the first color unused by the other visible slots and publishes it.
func (a *Allocator) Claim(states map[string]Record) string {
	a.mu.Lock()
	a.user.Color = PickAvailableColor(a.palette, usedColors(states, a.slot), a.user.ID)
	rec := a.recordLocked()
	a.mu.Unlock()

	a.emit(rec)
	return rec.User.Color
}

// Observe re-checks the color after a presence update and reports whether it
// changed. A state still carrying this client's previous color for its own slot
// is stale and skipped.
func (a *Allocator) Observe(states map[string]Record) bool {
	a.mu.Lock()
	if own, ok := states[a.slot]; ok && own.User.Color != a.user.Color {
		a.mu.Unlock()
		return false
	}

	yield := false
	for slot, r := range states {
		if slot != a.slot && r.User.Color == a.user.Color && slot < a.slot {
			yield = true
			break
		}
	}
	if !yield {
		a.mu.Unlock()
		return false
	}

	next := PickAvailableColor(a.palette, usedColors(states, a.slot), a.user.ID)
	if next == a.user.Color {
		a.mu.Unlock()
		return false
	}
	prev := a.user.Color
	a.user.Color = next
	rec := a.recordLocked()
	a.mu.Unlock()

	slog.Debug("presence color conflict resolved", "slot", a.slot, "from", prev, "to", next)
	a.emit(rec)
	return true
}

// SetCursor updates the live cursor; nil hides it.
func (a *Allocator) SetCursor(c *Cursor) {
	a.mu.Lock()
	if c != nil {
		cp := *c
		c = &cp
	}
	a.cursor = c
	rec := a.recordLocked()
	a.mu.Unlock()

	a.emit(rec)
}

// Record returns the current record.
func (a *Allocator) Record() Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recordLocked()
}

func (a *Allocator) recordLocked() Record {
	rec := Record{User: a.user}
	if a.cursor != nil {
		c := *a.cursor
		rec.Cursor = &c
	}
	return rec
}

func (a *Allocator) emit(rec Record) {
	if a.publish != nil {
		a.publish(rec)
	}
}
