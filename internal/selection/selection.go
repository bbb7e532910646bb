// Package selection tracks which shapes are selected on a board and applies
// edits across the whole selection.
package selection

import (
	"slices"

	"github.com/inkboard/inkboard/internal/geometry"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

// DuplicateOffset is how far copies are shifted from their originals.
const DuplicateOffset = 20.0

type point struct{ x, y float64 }

// Manager owns the selection set of one open board. It is not safe for
// concurrent use; the board's event loop drives it.
type Manager struct {
	st     store.Store
	author string
	// NewID overrides id generation for duplicates.
	NewID func() string

	ids map[string]struct{}

	bandStart *point
	bandRect  geometry.Rect
	dragLast  *point

	unsubscribe func()
}

func New(st store.Store, author string) *Manager {
	m := &Manager{st: st, author: author, ids: map[string]struct{}{}}
	m.unsubscribe = st.Subscribe(m.observe)
	return m
}

// observe drops ids that were deleted, locally or by a collaborator.
func (m *Manager) observe(ev store.Event) {
	for _, c := range ev.Changes {
		if c.After == nil {
			delete(m.ids, c.ID)
		}
	}
}

func (m *Manager) Close() {
	m.unsubscribe()
}

// IDs returns the selection in a stable order.
func (m *Manager) IDs() []string {
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m *Manager) Len() int { return len(m.ids) }

func (m *Manager) Has(id string) bool {
	_, ok := m.ids[id]
	return ok
}

// Singleton returns the only selected id. Single-shape affordances such as
// handles and property toolbars key off it.
func (m *Manager) Singleton() (string, bool) {
	if len(m.ids) != 1 {
		return "", false
	}
	for id := range m.ids {
		return id, true
	}
	return "", false
}

// Set replaces the selection.
func (m *Manager) Set(ids ...string) {
	m.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
}

func (m *Manager) Clear() {
	m.Set()
}

// Click selects id alone, or toggles it when shift is held.
func (m *Manager) Click(id string, shift bool) {
	if !shift {
		m.Set(id)
		return
	}
	if m.Has(id) {
		delete(m.ids, id)
	} else {
		m.ids[id] = struct{}{}
	}
}

func (m *Manager) SelectAll() {
	all := m.st.All()
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, shape.ID(s))
	}
	m.Set(ids...)
}

// Shapes returns the selected shapes that still exist, bottom to top.
func (m *Manager) Shapes() []shape.Shape {
	return m.selectedIn(m.st)
}

func (m *Manager) selectedIn(r store.Reader) []shape.Shape {
	out := make([]shape.Shape, 0, len(m.ids))
	for _, s := range r.All() {
		if m.Has(shape.ID(s)) {
			out = append(out, s)
		}
	}
	return out
}

// Bounds is the union of the selected shapes' rotated bounds.
func (m *Manager) Bounds() (geometry.Rect, bool) {
	return geometry.BoundsOf(m.Shapes())
}

func (m *Manager) BeginRubberBand(x, y float64) {
	m.bandStart = &point{x, y}
	m.bandRect = geometry.Rect{X: x, Y: y}
}

func (m *Manager) UpdateRubberBand(x, y float64) geometry.Rect {
	if m.bandStart == nil {
		return geometry.Rect{}
	}
	m.bandRect = geometry.RectFromPoints(m.bandStart.x, m.bandStart.y, x, y)
	return m.bandRect
}

// RubberBand returns the band being drawn, if any.
func (m *Manager) RubberBand() (geometry.Rect, bool) {
	return m.bandRect, m.bandStart != nil
}

// EndRubberBand selects every shape whose bounds overlap the band, replacing the
// previous selection.
func (m *Manager) EndRubberBand() []string {
	if m.bandStart == nil {
		return m.IDs()
	}
	band := m.bandRect
	m.bandStart = nil
	m.bandRect = geometry.Rect{}

	var ids []string
	for _, s := range m.st.All() {
		if geometry.AABB(s).Intersects(band) {
			ids = append(ids, shape.ID(s))
		}
	}
	m.Set(ids...)
	return m.IDs()
}

// BeginGroupDrag starts moving the selection with the pointer at (x, y).
func (m *Manager) BeginGroupDrag(x, y float64) bool {
	if len(m.ids) == 0 {
		return false
	}
	m.dragLast = &point{x, y}
	return true
}

func (m *Manager) Dragging() bool { return m.dragLast != nil }

// MoveGroupDrag applies the delta since the previous pointer position to every
// selected shape and resets the reference point.
func (m *Manager) MoveGroupDrag(x, y float64) {
	if m.dragLast == nil {
		return
	}
	dx, dy := x-m.dragLast.x, y-m.dragLast.y
	m.dragLast = &point{x, y}
	if dx == 0 && dy == 0 {
		return
	}
	m.translate(dx, dy)
}

func (m *Manager) EndGroupDrag() {
	m.dragLast = nil
}

// Nudge moves the selection by a fixed offset.
func (m *Manager) Nudge(dx, dy float64) {
	m.translate(dx, dy)
}

func (m *Manager) translate(dx, dy float64) {
	m.st.Batch(func(w store.Writer) {
		for _, s := range m.selectedIn(w) {
			w.Set(shape.ID(s), shape.Translate(s, dx, dy))
		}
	})
}

// DeleteSelected removes every selected shape and clears the selection.
func (m *Manager) DeleteSelected() int {
	n := 0
	m.st.Batch(func(w store.Writer) {
		for _, s := range m.selectedIn(w) {
			w.Delete(shape.ID(s))
			n++
		}
	})
	m.Clear()
	return n
}

// DuplicateSelected copies the selection with fresh ids and an offset, stacked
// above everything, and selects the copies.
func (m *Manager) DuplicateSelected() []string {
	var ids []string
	m.st.Batch(func(w store.Writer) {
		ed := store.Editor{W: w, Author: m.author, NewID: m.NewID}
		for _, s := range m.selectedIn(w) {
			cp := shape.WithID(shape.Translate(s, DuplicateOffset, DuplicateOffset), "")
			cp = shape.WithAuthor(cp, m.author)
			ids = append(ids, shape.ID(ed.Create(cp)))
		}
	})
	if len(ids) > 0 {
		m.Set(ids...)
	}
	return ids
}

// BringToFront restacks the selection above every other shape, keeping the
// selected shapes' order relative to each other.
func (m *Manager) BringToFront() {
	m.st.Batch(func(w store.Writer) {
		next := store.NextZ(w)
		for i, s := range m.selectedIn(w) {
			w.Set(shape.ID(s), shape.Apply(s, shape.Patch{ZIndex: shape.Int(next + int64(i))}))
		}
	})
}
