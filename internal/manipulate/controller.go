// Package manipulate runs the resize, rotate and endpoint-drag sessions for the
// singleton-selected shape.
package manipulate

import (
	"log/slog"

	"github.com/inkboard/inkboard/internal/geometry"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

type Mode int

const (
	Idle Mode = iota
	Resizing
	Rotating
	DraggingEndpoint
)

func (m Mode) String() string {
	switch m {
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	case DraggingEndpoint:
		return "endpoint"
	default:
		return "idle"
	}
}

// Session describes the gesture in flight.
type Session struct {
	Mode Mode
	ID   string
	Zone geometry.Zone
}

type session struct {
	Session
	original       shape.Shape
	startX, startY float64
	// sweep is the last unwrapped rotation delta, so turns past 180 degrees continue.
	sweep float64
}

// Controller owns at most one session at a time. Every move recomputes the patch
// from the frozen original and the pointer, then merges it into the current
// stored copy.
type Controller struct {
	st  store.Store
	cur *session
}

func New(st store.Store) *Controller {
	return &Controller{st: st}
}

// PointerDown starts a session when (x, y) is over a handle of the shape with the
// given id, which must be the singleton selection. It returns false, leaving any
// active session untouched, when nothing starts.
func (c *Controller) PointerDown(id string, x, y, viewScale float64) bool {
	if c.cur != nil || id == "" {
		return false
	}
	s, ok := c.st.Get(id)
	if !ok {
		return false
	}

	zone := geometry.ClassifyZone(s, x, y, viewScale).Zone
	var mode Mode
	switch {
	case zone.IsResize():
		mode = Resizing
	case zone.IsRotation():
		mode = Rotating
	case zone.IsEndpoint():
		mode = DraggingEndpoint
	default:
		return false
	}

	c.cur = &session{
		Session:  Session{Mode: mode, ID: id, Zone: zone},
		original: s,
		startX:   x,
		startY:   y,
	}
	slog.Debug("manipulation started", "shape", id, "mode", mode, "zone", zone)
	return true
}

// PointerMove applies the session to the pointer position. A shape deleted
// mid-gesture ends the session without being recreated.
func (c *Controller) PointerMove(x, y float64) bool {
	if c.cur == nil {
		return false
	}
	current, ok := c.st.Get(c.cur.ID)
	if !ok {
		slog.Debug("manipulated shape vanished", "shape", c.cur.ID)
		c.cur = nil
		return false
	}

	patch, ok := c.patch(x, y)
	if !ok {
		return false
	}
	c.st.Set(c.cur.ID, shape.Apply(current, patch))
	return true
}

func (c *Controller) patch(x, y float64) (shape.Patch, bool) {
	s := c.cur
	switch s.Mode {
	case Resizing:
		return geometry.ComputeResize(s.Zone, x, y, s.original)
	case DraggingEndpoint:
		return geometry.ComputeEndpoint(s.Zone, x, y)
	case Rotating:
		initial := s.original.Meta().Rotation
		next := geometry.ComputeRotation(s.original, x, y, s.startX, s.startY, initial)
		s.sweep = geometry.UnwrapDegrees(next-initial, s.sweep)
		return shape.Patch{Rotation: shape.Float(initial + s.sweep)}, true
	default:
		return shape.Patch{}, false
	}
}

// PointerUp ends the session and reports whether one was active.
func (c *Controller) PointerUp() bool {
	if c.cur == nil {
		return false
	}
	slog.Debug("manipulation ended", "shape", c.cur.ID, "mode", c.cur.Mode)
	c.cur = nil
	return true
}

// Cancel ends the session the same way PointerUp does.
func (c *Controller) Cancel() bool {
	return c.PointerUp()
}

func (c *Controller) Active() (Session, bool) {
	if c.cur == nil {
		return Session{}, false
	}
	return c.cur.Session, true
}

// SuppressesDrag reports whether move-dragging is blocked for this gesture.
func (c *Controller) SuppressesDrag() bool {
	return c.cur != nil
}
