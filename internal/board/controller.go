// Package board ties the editing subsystems of one open board together: the
// shared shape store, undo history, selection, manipulation sessions, presence
// and the agent busy state. The browser bridge drives it with pointer events.
package board

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/geometry"
	"github.com/inkboard/inkboard/internal/manipulate"
	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/selection"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
	"github.com/inkboard/inkboard/internal/typeid"
)

var (
	ErrClosed         = errors.New("board is closed")
	ErrStaleResponse  = errors.New("agent response does not match the pending request")
	ErrAgentFailed    = errors.New("agent request failed")
	errNoPendingAgent = errors.New("no agent request pending")
)

// Gesture is what the current pointer press is doing.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureManipulate
	GestureDrag
	GestureBand
)

func (g Gesture) String() string {
	switch g {
	case GestureManipulate:
		return "manipulate"
	case GestureDrag:
		return "drag"
	case GestureBand:
		return "band"
	default:
		return "none"
	}
}

type Options struct {
	// Author is stamped on shapes this client creates.
	Author string
	// Slot is the presence slot, usually the connection id.
	Slot    string
	User    presence.User
	Palette []string
	// OnPresence receives this client's presence record whenever it changes.
	OnPresence func(presence.Record)
	Shapes     []shape.Shape
}

// Controller is the state of one open board. It is not safe for concurrent
// use; every call comes from the board's event loop.
type Controller struct {
	mem      *store.Memory
	undo     *store.UndoManager
	sel      *selection.Manager
	manip    *manipulate.Controller
	presence *presence.Allocator
	author   string

	viewScale float64
	gesture   Gesture
	pending   string
	closed    bool
}

func New(opts Options) *Controller {
	mem := store.NewMemory(opts.Shapes...)
	slot := opts.Slot
	if slot == "" {
		slot = opts.User.ID
	}
	return &Controller{
		mem:       mem,
		undo:      store.NewUndoManager(mem),
		sel:       selection.New(mem, opts.Author),
		manip:     manipulate.New(mem),
		presence:  presence.NewAllocator(slot, opts.User, opts.Palette, opts.OnPresence),
		author:    opts.Author,
		viewScale: 1,
	}
}

func (c *Controller) Store() *store.Memory          { return c.mem }
func (c *Controller) Selection() *selection.Manager { return c.sel }
func (c *Controller) Presence() *presence.Allocator { return c.presence }
func (c *Controller) Undo() *store.UndoManager      { return c.undo }
func (c *Controller) Gesture() Gesture              { return c.gesture }

func (c *Controller) Session() (manipulate.Session, bool) { return c.manip.Active() }

// SetViewScale records the canvas zoom so handle sizes stay constant on screen.
func (c *Controller) SetViewScale(scale float64) {
	if scale > 0 {
		c.viewScale = scale
	}
}

// HitTest returns the id of the topmost shape under the point, or "".
func (c *Controller) HitTest(x, y float64) string {
	all := c.mem.All()
	for i := len(all) - 1; i >= 0; i-- {
		if geometry.Contains(all[i], x, y, c.viewScale) {
			return shape.ID(all[i])
		}
	}
	return ""
}

// Hover returns the handle zone and cursor for the point, checking the singleton
// selection first so its handles win over shapes beneath them.
func (c *Controller) Hover(x, y float64) geometry.Hit {
	if id, ok := c.sel.Singleton(); ok {
		if s, ok := c.mem.Get(id); ok {
			if hit := geometry.ClassifyZone(s, x, y, c.viewScale); hit.Zone.IsHandle() {
				return hit
			}
		}
	}
	if c.HitTest(x, y) != "" {
		return geometry.Hit{Zone: geometry.ZoneCenter, Cursor: geometry.CursorMove}
	}
	return geometry.Hit{Cursor: geometry.CursorDefault}
}

// PointerDown starts a gesture. Handles of a singleton selection start a
// manipulation session; shapes and the selection bounds start a group drag;
// empty canvas starts a rubber band.
func (c *Controller) PointerDown(x, y float64, shift bool) Gesture {
	if c.closed || c.gesture != GestureNone {
		return c.gesture
	}
	c.undo.StopCapturing()

	if id, ok := c.sel.Singleton(); ok && c.manip.PointerDown(id, x, y, c.viewScale) {
		c.gesture = GestureManipulate
		return c.gesture
	}

	if hit := c.HitTest(x, y); hit != "" {
		if shift || !c.sel.Has(hit) {
			c.sel.Click(hit, shift)
		}
		if c.sel.Has(hit) && c.sel.BeginGroupDrag(x, y) {
			c.gesture = GestureDrag
		}
		return c.gesture
	}

	if c.sel.Len() > 1 {
		if b, ok := c.sel.Bounds(); ok && b.Contains(x, y) && c.sel.BeginGroupDrag(x, y) {
			c.gesture = GestureDrag
			return c.gesture
		}
	}

	if !shift {
		c.sel.Clear()
	}
	c.sel.BeginRubberBand(x, y)
	c.gesture = GestureBand
	return c.gesture
}

// PointerMove advances the gesture in flight and updates the presence cursor.
func (c *Controller) PointerMove(x, y float64) bool {
	if c.closed {
		return false
	}
	c.presence.SetCursor(&presence.Cursor{X: x, Y: y})

	switch c.gesture {
	case GestureManipulate:
		if c.manip.PointerMove(x, y) {
			return true
		}
		if !c.manip.SuppressesDrag() {
			c.gesture = GestureNone
		}
		return false
	case GestureDrag:
		c.sel.MoveGroupDrag(x, y)
		return true
	case GestureBand:
		c.sel.UpdateRubberBand(x, y)
		return true
	default:
		return false
	}
}

// PointerUp finishes the gesture. A rubber band selects what it touched.
func (c *Controller) PointerUp() Gesture {
	g := c.gesture
	switch g {
	case GestureManipulate:
		c.manip.PointerUp()
	case GestureDrag:
		c.sel.EndGroupDrag()
	case GestureBand:
		c.sel.EndRubberBand()
	}
	c.gesture = GestureNone
	c.undo.StopCapturing()
	return g
}

// PointerLeave ends the gesture as if released and hides the cursor.
func (c *Controller) PointerLeave() Gesture {
	g := c.PointerUp()
	if !c.closed {
		c.presence.SetCursor(nil)
	}
	return g
}

func (c *Controller) DeleteSelected() int {
	c.undo.StopCapturing()
	defer c.undo.StopCapturing()
	return c.sel.DeleteSelected()
}

func (c *Controller) DuplicateSelected() []string {
	c.undo.StopCapturing()
	defer c.undo.StopCapturing()
	return c.sel.DuplicateSelected()
}

func (c *Controller) Nudge(dx, dy float64) {
	c.undo.StopCapturing()
	defer c.undo.StopCapturing()
	c.sel.Nudge(dx, dy)
}

func (c *Controller) BringToFront() {
	c.undo.StopCapturing()
	defer c.undo.StopCapturing()
	c.sel.BringToFront()
}

// CreateShape adds a shape from a draft on top of the stack and selects it.
func (c *Controller) CreateShape(d shape.Draft) (shape.Shape, error) {
	s, err := shape.FromDraft(typeid.NewShapeID(), d, c.author, 0)
	if err != nil {
		return nil, err
	}
	c.undo.StopCapturing()
	var created shape.Shape
	c.mem.Batch(func(w store.Writer) {
		created = store.Editor{W: w, Author: c.author}.Create(s)
	})
	c.undo.StopCapturing()
	c.sel.Set(shape.ID(created))
	return created, nil
}

// ApplyRemote merges shapes and deletions received from collaborators. They are
// not recorded in the local undo history.
func (c *Controller) ApplyRemote(set []shape.Shape, deleted []string) {
	c.mem.ApplyRemote(func(w store.Writer) {
		for _, s := range set {
			w.Set(shape.ID(s), s)
		}
		for _, id := range deleted {
			w.Delete(id)
		}
	})
}

// OnLocalChange calls fn for every committed batch that did not come from a
// collaborator, which is what has to be broadcast.
func (c *Controller) OnLocalChange(fn func(store.Event)) func() {
	return c.mem.Subscribe(func(ev store.Event) {
		if ev.Origin != store.OriginRemote {
			fn(ev)
		}
	})
}

// ClaimPresence picks this client's color against the records already
// visible on the board. Call it once the initial presence state arrives.
func (c *Controller) ClaimPresence(states map[string]presence.Record) string {
	return c.presence.Claim(states)
}

// ObservePresence re-checks this client's color against everyone's records.
func (c *Controller) ObservePresence(states map[string]presence.Record) bool {
	return c.presence.Observe(states)
}

// AgentBusy reports whether an agent request is waiting for its response.
func (c *Controller) AgentBusy() bool {
	return c.pending != ""
}

// BeginAgentRequest snapshots the board for an agent run. Only one request can
// be pending at a time.
func (c *Controller) BeginAgentRequest(prompt string) (agent.Request, error) {
	if c.closed {
		return agent.Request{}, ErrClosed
	}
	if c.pending != "" {
		return agent.Request{}, agent.ErrBusy
	}
	c.pending = typeid.NewRequestID()
	return agent.Request{
		RequestID: c.pending,
		Prompt:    prompt,
		Shapes:    shape.SummarizeAll(c.mem.All()),
	}, nil
}

// ApplyAgentResponse replays a finalized response into the store as a single
// undo step and clears the busy state. A failed response applies nothing.
func (c *Controller) ApplyAgentResponse(resp agent.Response) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if c.pending == "" {
		return 0, errNoPendingAgent
	}
	if resp.RequestID != "" && resp.RequestID != c.pending {
		return 0, ErrStaleResponse
	}
	c.pending = ""

	if resp.Error != "" {
		return 0, fmt.Errorf("%w: %s", ErrAgentFailed, resp.Error)
	}

	c.undo.StopCapturing()
	defer c.undo.StopCapturing()

	var (
		applied int
		err     error
	)
	c.mem.Batch(func(w store.Writer) {
		applied, err = agent.Replay(store.Editor{W: w, Author: c.author}, resp.Operations)
	})
	if err != nil {
		slog.Warn("agent replay stopped early", "request", resp.RequestID, "applied", applied, "error", err)
	}
	return applied, err
}

// CancelAgentRequest clears the busy state without applying anything.
func (c *Controller) CancelAgentRequest() {
	c.pending = ""
}

// Close ends any gesture and releases subscriptions. The controller must not be
// used afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.PointerUp()
	c.manip.Cancel()
	c.sel.Close()
	c.undo.Close()
	c.pending = ""
	c.closed = true
}
