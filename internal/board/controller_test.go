package board_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/board"
	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

func rect(id string, x, y, w, h float64, z int64) shape.Rect {
	return shape.Rect{Base: shape.Base{ID: id, X: x, Y: y, ZIndex: z, Fill: "#fff"}, Width: w, Height: h}
}

func newBoard(t *testing.T, shapes ...shape.Shape) (*board.Controller, *[]presence.Record) {
	t.Helper()
	var published []presence.Record
	c := board.New(board.Options{
		Author:     "user_a",
		Slot:       "conn-a",
		User:       presence.User{ID: "user_a", Name: "Ada"},
		OnPresence: func(r presence.Record) { published = append(published, r) },
		Shapes:     shapes,
	})
	t.Cleanup(c.Close)
	return c, &published
}

func get(t *testing.T, c *board.Controller, id string) shape.Shape {
	t.Helper()
	s, ok := c.Store().Get(id)
	require.True(t, ok, "shape %s missing", id)
	return s
}

func TestHitTestTopmost(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("below", 0, 0, 100, 100, 1), rect("above", 50, 50, 100, 100, 2))

	assert.Equal(t, "above", c.HitTest(75, 75))
	assert.Equal(t, "below", c.HitTest(10, 10))
	assert.Empty(t, c.HitTest(500, 500))
}

func TestClickDragMovesShape(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 100, 100, 1))

	assert.Equal(t, board.GestureDrag, c.PointerDown(50, 50, false))
	assert.Equal(t, []string{"r"}, c.Selection().IDs())
	assert.True(t, c.PointerMove(60, 55))
	assert.True(t, c.PointerMove(70, 60))
	assert.Equal(t, board.GestureDrag, c.PointerUp())

	moved := get(t, c, "r").Meta()
	assert.InDelta(t, 20, moved.X, 1e-9)
	assert.InDelta(t, 10, moved.Y, 1e-9)

	require.True(t, c.Undo().Undo())
	assert.InDelta(t, 0, get(t, c, "r").Meta().X, 1e-9)
}

func TestResizeThroughHandles(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 100, 100, 300, 250, 1))
	c.Selection().Set("r")

	assert.Equal(t, board.GestureManipulate, c.PointerDown(398, 348, false))
	sess, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, "r", sess.ID)

	assert.True(t, c.PointerMove(500, 450))
	c.PointerUp()

	r := get(t, c, "r").(shape.Rect)
	assert.InDelta(t, 100, r.X, 1e-9)
	assert.InDelta(t, 400, r.Width, 1e-9)
	assert.InDelta(t, 350, r.Height, 1e-9)
	_, ok = c.Session()
	assert.False(t, ok)
}

func TestVanishedShapeEndsManipulation(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 100, 100, 300, 250, 1))
	c.Selection().Set("r")
	require.Equal(t, board.GestureManipulate, c.PointerDown(398, 348, false))

	c.ApplyRemote(nil, []string{"r"})

	assert.False(t, c.PointerMove(500, 450))
	assert.Equal(t, board.GestureNone, c.Gesture())
	_, ok := c.Store().Get("r")
	assert.False(t, ok, "the shape is not recreated")
}

func TestRubberBandSelects(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("a", 0, 0, 50, 50, 1), rect("b", 100, 0, 50, 50, 2), rect("c", 400, 400, 50, 50, 3))

	assert.Equal(t, board.GestureBand, c.PointerDown(-20, -20, false))
	assert.True(t, c.PointerMove(120, 30))
	assert.Equal(t, board.GestureBand, c.PointerUp())

	assert.Equal(t, []string{"a", "b"}, c.Selection().IDs())
	_, banding := c.Selection().RubberBand()
	assert.False(t, banding)
}

func TestDragSelectionBoundsGap(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("a", 0, 0, 50, 50, 1), rect("b", 100, 0, 50, 50, 2))
	c.Selection().Set("a", "b")

	assert.Equal(t, board.GestureDrag, c.PointerDown(75, 25, false), "gap inside the selection bounds")
	c.PointerMove(85, 25)
	c.PointerUp()

	assert.InDelta(t, 10, get(t, c, "a").Meta().X, 1e-9)
	assert.InDelta(t, 110, get(t, c, "b").Meta().X, 1e-9)
}

func TestShiftClickTogglesWithoutDragging(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("a", 0, 0, 50, 50, 1), rect("b", 100, 0, 50, 50, 2))

	c.PointerDown(10, 10, false)
	c.PointerUp()
	c.PointerDown(110, 10, true)
	c.PointerUp()
	assert.Equal(t, []string{"a", "b"}, c.Selection().IDs())

	assert.Equal(t, board.GestureNone, c.PointerDown(110, 10, true), "deselecting does not drag")
	assert.Equal(t, []string{"a"}, c.Selection().IDs())
}

func TestPointerLeaveEndsGesture(t *testing.T) {
	t.Parallel()

	c, published := newBoard(t, rect("r", 0, 0, 100, 100, 1))
	c.Presence().Claim(nil)

	c.PointerDown(50, 50, false)
	c.PointerMove(60, 60)
	require.NotNil(t, c.Presence().Record().Cursor)

	assert.Equal(t, board.GestureDrag, c.PointerLeave())
	assert.Equal(t, board.GestureNone, c.Gesture())
	assert.Nil(t, c.Presence().Record().Cursor)
	assert.False(t, c.PointerMove(70, 70), "moves after leaving do nothing")
	assert.InDelta(t, 10, get(t, c, "r").Meta().X, 1e-9)
	assert.NotEmpty(t, *published)
}

func TestCreateShapeSelectsIt(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 10, 10, 4))

	s, err := c.CreateShape(shape.Draft{Type: shape.KindSticky, X: 10, Y: 10, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Meta().ZIndex)
	assert.Equal(t, "user_a", s.Meta().CreatedBy)
	id, ok := c.Selection().Singleton()
	require.True(t, ok)
	assert.Equal(t, shape.ID(s), id)

	_, err = c.CreateShape(shape.Draft{Type: "blob"})
	require.ErrorIs(t, err, shape.ErrUnknownKind)
}

func TestOnLocalChangeSkipsRemote(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 100, 100, 1))
	var events []store.Event
	unsubscribe := c.OnLocalChange(func(ev store.Event) { events = append(events, ev) })
	defer unsubscribe()

	c.ApplyRemote([]shape.Shape{rect("remote", 0, 0, 5, 5, 2)}, nil)
	assert.Empty(t, events)
	assert.False(t, c.Undo().CanUndo(), "remote edits are not undoable")

	c.Selection().Set("r")
	c.Nudge(1, 0)
	require.Len(t, events, 1)
	assert.Equal(t, store.OriginLocal, events[0].Origin)
}

func TestAgentRequestLifecycle(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 100, 100, 1))

	req, err := c.BeginAgentRequest("make it red and add a note")
	require.NoError(t, err)
	assert.True(t, c.AgentBusy())
	assert.NotEmpty(t, req.RequestID)
	require.Len(t, req.Shapes, 1)
	assert.Equal(t, "r", req.Shapes[0].ID)

	_, err = c.BeginAgentRequest("again")
	require.ErrorIs(t, err, agent.ErrBusy)

	_, err = c.ApplyAgentResponse(agent.Response{RequestID: "areq_other"})
	require.ErrorIs(t, err, board.ErrStaleResponse)
	assert.True(t, c.AgentBusy())

	n, err := c.ApplyAgentResponse(agent.Response{
		RequestID: req.RequestID,
		Operations: []agent.Operation{
			{Op: agent.OpUpdate, ID: "r", Changes: &agent.Changes{Fill: shape.String("#ff0000")}},
			{Op: agent.OpCreate, ID: "shape_note", Shape: &shape.Draft{Type: shape.KindSticky, X: 200, Text: "note"}},
		},
		Message: "done",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, c.AgentBusy())
	assert.Equal(t, "#ff0000", get(t, c, "r").Meta().Fill)
	assert.Equal(t, "user_a", get(t, c, "shape_note").Meta().CreatedBy)

	require.True(t, c.Undo().Undo())
	assert.Equal(t, "#fff", get(t, c, "r").Meta().Fill)
	_, ok := c.Store().Get("shape_note")
	assert.False(t, ok)
	assert.False(t, c.Undo().CanUndo(), "the whole response is one step")
}

func TestAgentFailureAppliesNothing(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t)

	_, err := c.ApplyAgentResponse(agent.Response{})
	require.Error(t, err, "no request pending")

	req, err := c.BeginAgentRequest("draw")
	require.NoError(t, err)
	n, err := c.ApplyAgentResponse(agent.Response{RequestID: req.RequestID, Operations: []agent.Operation{}, Error: "model unavailable"})
	require.ErrorIs(t, err, board.ErrAgentFailed)
	assert.Zero(t, n)
	assert.False(t, c.AgentBusy())
	assert.Zero(t, c.Store().Len())
}

func TestClose(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 100, 100, 1))
	c.PointerDown(50, 50, false)
	c.Close()
	c.Close()

	assert.Equal(t, board.GestureNone, c.Gesture())
	assert.Equal(t, board.GestureNone, c.PointerDown(50, 50, false))
	_, err := c.BeginAgentRequest("x")
	require.ErrorIs(t, err, board.ErrClosed)
}

func TestRender(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t,
		rect("r", 0, 0, 100, 100, 1),
		shape.Line{Base: shape.Base{ID: "l", X: 0, Y: 200, Fill: "#000"}, X2: 100, Y2: 200, StrokeWidth: 2, ArrowEnd: true},
	)

	cmds := c.Render()
	require.Len(t, cmds, 2)
	assert.Equal(t, "rect", cmds[0].Op)
	assert.Equal(t, "line", cmds[1].Op)
	assert.Equal(t, []float64{0, 200, 100, 200}, cmds[1].Points)
	assert.Equal(t, "#000", cmds[1].Stroke)

	c.Selection().Set("r")
	cmds = c.Render()
	require.Len(t, cmds, 2+1+4, "selection box plus four corner handles")

	c.Selection().Set("r", "l")
	cmds = c.Render()
	require.Len(t, cmds, 3)
	assert.Equal(t, "selection", cmds[2].Op)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.RenderJSON()), &decoded))
	assert.Len(t, decoded, 3)
}

func TestNudgesUndoSeparately(t *testing.T) {
	t.Parallel()

	c, _ := newBoard(t, rect("r", 0, 0, 100, 100, 1))
	c.Selection().Set("r")

	c.Nudge(10, 0)
	c.Nudge(10, 0)
	require.Equal(t, 20.0, get(t, c, "r").Meta().X)

	require.True(t, c.Undo().Undo())
	assert.Equal(t, 10.0, get(t, c, "r").Meta().X, "undo reverts only the last nudge")
	require.True(t, c.Undo().Undo())
	assert.Equal(t, 0.0, get(t, c, "r").Meta().X)
}

func TestLateJoinerKeepsSettledColors(t *testing.T) {
	t.Parallel()

	ada := presence.NewAllocator("m", presence.User{ID: "user_m", Name: "Ada"}, nil, nil)
	bea := presence.NewAllocator("z", presence.User{ID: "user_z", Name: "Bea"}, nil, nil)
	require.Equal(t, "#ef4444", ada.Claim(nil))
	require.Equal(t, "#3b82f6", bea.Claim(map[string]presence.Record{"m": ada.Record()}))

	c := board.New(board.Options{
		Author: "user_a",
		Slot:   "a",
		User:   presence.User{ID: "user_a", Name: "Cy"},
	})
	t.Cleanup(c.Close)

	states := map[string]presence.Record{"m": ada.Record(), "z": bea.Record()}
	color := c.ClaimPresence(states)
	assert.Equal(t, "#22c55e", color)

	states["a"] = c.Presence().Record()
	assert.False(t, ada.Observe(states))
	assert.False(t, bea.Observe(states))
	assert.False(t, c.ObservePresence(states))
	assert.Equal(t, "#ef4444", ada.Record().User.Color)
	assert.Equal(t, "#3b82f6", bea.Record().User.Color)
	assert.Equal(t, "#22c55e", c.Presence().Record().User.Color)
}
