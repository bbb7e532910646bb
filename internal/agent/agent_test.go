package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

type scriptedModel struct {
	rounds int
	step   func(round int, msgs []agent.Message) (agent.Reply, error)
}

func (m *scriptedModel) Complete(_ context.Context, msgs []agent.Message, _ []agent.ToolSpec) (agent.Reply, error) {
	round := m.rounds
	m.rounds++
	return m.step(round, msgs)
}

func call(id, name, args string) agent.Reply {
	return agent.Reply{ToolCalls: []agent.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("shape_%d", n)
	}
}

const rectArgs = `{"type":"rect","x":10,"y":20,"width":30,"height":40}`

func TestLoopStopsAtMaxRounds(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{step: func(round int, _ []agent.Message) (agent.Reply, error) {
		return call(fmt.Sprint("call-", round), agent.ToolCreate, rectArgs), nil
	}}
	loop := &agent.Loop{Model: model, MaxRounds: 3, NewID: counterIDs()}

	resp := loop.Run(context.Background(), agent.Request{RequestID: "r1", Prompt: "draw forever"})

	assert.Equal(t, 3, model.rounds)
	assert.Len(t, resp.Operations, 3)
	assert.True(t, resp.Truncated)
	assert.Equal(t, agent.MaxRoundsNotice, resp.Message)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "r1", resp.RequestID)
}

func TestLoopModelErrorDiscardsOperations(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{step: func(round int, _ []agent.Message) (agent.Reply, error) {
		if round == 0 {
			return call("c0", agent.ToolCreate, rectArgs), nil
		}
		return agent.Reply{}, errors.New("upstream timeout")
	}}
	loop := &agent.Loop{Model: model}

	resp := loop.Run(context.Background(), agent.Request{Prompt: "draw"})

	assert.NotNil(t, resp.Operations)
	assert.Empty(t, resp.Operations)
	assert.Contains(t, resp.Error, "upstream timeout")
	assert.False(t, resp.Truncated)
}

func TestLoopUnknownIDIsReturnedToModel(t *testing.T) {
	t.Parallel()

	var createdID string
	model := &scriptedModel{step: func(round int, msgs []agent.Message) (agent.Reply, error) {
		last := msgs[len(msgs)-1]
		switch round {
		case 0:
			return call("c0", agent.ToolUpdate, `{"id":"missing","x":5}`), nil
		case 1:
			if last.Role != agent.RoleTool || last.ToolCallID != "c0" || !strings.HasPrefix(last.Content, "Error:") {
				return agent.Reply{}, fmt.Errorf("expected tool error, got %+v", last)
			}
			return call("c1", agent.ToolCreate, rectArgs), nil
		case 2:
			var sum shape.Summary
			if err := json.Unmarshal([]byte(last.Content), &sum); err != nil {
				return agent.Reply{}, err
			}
			createdID = sum.ID
			return call("c2", agent.ToolUpdate, fmt.Sprintf(`{"id":%q,"fill":"#ff0000"}`, sum.ID)), nil
		default:
			return agent.Reply{Content: "  Added a red rectangle. "}, nil
		}
	}}
	loop := &agent.Loop{Model: model, NewID: counterIDs()}

	resp := loop.Run(context.Background(), agent.Request{Prompt: "add a red box"})

	require.Empty(t, resp.Error)
	assert.True(t, agent.IsTempID(createdID))
	assert.Equal(t, "Added a red rectangle.", resp.Message)
	assert.False(t, resp.Truncated)
	require.Len(t, resp.Operations, 2)
	assert.Equal(t, agent.OpCreate, resp.Operations[0].Op)
	assert.Equal(t, agent.OpUpdate, resp.Operations[1].Op)
	assert.Equal(t, "shape_1", resp.Operations[0].ID)
	assert.Equal(t, "shape_1", resp.Operations[1].ID)
}

func TestLoopSeesSnapshotShapes(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{step: func(round int, msgs []agent.Message) (agent.Reply, error) {
		if round == 0 {
			return call("c0", agent.ToolDelete, `{"id":"shape_a"}`), nil
		}
		if strings.HasPrefix(msgs[len(msgs)-1].Content, "Error:") {
			return agent.Reply{}, errors.New("delete of a snapshot shape failed")
		}
		return agent.Reply{Content: "Removed it."}, nil
	}}
	loop := &agent.Loop{Model: model}

	resp := loop.Run(context.Background(), agent.Request{
		Prompt: "remove the box",
		Shapes: []shape.Summary{{ID: "shape_a", Type: shape.KindRect, Width: 10, Height: 10}},
	})

	require.Empty(t, resp.Error)
	require.Len(t, resp.Operations, 1)
	assert.Equal(t, agent.Operation{Op: agent.OpDelete, ID: "shape_a"}, resp.Operations[0])
}

func TestShadow(t *testing.T) {
	t.Parallel()

	sh := agent.NewShadow([]shape.Summary{
		{ID: "shape_a", Type: shape.KindRect, X: 1, Y: 2, Width: 10, Height: 20},
		{ID: "", Type: shape.KindRect},
		{ID: "shape_bad", Type: "hexagon"},
	})
	require.Len(t, sh.List(), 1)

	sum, err := sh.Create(shape.Draft{Type: shape.KindSticky, X: 5, Y: 5, Text: "todo"})
	require.NoError(t, err)
	assert.Equal(t, "tmp_1", sum.ID)
	assert.Equal(t, "todo", sum.Text)

	_, err = sh.Create(shape.Draft{Type: "hexagon"})
	require.ErrorIs(t, err, shape.ErrUnknownKind)

	sum, err = sh.Create(shape.Draft{Type: shape.KindRect})
	require.NoError(t, err)
	assert.Equal(t, "tmp_2", sum.ID, "failed creates do not consume ids")

	_, err = sh.Update("nope", agent.Changes{X: shape.Float(1)})
	require.ErrorIs(t, err, agent.ErrUnknownShape)
	require.ErrorIs(t, sh.Delete("nope"), agent.ErrUnknownShape)

	updated, err := sh.Update("shape_a", agent.Changes{X: shape.Float(50)})
	require.NoError(t, err)
	assert.InDelta(t, 50, updated.X, 1e-9)

	require.NoError(t, sh.Delete("tmp_1"))
	ids := []string{}
	for _, s := range sh.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"shape_a", "tmp_2"}, ids)

	ops := sh.Operations()
	require.Len(t, ops, 4)
	assert.Equal(t, []agent.OpKind{agent.OpCreate, agent.OpCreate, agent.OpUpdate, agent.OpDelete},
		[]agent.OpKind{ops[0].Op, ops[1].Op, ops[2].Op, ops[3].Op})

	ops[0].ID = "mutated"
	assert.Equal(t, "tmp_1", sh.Operations()[0].ID)
}

func TestChangesPatchFor(t *testing.T) {
	t.Parallel()

	ellipse, err := shape.FromDraft("e", shape.Draft{Type: shape.KindEllipse, Width: 100, Height: 50}, "", 1)
	require.NoError(t, err)
	moved := shape.Apply(ellipse, agent.Changes{X: shape.Float(10), Text: shape.String("hi")}.PatchFor(ellipse)).(shape.Ellipse)
	assert.InDelta(t, 60, moved.X, 1e-9)
	assert.InDelta(t, 25, moved.Y, 1e-9)
	assert.InDelta(t, 50, moved.RadiusX, 1e-9)
	require.NotNil(t, moved.Label)
	assert.Equal(t, "hi", moved.Label.Text)

	line, err := shape.FromDraft("l", shape.Draft{Type: shape.KindLine, X2: shape.Float(10), Y2: shape.Float(10)}, "", 1)
	require.NoError(t, err)
	shifted := shape.Apply(line, agent.Changes{X: shape.Float(5), Y: shape.Float(5)}.PatchFor(line)).(shape.Line)
	assert.InDelta(t, 15, shifted.X2, 1e-9)
	assert.InDelta(t, 15, shifted.Y2, 1e-9)

	end := shape.Apply(line, agent.Changes{X2: shape.Float(30)}.PatchFor(line)).(shape.Line)
	assert.InDelta(t, 0, end.X, 1e-9)
	assert.InDelta(t, 30, end.X2, 1e-9)
	assert.InDelta(t, 10, end.Y2, 1e-9)

	sticky, err := shape.FromDraft("s", shape.Draft{Type: shape.KindSticky, Text: "a"}, "", 1)
	require.NoError(t, err)
	edited := shape.Apply(sticky, agent.Changes{Text: shape.String("b")}.PatchFor(sticky)).(shape.Sticky)
	assert.Equal(t, "b", edited.Text)

	assert.True(t, agent.Changes{}.IsEmpty())
}

func TestToolsetCall(t *testing.T) {
	t.Parallel()

	ts := agent.NewToolset(agent.NewShadow(nil))
	ctx := context.Background()

	out, err := ts.Call(ctx, agent.ToolCreate, `{"type":"text","x":1,"y":2,"text":"hello"}`)
	require.NoError(t, err)
	var sum shape.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, shape.KindText, sum.Type)
	assert.Equal(t, "hello", sum.Text)

	_, err = ts.Call(ctx, agent.ToolUpdate, fmt.Sprintf(`{"id":%q}`, sum.ID))
	require.Error(t, err, "an update without fields is rejected")

	_, err = ts.Call(ctx, agent.ToolCreate, `{"type":"star","x":0,"y":0}`)
	require.Error(t, err)

	_, err = ts.Call(ctx, "paint", `{}`)
	require.Error(t, err)

	_, err = ts.Call(ctx, agent.ToolList, `not json`)
	require.Error(t, err)

	out, err = ts.Call(ctx, agent.ToolList, "")
	require.NoError(t, err)
	var list []shape.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 1)

	out, err = ts.Call(ctx, agent.ToolDelete, fmt.Sprintf(`{"id":%q}`, sum.ID))
	require.NoError(t, err)
	assert.Contains(t, out, sum.ID)
}

func TestToolsetSpecs(t *testing.T) {
	t.Parallel()

	specs := agent.NewToolset(agent.NewShadow(nil)).Specs()
	require.Len(t, specs, 4)

	names := map[string]agent.ToolSpec{}
	for _, s := range specs {
		names[s.Name] = s
	}
	create, ok := names[agent.ToolCreate]
	require.True(t, ok)
	assert.NotEmpty(t, create.Description)

	var schema struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	require.NoError(t, json.Unmarshal(create.Parameters, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "x2")
	assert.ElementsMatch(t, []string{"type", "x", "y"}, schema.Required)
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	ops := []agent.Operation{
		{Op: agent.OpCreate, ID: "tmp_1", Shape: &shape.Draft{Type: shape.KindRect}},
		{Op: agent.OpUpdate, ID: "shape_existing", Changes: &agent.Changes{X: shape.Float(1)}},
		{Op: agent.OpCreate, ID: "tmp_2", Shape: &shape.Draft{Type: shape.KindRect}},
		{Op: agent.OpUpdate, ID: "tmp_1", Changes: &agent.Changes{X: shape.Float(2)}},
		{Op: agent.OpDelete, ID: "tmp_2"},
	}

	final := agent.Finalize(ops, counterIDs())
	ids := []string{}
	for _, op := range final {
		ids = append(ids, op.ID)
	}
	assert.Equal(t, []string{"shape_1", "shape_existing", "shape_2", "shape_1", "shape_2"}, ids)
	assert.Equal(t, "tmp_1", ops[0].ID, "input is not modified")

	assert.Equal(t, final, agent.Finalize(final, counterIDs()))
}

func TestReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	existing, err := shape.FromDraft("shape_existing", shape.Draft{Type: shape.KindRect, X: 0}, "someone", 1)
	require.NoError(t, err)
	mem := store.NewMemory(existing)

	ops := agent.Finalize([]agent.Operation{
		{Op: agent.OpCreate, ID: "tmp_1", Shape: &shape.Draft{Type: shape.KindSticky, X: 10, Text: "note"}},
		{Op: agent.OpUpdate, ID: "tmp_1", Changes: &agent.Changes{Y: shape.Float(40)}},
		{Op: agent.OpUpdate, ID: "shape_existing", Changes: &agent.Changes{X: shape.Float(7)}},
		{Op: agent.OpUpdate, ID: "shape_gone", Changes: &agent.Changes{X: shape.Float(7)}},
		{Op: agent.OpDelete, ID: "shape_gone"},
	}, counterIDs())

	replay := func() int {
		var n int
		mem.Batch(func(w store.Writer) {
			var err error
			n, err = agent.Replay(store.Editor{W: w, Author: "agent"}, ops)
			require.NoError(t, err)
		})
		return n
	}

	assert.Equal(t, 3, replay())
	first := mem.All()

	assert.Equal(t, 3, replay())
	assert.Equal(t, first, mem.All())
	require.Len(t, first, 2)

	note, ok := mem.Get("shape_1")
	require.True(t, ok)
	assert.InDelta(t, 40, note.Meta().Y, 1e-9)
	assert.Equal(t, "agent", note.Meta().CreatedBy)
	assert.Equal(t, int64(2), note.Meta().ZIndex)

	moved, _ := mem.Get("shape_existing")
	assert.InDelta(t, 7, moved.Meta().X, 1e-9)
}

func TestReplayIsOneUndoStep(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	undo := store.NewUndoManager(mem)
	defer undo.Close()

	ops := agent.Finalize([]agent.Operation{
		{Op: agent.OpCreate, ID: "tmp_1", Shape: &shape.Draft{Type: shape.KindRect}},
		{Op: agent.OpCreate, ID: "tmp_2", Shape: &shape.Draft{Type: shape.KindEllipse}},
	}, counterIDs())
	mem.Batch(func(w store.Writer) {
		_, err := agent.Replay(store.Editor{W: w}, ops)
		require.NoError(t, err)
	})
	require.Equal(t, 2, mem.Len())

	require.True(t, undo.Undo())
	assert.Equal(t, 0, mem.Len())
	assert.False(t, undo.CanUndo())
}

func TestReplayRejectsBadDraft(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	_, err := agent.Replay(store.Editor{W: mem}, []agent.Operation{
		{Op: agent.OpCreate, ID: "shape_1", Shape: &shape.Draft{Type: "cloud"}},
	})
	require.ErrorIs(t, err, shape.ErrUnknownKind)
}

func TestGuard(t *testing.T) {
	t.Parallel()

	g := agent.NewGuard(0)
	require.NoError(t, g.Acquire("board", "alice"))
	assert.True(t, g.Busy("board", "alice"))
	require.ErrorIs(t, g.Acquire("board", "alice"), agent.ErrBusy)
	require.NoError(t, g.Acquire("board", "bob"), "other clients are independent")
	require.NoError(t, g.Acquire("other", "alice"), "other boards are independent")

	g.Release("board", "alice")
	assert.False(t, g.Busy("board", "alice"))
	require.NoError(t, g.Acquire("board", "alice"))
}

func TestGuardRateLimit(t *testing.T) {
	t.Parallel()

	g := agent.NewGuard(1)
	require.NoError(t, g.Acquire("board", "alice"))
	g.Release("board", "alice")
	require.ErrorIs(t, g.Acquire("board", "alice"), agent.ErrRateLimited)
	assert.False(t, g.Busy("board", "alice"))

	g.Forget("alice")
	require.NoError(t, g.Acquire("board", "alice"))
}
