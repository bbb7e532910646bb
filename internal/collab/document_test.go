package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/shape"
)

func TestDocumentStateDirtyTracking(t *testing.T) {
	initial := shape.Rect{Base: shape.Base{ID: "shape_1", ZIndex: 1}, Width: 10, Height: 10}
	ds := NewDocumentState([]shape.Shape{initial})
	defer ds.Close()

	assert.False(t, ds.Dirty(), "initial shapes are not a change")
	assert.Equal(t, 1, ds.Len())

	moved := initial
	moved.X = 50
	_, err := ds.ApplySet(shape.Records([]shape.Shape{moved}))
	require.NoError(t, err)
	assert.True(t, ds.Dirty())

	shapes, version := ds.Snapshot()
	require.Len(t, shapes, 1)
	assert.Equal(t, 50.0, shapes[0].Meta().X)

	// A write between snapshot and save keeps the document dirty.
	ds.ApplyDelete([]string{"shape_1"})
	ds.MarkSaved(version)
	assert.True(t, ds.Dirty())

	_, version = ds.Snapshot()
	ds.MarkSaved(version)
	assert.False(t, ds.Dirty())
	assert.Zero(t, ds.Len())
}

func TestDocumentStateRejectsMissingID(t *testing.T) {
	ds := NewDocumentState(nil)
	defer ds.Close()

	_, err := ds.ApplySet([]shape.Record{{Shape: shape.Rect{}}})
	assert.ErrorIs(t, err, errMissingID)
	assert.False(t, ds.Dirty())
}

func TestDocumentStateDeleteUnknownIsHarmless(t *testing.T) {
	ds := NewDocumentState(nil)
	defer ds.Close()

	ds.ApplyDelete([]string{"shape_nope"})
	assert.Zero(t, ds.Len())
}

func TestPresenceManager(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("conn-a", presence.Record{User: presence.User{ID: "alice", Color: "#ef4444"}})
	pm.Update("conn-b", presence.Record{User: presence.User{ID: "bob", Color: "#3b82f6"}})
	pm.Update("conn-a", presence.Record{User: presence.User{ID: "alice", Color: "#22c55e"}})

	all := pm.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "#22c55e", all["conn-a"].User.Color)

	pm.Remove("conn-b")
	msg := pm.StateMessage()
	require.NotNil(t, msg)
	assert.Equal(t, TypePresenceState, msg.Type)
	assert.JSONEq(t, `{"presences":{"conn-a":{"user":{"id":"alice","name":"","color":"#22c55e"},"cursor":null}}}`, string(msg.Payload))
}
