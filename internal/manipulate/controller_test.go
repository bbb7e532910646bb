package manipulate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/internal/manipulate"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

func setup() (*store.Memory, *manipulate.Controller) {
	m := store.NewMemory(
		shape.Rect{Base: shape.Base{ID: "r", X: 100, Y: 100, Fill: "#fff"}, Width: 300, Height: 250},
		shape.Line{Base: shape.Base{ID: "l", X: 0, Y: 0}, X2: 100, Y2: 0, StrokeWidth: 2},
	)
	return m, manipulate.New(m)
}

func TestResizeSession(t *testing.T) {
	t.Parallel()

	m, c := setup()

	require.True(t, c.PointerDown("r", 398, 348, 1))
	sess, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, manipulate.Resizing, sess.Mode)
	assert.True(t, c.SuppressesDrag())

	for _, p := range [][2]float64{{420, 360}, {600, 700}, {450, 400}} {
		require.True(t, c.PointerMove(p[0], p[1]))
	}
	require.True(t, c.PointerMove(500, 450))
	require.True(t, c.PointerUp())

	got, _ := m.Get("r")
	r := got.(shape.Rect)
	assert.InDelta(t, 100, r.X, 1e-9)
	assert.InDelta(t, 100, r.Y, 1e-9)
	assert.InDelta(t, 400, r.Width, 1e-9)
	assert.InDelta(t, 350, r.Height, 1e-9)

	_, ok = c.Active()
	assert.False(t, ok)
	assert.False(t, c.SuppressesDrag())
}

func TestPointerDownIgnoredOffHandles(t *testing.T) {
	t.Parallel()

	_, c := setup()
	assert.False(t, c.PointerDown("r", 250, 225, 1), "center is a move, not a session")
	assert.False(t, c.PointerDown("", 398, 348, 1), "no singleton selection")
	assert.False(t, c.PointerDown("missing", 0, 0, 1))
}

func TestPointerDownWhileActiveIsIgnored(t *testing.T) {
	t.Parallel()

	_, c := setup()
	require.True(t, c.PointerDown("r", 398, 348, 1))
	assert.False(t, c.PointerDown("l", 0, 0, 1))

	sess, _ := c.Active()
	assert.Equal(t, "r", sess.ID)
}

func TestMoveIsIdempotent(t *testing.T) {
	t.Parallel()

	m, c := setup()
	require.True(t, c.PointerDown("r", 398, 348, 1))

	c.PointerMove(520, 470)
	first, _ := m.Get("r")
	c.PointerMove(520, 470)
	second, _ := m.Get("r")
	assert.Equal(t, first, second)
}

func TestMergesConcurrentChanges(t *testing.T) {
	t.Parallel()

	m, c := setup()
	require.True(t, c.PointerDown("r", 398, 348, 1))

	m.ApplyRemote(func(w store.Writer) {
		cur, _ := w.Get("r")
		w.Set("r", shape.Apply(cur, shape.Patch{Fill: shape.String("#0f0")}))
	})
	c.PointerMove(500, 450)

	got, _ := m.Get("r")
	assert.Equal(t, "#0f0", got.Meta().Fill)
	assert.InDelta(t, 400, got.(shape.Rect).Width, 1e-9)
}

func TestVanishedShapeEndsSession(t *testing.T) {
	t.Parallel()

	m, c := setup()
	require.True(t, c.PointerDown("r", 398, 348, 1))

	m.ApplyRemote(func(w store.Writer) { w.Delete("r") })
	assert.False(t, c.PointerMove(500, 450))

	_, ok := m.Get("r")
	assert.False(t, ok, "the shape is not resurrected")
	_, active := c.Active()
	assert.False(t, active)
	assert.False(t, c.PointerMove(510, 460))
}

func TestCancelEndsSession(t *testing.T) {
	t.Parallel()

	_, c := setup()
	require.True(t, c.PointerDown("r", 398, 348, 1))
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())
	assert.False(t, c.PointerMove(1, 1))
}

func TestEndpointSession(t *testing.T) {
	t.Parallel()

	m, c := setup()
	require.True(t, c.PointerDown("l", 99, 1, 1))
	sess, _ := c.Active()
	assert.Equal(t, manipulate.DraggingEndpoint, sess.Mode)

	c.PointerMove(150, 80)
	c.PointerUp()

	got, _ := m.Get("l")
	l := got.(shape.Line)
	assert.InDelta(t, 0, l.X, 1e-9)
	assert.InDelta(t, 150, l.X2, 1e-9)
	assert.InDelta(t, 80, l.Y2, 1e-9)
}

func TestRotationKeepsTurning(t *testing.T) {
	t.Parallel()

	m := store.NewMemory(shape.Rect{Base: shape.Base{ID: "r"}, Width: 100, Height: 100})
	c := manipulate.New(m)

	// Center (50, 50); the se rotation band sits at 45 degrees.
	radius := math.Hypot(60, 60)
	at := func(deg float64) (float64, float64) {
		rad := deg * math.Pi / 180
		return 50 + radius*math.Cos(rad), 50 + radius*math.Sin(rad)
	}

	x, y := at(45)
	require.True(t, c.PointerDown("r", x, y, 1))
	sess, _ := c.Active()
	require.Equal(t, manipulate.Rotating, sess.Mode)

	// One and a half turns in 30 degree steps.
	for k := 1; k <= 18; k++ {
		x, y = at(45 + float64(k)*30)
		require.True(t, c.PointerMove(x, y))
	}

	got, _ := m.Get("r")
	assert.InDelta(t, 540, got.Meta().Rotation, 1e-6)
}
