package store

import (
	"fmt"

	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/typeid"
)

// Editor is the single write path for shape edits. Direct user edits and agent
// replay both go through it, so both land in the same history.
type Editor struct {
	W      Writer
	Author string
	// NewID generates ids for shapes created without one. Defaults to typeid shape ids.
	NewID func() string
}

func (e Editor) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return typeid.NewShapeID()
}

// NextZ returns a stacking index above every shape in r.
func NextZ(r Reader) int64 {
	var top int64
	for _, s := range r.All() {
		top = max(top, s.Meta().ZIndex)
	}
	return top + 1
}

// Create stores s on top of the stack. An empty id is replaced with a fresh one and
// an empty author with the editor's. Creating an id that already exists overwrites
// it in place and keeps its stacking index.
func (e Editor) Create(s shape.Shape) shape.Shape {
	b := s.Meta()
	if b.ID == "" {
		s = shape.WithID(s, e.newID())
	}
	z := NextZ(e.W)
	if cur, ok := e.W.Get(shape.ID(s)); ok {
		z = cur.Meta().ZIndex
	}
	s = shape.Apply(s, shape.Patch{ZIndex: shape.Int(z)})
	if b.CreatedBy == "" && e.Author != "" {
		s = shape.WithAuthor(s, e.Author)
	}
	e.W.Set(shape.ID(s), s)
	return s
}

// Update merges p into the current record.
func (e Editor) Update(id string, p shape.Patch) (shape.Shape, error) {
	cur, ok := e.W.Get(id)
	if !ok {
		return nil, fmt.Errorf("store.Update %s: %w", id, ErrNotFound)
	}
	next := shape.Apply(cur, p)
	e.W.Set(id, next)
	return next, nil
}

func (e Editor) Delete(id string) error {
	if _, ok := e.W.Get(id); !ok {
		return fmt.Errorf("store.Delete %s: %w", id, ErrNotFound)
	}
	e.W.Delete(id)
	return nil
}
