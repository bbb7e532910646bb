// Package store defines the shared shape map the board edits, an in-memory
// implementation with origin tagging, and the local-only undo history.
package store

import (
	"errors"

	"github.com/inkboard/inkboard/internal/shape"
)

var ErrNotFound = errors.New("shape not found")

// Origin says who produced a write. Undo history only records OriginLocal.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
	OriginUndo
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginUndo:
		return "undo"
	default:
		return "unknown"
	}
}

// Change is one key transition. Before is nil for a create and After is nil for a delete.
type Change struct {
	ID     string
	Before shape.Shape
	After  shape.Shape
}

// Event is delivered to subscribers once per committed batch.
type Event struct {
	Origin  Origin
	Changes []Change
}

type Reader interface {
	Get(id string) (shape.Shape, bool)
	All() []shape.Shape
}

// Writer overwrites whole records. Callers read, merge and write back.
type Writer interface {
	Reader
	Set(id string, s shape.Shape)
	Delete(id string)
}

// Store is the shared map contract the board relies on.
type Store interface {
	Writer
	// Batch commits every write made through w as a single event and undo step.
	Batch(fn func(w Writer))
	Subscribe(fn func(Event)) (unsubscribe func())
}
