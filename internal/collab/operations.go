package collab

import (
	"errors"
	"sync"

	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

var errMissingID = errors.New("shape record without id")

// DocumentState holds the room's copy of the board. Every write arrives from a
// client, so it is applied with the remote origin and never enters an undo
// history.
type DocumentState struct {
	mem *store.Memory

	mu      sync.Mutex
	dirty   bool
	version int64

	unsubscribe func()
}

// NewDocumentState creates a room document from an initial set of shapes.
func NewDocumentState(shapes []shape.Shape) *DocumentState {
	ds := &DocumentState{mem: store.NewMemory(shapes...)}
	ds.unsubscribe = ds.mem.Subscribe(func(store.Event) {
		ds.mu.Lock()
		ds.dirty = true
		ds.version++
		ds.mu.Unlock()
	})
	return ds
}

// Shapes returns every shape in stacking order.
func (ds *DocumentState) Shapes() []shape.Shape {
	return ds.mem.All()
}

func (ds *DocumentState) Len() int {
	return ds.mem.Len()
}

// ApplySet overwrites whole records, last writer wins.
func (ds *DocumentState) ApplySet(records []shape.Record) ([]shape.Shape, error) {
	shapes := shape.Unwrap(records)
	for _, s := range shapes {
		if shape.ID(s) == "" {
			return nil, errMissingID
		}
	}
	ds.mem.ApplyRemote(func(w store.Writer) {
		for _, s := range shapes {
			w.Set(shape.ID(s), s)
		}
	})
	return shapes, nil
}

// ApplyDelete removes ids. Unknown ids are ignored so duplicate deliveries are
// harmless.
func (ds *DocumentState) ApplyDelete(ids []string) {
	ds.mem.ApplyRemote(func(w store.Writer) {
		for _, id := range ids {
			w.Delete(id)
		}
	})
}

// Snapshot returns the shapes to persist and the version they correspond to.
func (ds *DocumentState) Snapshot() ([]shape.Shape, int64) {
	ds.mu.Lock()
	v := ds.version
	ds.mu.Unlock()
	return ds.mem.All(), v
}

func (ds *DocumentState) Dirty() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.dirty
}

// MarkSaved clears the dirty flag unless the document changed after version.
func (ds *DocumentState) MarkSaved(version int64) {
	ds.mu.Lock()
	if ds.version == version {
		ds.dirty = false
	}
	ds.mu.Unlock()
}

func (ds *DocumentState) Close() {
	ds.unsubscribe()
}
