package agent

import (
	"errors"
	"fmt"

	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
	"github.com/inkboard/inkboard/internal/typeid"
)

// Finalize replaces shadow temporary ids with permanent ones, rewriting every
// later reference. Only temporary ids are remapped, so finalizing a finalized
// log is a no-op and replaying it twice targets the same shapes.
func Finalize(ops []Operation, newID func() string) []Operation {
	if newID == nil {
		newID = typeid.NewShapeID
	}
	ids := make(map[string]string)
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if IsTempID(op.ID) {
			id, ok := ids[op.ID]
			if !ok {
				id = newID()
				ids[op.ID] = id
			}
			op.ID = id
		}
		out = append(out, op)
	}
	return out
}

// Replay applies a finalized log through the same write path as user edits and
// returns how many operations changed the store. Callers wrap it in a batch so
// the whole response is one undo step. Creating an existing id overwrites it in
// place. Updates and deletes of missing shapes are skipped.
func Replay(ed store.Editor, ops []Operation) (int, error) {
	applied := 0
	for _, op := range ops {
		switch op.Op {
		case OpCreate:
			if op.Shape == nil || op.ID == "" {
				continue
			}
			s, err := shape.FromDraft(op.ID, *op.Shape, ed.Author, 0)
			if err != nil {
				return applied, fmt.Errorf("agent.Replay create %s: %w", op.ID, err)
			}
			ed.Create(s)
			applied++
		case OpUpdate:
			if op.Changes == nil {
				continue
			}
			cur, ok := ed.W.Get(op.ID)
			if !ok {
				continue
			}
			if _, err := ed.Update(op.ID, op.Changes.PatchFor(cur)); err != nil {
				return applied, fmt.Errorf("agent.Replay update %s: %w", op.ID, err)
			}
			applied++
		case OpDelete:
			err := ed.Delete(op.ID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return applied, fmt.Errorf("agent.Replay delete %s: %w", op.ID, err)
			}
			applied++
		}
	}
	return applied, nil
}
