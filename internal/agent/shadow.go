package agent

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/inkboard/inkboard/internal/shape"
)

var ErrUnknownShape = errors.New("unknown shape id")

// Shadow is a request-scoped copy of the board. Tools edit it so later steps can
// see shapes created by earlier ones, and every edit is logged as an Operation.
type Shadow struct {
	shapes map[string]shape.Shape
	order  []string
	ops    []Operation
	seq    int
	z      int64
}

// NewShadow seeds a shadow board from a snapshot.
func NewShadow(snapshot []shape.Summary) *Shadow {
	sh := &Shadow{shapes: make(map[string]shape.Shape, len(snapshot))}
	for _, sum := range snapshot {
		s, err := shape.FromDraft(sum.ID, sum.Draft(), "", 0)
		if err != nil || sum.ID == "" {
			continue
		}
		sh.z++
		s = shape.Apply(s, shape.Patch{ZIndex: shape.Int(sh.z)})
		if _, dup := sh.shapes[sum.ID]; !dup {
			sh.order = append(sh.order, sum.ID)
		}
		sh.shapes[sum.ID] = s
	}
	return sh
}

// Create adds a shape under a temporary id and returns its summary.
func (sh *Shadow) Create(d shape.Draft) (shape.Summary, error) {
	sh.seq++
	id := tempIDPrefix + strconv.Itoa(sh.seq)
	sh.z++
	s, err := shape.FromDraft(id, d, "", sh.z)
	if err != nil {
		sh.seq--
		sh.z--
		return shape.Summary{}, err
	}

	sh.shapes[id] = s
	sh.order = append(sh.order, id)
	draft := d
	sh.ops = append(sh.ops, Operation{Op: OpCreate, ID: id, Shape: &draft})
	return shape.Summarize(s), nil
}

// Update merges changes into a known shape.
func (sh *Shadow) Update(id string, c Changes) (shape.Summary, error) {
	cur, ok := sh.shapes[id]
	if !ok {
		return shape.Summary{}, fmt.Errorf("update %q: %w", id, ErrUnknownShape)
	}
	next := shape.Apply(cur, c.PatchFor(cur))
	sh.shapes[id] = next
	changes := c
	sh.ops = append(sh.ops, Operation{Op: OpUpdate, ID: id, Changes: &changes})
	return shape.Summarize(next), nil
}

func (sh *Shadow) Delete(id string) error {
	if _, ok := sh.shapes[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrUnknownShape)
	}
	delete(sh.shapes, id)
	for i, v := range sh.order {
		if v == id {
			sh.order = append(sh.order[:i], sh.order[i+1:]...)
			break
		}
	}
	sh.ops = append(sh.ops, Operation{Op: OpDelete, ID: id})
	return nil
}

// List returns the compact view of every shape in creation order.
func (sh *Shadow) List() []shape.Summary {
	out := make([]shape.Summary, 0, len(sh.order))
	for _, id := range sh.order {
		out = append(out, shape.Summarize(sh.shapes[id]))
	}
	return out
}

// Operations returns a copy of the log.
func (sh *Shadow) Operations() []Operation {
	return append([]Operation(nil), sh.ops...)
}
