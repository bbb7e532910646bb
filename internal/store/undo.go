package store

import (
	"sync"
	"time"

	"github.com/inkboard/inkboard/internal/shape"
)

// DefaultCaptureTimeout merges local writes that land this close together into one
// undo step, so a drag undoes as a whole.
const DefaultCaptureTimeout = 500 * time.Millisecond

type undoStep struct {
	order  []string
	before map[string]shape.Shape
	after  map[string]shape.Shape
	at     time.Time
}

func newStep(at time.Time) *undoStep {
	return &undoStep{before: map[string]shape.Shape{}, after: map[string]shape.Shape{}, at: at}
}

func (s *undoStep) add(changes []Change) {
	for _, c := range changes {
		if _, seen := s.before[c.ID]; !seen {
			s.order = append(s.order, c.ID)
			s.before[c.ID] = c.Before
		}
		s.after[c.ID] = c.After
	}
}

// UndoManager keeps undo and redo stacks for local-origin writes to a Memory.
// Remote writes are never recorded.
type UndoManager struct {
	mem            *Memory
	CaptureTimeout time.Duration
	Now            func() time.Time

	mu          sync.Mutex
	undo        []*undoStep
	redo        []*undoStep
	stopped     bool
	unsubscribe func()
}

func NewUndoManager(mem *Memory) *UndoManager {
	u := &UndoManager{
		mem:            mem,
		CaptureTimeout: DefaultCaptureTimeout,
		Now:            time.Now,
	}
	u.unsubscribe = mem.Subscribe(u.observe)
	return u
}

func (u *UndoManager) observe(ev Event) {
	if ev.Origin != OriginLocal {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.Now()
	if n := len(u.undo); n > 0 && !u.stopped && now.Sub(u.undo[n-1].at) < u.CaptureTimeout {
		top := u.undo[n-1]
		top.add(ev.Changes)
		top.at = now
	} else {
		step := newStep(now)
		step.add(ev.Changes)
		u.undo = append(u.undo, step)
	}
	u.stopped = false
	u.redo = nil
}

// StopCapturing forces the next local write into a new step.
func (u *UndoManager) StopCapturing() {
	u.mu.Lock()
	u.stopped = true
	u.mu.Unlock()
}

func (u *UndoManager) CanUndo() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.undo) > 0
}

func (u *UndoManager) CanRedo() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.redo) > 0
}

// Undo reverts the most recent step. It reports false when there is nothing to undo.
func (u *UndoManager) Undo() bool {
	u.mu.Lock()
	n := len(u.undo)
	if n == 0 {
		u.mu.Unlock()
		return false
	}
	step := u.undo[n-1]
	u.undo = u.undo[:n-1]
	u.redo = append(u.redo, step)
	u.stopped = true
	u.mu.Unlock()

	u.restore(step.order, step.before)
	return true
}

func (u *UndoManager) Redo() bool {
	u.mu.Lock()
	n := len(u.redo)
	if n == 0 {
		u.mu.Unlock()
		return false
	}
	step := u.redo[n-1]
	u.redo = u.redo[:n-1]
	u.undo = append(u.undo, step)
	u.stopped = true
	u.mu.Unlock()

	u.restore(step.order, step.after)
	return true
}

func (u *UndoManager) restore(order []string, states map[string]shape.Shape) {
	u.mem.Transact(OriginUndo, func(w Writer) {
		for _, id := range order {
			if s := states[id]; s != nil {
				w.Set(id, s)
			} else {
				w.Delete(id)
			}
		}
	})
}

// Close detaches the manager from the store.
func (u *UndoManager) Close() {
	u.unsubscribe()
}
