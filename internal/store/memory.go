package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/inkboard/inkboard/internal/shape"
)

// Memory is a Store backed by a map. Writes are last-write-wins per whole record.
type Memory struct {
	mu      sync.Mutex
	shapes  map[string]shape.Shape
	subs    map[int]func(Event)
	nextSub int
}

func NewMemory(initial ...shape.Shape) *Memory {
	m := &Memory{
		shapes: make(map[string]shape.Shape, len(initial)),
		subs:   make(map[int]func(Event)),
	}
	for _, s := range initial {
		m.shapes[shape.ID(s)] = s
	}
	return m
}

func (m *Memory) Get(id string) (shape.Shape, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shapes[id]
	return s, ok
}

// All returns every shape ordered by zIndex, then id.
func (m *Memory) All() []shape.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allLocked()
}

func (m *Memory) allLocked() []shape.Shape {
	out := make([]shape.Shape, 0, len(m.shapes))
	for _, s := range m.shapes {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b shape.Shape) int {
		if c := cmp.Compare(a.Meta().ZIndex, b.Meta().ZIndex); c != 0 {
			return c
		}
		return cmp.Compare(shape.ID(a), shape.ID(b))
	})
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shapes)
}

func (m *Memory) Set(id string, s shape.Shape) {
	m.Transact(OriginLocal, func(w Writer) { w.Set(id, s) })
}

func (m *Memory) Delete(id string) {
	m.Transact(OriginLocal, func(w Writer) { w.Delete(id) })
}

func (m *Memory) Batch(fn func(w Writer)) {
	m.Transact(OriginLocal, fn)
}

// ApplyRemote commits writes received from another client. They reach subscribers
// but never enter the local undo history.
func (m *Memory) ApplyRemote(fn func(w Writer)) {
	m.Transact(OriginRemote, fn)
}

// Transact runs fn under the store lock and notifies subscribers once afterwards.
// fn must only use the Writer it is given.
func (m *Memory) Transact(origin Origin, fn func(w Writer)) {
	m.mu.Lock()
	tx := &tx{m: m}
	fn(tx)
	tx.done = true
	subs := make([]func(Event), 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	if len(tx.changes) == 0 {
		return
	}
	ev := Event{Origin: origin, Changes: tx.changes}
	for _, sub := range subs {
		sub(ev)
	}
}

// Subscribe registers fn for every committed batch. The returned func is safe to
// call more than once.
func (m *Memory) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Replace swaps the whole document, emitting a change per differing key.
func (m *Memory) Replace(origin Origin, shapes []shape.Shape) {
	m.Transact(origin, func(w Writer) {
		keep := make(map[string]bool, len(shapes))
		for _, s := range shapes {
			keep[shape.ID(s)] = true
			w.Set(shape.ID(s), s)
		}
		for _, s := range w.All() {
			if !keep[shape.ID(s)] {
				w.Delete(shape.ID(s))
			}
		}
	})
}

type tx struct {
	m       *Memory
	changes []Change
	done    bool
}

func (t *tx) Get(id string) (shape.Shape, bool) {
	s, ok := t.m.shapes[id]
	return s, ok
}

func (t *tx) All() []shape.Shape {
	return t.m.allLocked()
}

func (t *tx) Set(id string, s shape.Shape) {
	if t.done {
		panic("store: write after transaction commit")
	}
	if s == nil {
		t.Delete(id)
		return
	}
	if shape.ID(s) != id {
		s = shape.WithID(s, id)
	}
	before := t.m.shapes[id]
	t.m.shapes[id] = s
	t.changes = append(t.changes, Change{ID: id, Before: before, After: s})
}

func (t *tx) Delete(id string) {
	if t.done {
		panic("store: write after transaction commit")
	}
	before, ok := t.m.shapes[id]
	if !ok {
		return
	}
	delete(t.m.shapes, id)
	t.changes = append(t.changes, Change{ID: id, Before: before})
}
