package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long a toast stays queued when Add gets no duration.
const DefaultDuration = 15 * time.Second

type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Op string

const (
	Added   Op = "add"
	Removed Op = "remove"
)

// Change is delivered to OnChange observers after the queue was mutated.
type Change struct {
	Op    Op
	Toast Toast
}

// Queue is an ordered list of transient notifications. Toasts are addressed by
// id, so expiry timers stay correct when earlier toasts are removed first.
type Queue struct {
	mu        sync.Mutex
	items     []Toast
	timers    map[string]*time.Timer
	observers map[int]func(Change)
	nextObs   int
	now       func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		timers:    make(map[string]*time.Timer),
		observers: make(map[int]func(Change)),
		now:       time.Now,
	}
}

// Add appends a toast and schedules its removal after d.
func (q *Queue) Add(message string, kind Kind, d time.Duration) string {
	if kind == "" {
		kind = Info
	}
	if d <= 0 {
		d = DefaultDuration
	}

	now := q.now()
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(d),
	}

	q.mu.Lock()
	q.items = append(q.items, t)
	id := t.ID
	q.timers[id] = time.AfterFunc(d, func() { q.Remove(id) })
	observers := q.snapshotObservers()
	q.mu.Unlock()

	notify(observers, Change{Op: Added, Toast: t})
	return id
}

// Remove deletes the toast with the given id. It reports whether it was queued.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	idx := -1
	for i := range q.items {
		if q.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return false
	}

	removed := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	observers := q.snapshotObservers()
	q.mu.Unlock()

	notify(observers, Change{Op: Removed, Toast: removed})
	return true
}

// List returns a copy of the queued toasts, oldest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Toast, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every toast and stops pending timers. Observers are not notified.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.items = nil
}

// OnChange registers fn for every add and remove. The returned func unregisters it.
func (q *Queue) OnChange(fn func(Change)) func() {
	q.mu.Lock()
	id := q.nextObs
	q.nextObs++
	q.observers[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.observers, id)
		q.mu.Unlock()
	}
}

func (q *Queue) snapshotObservers() []func(Change) {
	if len(q.observers) == 0 {
		return nil
	}
	out := make([]func(Change), 0, len(q.observers))
	for _, fn := range q.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(Change), c Change) {
	for _, fn := range observers {
		fn(c)
	}
}
