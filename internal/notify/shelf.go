package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a toast stays on the shelf.
const DefaultTTL = 2500 * time.Millisecond

type Toast struct {
	ID   uuid.UUID
	Text string
	At   time.Time
}

// Shelf holds the toasts currently on screen. Each one clears itself after
// the TTL.
type Shelf struct {
	ttl time.Duration

	mtx    sync.Mutex
	toasts []Toast
	timers map[uuid.UUID]*time.Timer
	onDrop func(Toast)
}

func NewShelf(ttl time.Duration) *Shelf {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Shelf{ttl: ttl, timers: map[uuid.UUID]*time.Timer{}}
}

// OnDrop sets a callback run after a toast expires.
func (s *Shelf) OnDrop(fn func(Toast)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.onDrop = fn
}

func (s *Shelf) Push(text string) Toast {
	t := Toast{ID: uuid.New(), Text: text, At: time.Now()}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.toasts = append(s.toasts, t)
	s.timers[t.ID] = time.AfterFunc(s.ttl, func() { s.drop(t.ID) })
	return t
}

func (s *Shelf) drop(id uuid.UUID) {
	s.mtx.Lock()
	var dropped *Toast
	for i := range s.toasts {
		if s.toasts[i].ID == id {
			t := s.toasts[i]
			dropped = &t
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			break
		}
	}
	delete(s.timers, id)
	onDrop := s.onDrop
	s.mtx.Unlock()

	if dropped != nil && onDrop != nil {
		onDrop(*dropped)
	}
}

// Current returns the toasts on screen, oldest first.
func (s *Shelf) Current() []Toast {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make([]Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// Clear removes every toast and stops pending timers.
func (s *Shelf) Clear() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
}
