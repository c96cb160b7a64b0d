package replica

import "sync"

// Listeners is an ordered, releasable handler list shared by the transports.
type Listeners[F any] struct {
	mtx    sync.Mutex
	nextID int
	items  []listener[F]
}

type listener[F any] struct {
	id int
	fn F
}

func (l *Listeners[F]) Add(fn F) (release func()) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.nextID++
	id := l.nextID
	l.items = append(l.items, listener[F]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *Listeners[F]) remove(id int) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for i := range l.items {
		if l.items[i].id == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Snapshot returns the handlers in registration order. Callers invoke them
// without holding the list lock so handlers may register or release.
func (l *Listeners[F]) Snapshot() []F {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	out := make([]F, len(l.items))
	for i := range l.items {
		out[i] = l.items[i].fn
	}
	return out
}

func (l *Listeners[F]) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.items)
}
