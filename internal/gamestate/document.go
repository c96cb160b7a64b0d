package gamestate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"go.uber.org/zap"
)

type cloner[T any] interface {
	Clone() T
}

// document is the local snapshot of one replicated slot plus its
// subscribers. The snapshot lock is never held while writing the slot or
// running handlers.
//
// A mutation stages its result locally and then writes it. While staged
// values are in flight, change notifications only mark the document stale;
// the last write to settle reloads the slot and fans out once. Without this a
// late echo of an older write would replace a newer staged value.
type document[T cloner[T]] struct {
	slot     replica.Slot
	fallback func() T

	mtx      sync.RWMutex
	value    T
	inflight int
	stale    bool
	gen      uint64
	logger   *zap.SugaredLogger

	subs replica.Listeners[func(T)]
}

func newDocument[T cloner[T]](slot replica.Slot, fallback func() T) *document[T] {
	return &document[T]{slot: slot, fallback: fallback, value: fallback(), logger: logging.DefaultLogger()}
}

func (d *document[T]) get() T {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return d.value.Clone()
}

func (d *document[T]) put(v T) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.value = v.Clone()
}

// stage keeps v locally until it is written. Every staged value must be
// passed to write or settle exactly once.
func (d *document[T]) stage(v T) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.value = v.Clone()
	d.inflight++
	d.gen++
}

// update applies fn to a copy of the snapshot and stages the result. When fn
// fails nothing is staged.
func (d *document[T]) update(fn func(v *T) error) (T, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	next := d.value.Clone()
	if err := fn(&next); err != nil {
		return next, err
	}
	d.value = next.Clone()
	d.inflight++
	d.gen++
	return next, nil
}

func (d *document[T]) decode(blob string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(blob), &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.slot, err)
	}
	return v, nil
}

func (d *document[T]) load(store replica.Store, logger *zap.SugaredLogger) {
	d.mtx.Lock()
	d.logger = logger
	d.mtx.Unlock()

	blob, ok := store.Get(d.slot)
	if !ok || blob == "" {
		d.put(d.fallback())
		return
	}
	v, err := d.decode(blob)
	if err != nil {
		logger.Warnf("slot %s holds an unreadable document, using default: %v", d.slot, err)
		d.put(d.fallback())
		return
	}
	d.put(v)
}

// write sends a staged value to the slot and settles it.
func (d *document[T]) write(ctx context.Context, store replica.Store, v T) (err error) {
	defer func() { d.settle(store, err != nil) }()

	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.slot, err)
	}
	if err := store.Set(ctx, d.slot, string(blob)); err != nil {
		return fmt.Errorf("write %s: %w", d.slot, err)
	}
	return nil
}

// settle retires one staged value. A value that was never written leaves the
// document stale, so it is reloaded from the slot.
func (d *document[T]) settle(store replica.Store, failed bool) {
	d.mtx.Lock()
	d.inflight--
	if failed {
		d.stale = true
	}
	reload := d.inflight == 0 && d.stale
	if reload {
		d.stale = false
	}
	d.mtx.Unlock()

	if reload {
		d.refresh(store)
	}
}

// refresh reads the slot and, unless a local write is in flight, makes it
// the snapshot and fans it out. A read that raced with a local mutation is
// retried.
func (d *document[T]) refresh(store replica.Store) {
	for {
		d.mtx.RLock()
		gen, logger := d.gen, d.logger
		d.mtx.RUnlock()

		blob, ok := store.Get(d.slot)
		if !ok {
			return
		}
		v, err := d.decode(blob)
		if err != nil {
			logger.Warnf("skipping change of slot %s: %v", d.slot, err)
			return
		}

		d.mtx.Lock()
		if d.inflight > 0 {
			d.stale = true
			d.mtx.Unlock()
			return
		}
		if d.gen != gen {
			d.mtx.Unlock()
			continue
		}
		d.value = v.Clone()
		d.mtx.Unlock()

		d.notify(v)
		return
	}
}

// bind refreshes the document on every change notification of its slot.
func (d *document[T]) bind(store replica.Store, logger *zap.SugaredLogger) func() {
	d.mtx.Lock()
	d.logger = logger
	d.mtx.Unlock()

	return store.OnValueChanged(d.slot, func() { d.refresh(store) })
}

func (d *document[T]) notify(v T) {
	for _, fn := range d.subs.Snapshot() {
		fn(v.Clone())
	}
}

func (d *document[T]) subscribe(fn func(T)) *Subscription {
	return &Subscription{release: d.subs.Add(fn)}
}

// stagedWrite is a staged document value waiting for its slot write.
type stagedWrite struct {
	write  func(ctx context.Context, store replica.Store) error
	settle func(store replica.Store, failed bool)
}

func (d *document[T]) staged(v T) stagedWrite {
	return stagedWrite{
		write:  func(ctx context.Context, store replica.Store) error { return d.write(ctx, store, v) },
		settle: d.settle,
	}
}

// writeAll writes staged values in order. After the first failure the rest
// are settled without being written.
func writeAll(ctx context.Context, store replica.Store, writes ...stagedWrite) error {
	for i, w := range writes {
		if err := w.write(ctx, store); err != nil {
			for _, rest := range writes[i+1:] {
				rest.settle(store, true)
			}
			return err
		}
	}
	return nil
}

// Subscription is a registered change handler.
type Subscription struct {
	release func()
}

// Release unregisters the handler. It is safe to call more than once.
func (s *Subscription) Release() {
	if s != nil && s.release != nil {
		s.release()
	}
}
