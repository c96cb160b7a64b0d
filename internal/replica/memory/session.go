package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/replica"
)

var _ replica.Session = (*Session)(nil)

type Session struct {
	network *Network
	self    replica.Participant

	mtx           sync.Mutex
	closed        bool
	done          chan struct{}
	slotListeners map[replica.Slot]*replica.Listeners[func()]

	presence *presence
	events   *events
}

func (s *Session) Get(slot replica.Slot) (string, bool) {
	return s.network.get(slot)
}

func (s *Session) Set(ctx context.Context, slot replica.Slot, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return fmt.Errorf("set %s: %w", slot, ErrClosed)
	}
	s.network.set(slot, value)
	return nil
}

func (s *Session) OnValueChanged(slot replica.Slot, fn func()) func() {
	s.mtx.Lock()
	l, ok := s.slotListeners[slot]
	if !ok {
		l = &replica.Listeners[func()]{}
		s.slotListeners[slot] = l
	}
	s.mtx.Unlock()
	return l.Add(fn)
}

func (s *Session) fireSlot(slot replica.Slot) {
	s.mtx.Lock()
	l, ok := s.slotListeners[slot]
	s.mtx.Unlock()
	if !ok {
		return
	}
	for _, fn := range l.Snapshot() {
		fn()
	}
}

func (s *Session) Presence() replica.PresenceChannel { return s.presence }

func (s *Session) Events() replica.EventChannel { return s.events }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) isClosed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}

func (s *Session) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mtx.Unlock()

	if s.presence.isInitialized() {
		left := s.self.Clone()
		left.State = replica.StateOffline
		s.network.publishPresence(s, left)
	}
	return nil
}

type presence struct {
	session   *Session
	mtx       sync.Mutex
	init      bool
	listeners replica.Listeners[func(replica.Participant, bool)]
}

func (p *presence) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mtx.Lock()
	if p.init {
		p.mtx.Unlock()
		return nil
	}
	p.init = true
	p.mtx.Unlock()

	// Newcomers learn about everyone already online, then announce themselves.
	for _, other := range p.session.network.online() {
		if other.ID == p.session.self.ID {
			continue
		}
		p.fire(other, false)
	}
	p.session.network.publishPresence(p.session, p.session.self.Clone())
	return nil
}

func (p *presence) isInitialized() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.init
}

func (p *presence) OnPresenceChanged(fn func(replica.Participant, bool)) func() {
	return p.listeners.Add(fn)
}

func (p *presence) Users(state replica.ConnectionState) []replica.Participant {
	var out []replica.Participant
	for _, u := range p.session.network.online() {
		if u.State == state {
			out = append(out, u)
		}
	}
	return out
}

func (p *presence) fire(participant replica.Participant, local bool) {
	for _, fn := range p.listeners.Snapshot() {
		fn(participant.Clone(), local)
	}
}

type events struct {
	session   *Session
	mtx       sync.Mutex
	init      bool
	listeners replica.Listeners[func([]byte, bool)]
}

func (e *events) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.init = true
	return nil
}

func (e *events) IsInitialized() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.init
}

func (e *events) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.IsInitialized() {
		return replica.ErrNotInitialized
	}
	if e.session.isClosed() {
		return ErrClosed
	}
	e.session.network.broadcast(e.session, payload)
	return nil
}

func (e *events) OnReceived(fn func([]byte, bool)) func() {
	return e.listeners.Add(fn)
}

func (e *events) fire(payload []byte, local bool) {
	for _, fn := range e.listeners.Snapshot() {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		fn(cp, local)
	}
}
