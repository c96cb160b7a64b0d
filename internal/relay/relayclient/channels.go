package relayclient

import (
	"context"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/relay"
	"github.com/bloops-games/balloonbomb/internal/replica"
)

type presence struct {
	session   *Session
	mtx       sync.Mutex
	init      bool
	listeners replica.Listeners[func(replica.Participant, bool)]
}

// Initialize replays everyone already in the room, then the local
// participant.
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

	for _, other := range p.session.participants()[1:] {
		p.fire(other, false)
	}
	p.fire(p.session.self.Clone(), true)
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
	for _, u := range p.session.participants() {
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

// Send broadcasts payload to the room. The relay does not echo events, so
// local handlers run here.
func (e *events) Send(ctx context.Context, payload []byte) error {
	if !e.IsInitialized() {
		return replica.ErrNotInitialized
	}
	if e.session.isClosed() {
		return ErrClosed
	}
	if err := e.session.write(ctx, relay.Frame{T: relay.FrameEvent, Payload: payload}); err != nil {
		return err
	}
	e.fire(payload, true)
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
