// Package memory is an in-process replica transport. Every session joined to
// a Network sees the same slots; writes are last-write-wins and change
// notifications are delivered synchronously to every session, writer
// included.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/replica"
)

var ErrClosed = fmt.Errorf("session closed")

type JoinHook func(ctx context.Context, id replica.Identity) error

func NewNetwork() *Network {
	return &Network{slots: map[replica.Slot]string{}}
}

type Network struct {
	mtx      sync.RWMutex
	slots    map[replica.Slot]string
	sessions []*Session
	joins    int
	hook     JoinHook
}

// SetJoinHook installs fn to run before every join; a non-nil error fails it.
func (n *Network) SetJoinHook(fn JoinHook) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.hook = fn
}

// Joins reports how many join attempts reached the network.
func (n *Network) Joins() int {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.joins
}

// Raw returns the stored blob of slot, bypassing any session.
func (n *Network) Raw(slot replica.Slot) (string, bool) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	v, ok := n.slots[slot]
	return v, ok
}

// Client returns a Joiner that joins as id.
func (n *Network) Client(id replica.Identity) replica.Joiner {
	return joiner{network: n, identity: id}
}

type joiner struct {
	network  *Network
	identity replica.Identity
}

func (j joiner) Join(ctx context.Context) (replica.Session, error) {
	return j.network.Join(ctx, j.identity)
}

func (n *Network) Join(ctx context.Context, id replica.Identity) (*Session, error) {
	n.mtx.Lock()
	n.joins++
	hook := n.hook
	n.mtx.Unlock()

	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Session{
		network: n,
		self: replica.Participant{
			ID:          id.ID,
			DisplayName: id.DisplayName,
			Roles:       append([]replica.Role(nil), id.Roles...),
			State:       replica.StateOnline,
		},
		slotListeners: map[replica.Slot]*replica.Listeners[func()]{},
		done:          make(chan struct{}),
	}
	s.presence = &presence{session: s}
	s.events = &events{session: s}

	n.mtx.Lock()
	n.sessions = append(n.sessions, s)
	n.mtx.Unlock()

	return s, nil
}

// Drop closes every live session joined as id, as if its connection was
// lost. It reports whether any session was dropped.
func (n *Network) Drop(id string) bool {
	dropped := false
	for _, s := range n.sessionsSnapshot() {
		if s.self.ID == id {
			_ = s.Close()
			dropped = true
		}
	}
	return dropped
}

func (n *Network) get(slot replica.Slot) (string, bool) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	v, ok := n.slots[slot]
	return v, ok
}

func (n *Network) set(slot replica.Slot, value string) {
	n.mtx.Lock()
	n.slots[slot] = value
	sessions := n.liveSessions()
	n.mtx.Unlock()

	for _, s := range sessions {
		s.fireSlot(slot)
	}
}

func (n *Network) liveSessions() []*Session {
	out := make([]*Session, 0, len(n.sessions))
	for _, s := range n.sessions {
		if !s.isClosed() {
			out = append(out, s)
		}
	}
	return out
}

func (n *Network) sessionsSnapshot() []*Session {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.liveSessions()
}

func (n *Network) online() []replica.Participant {
	var out []replica.Participant
	for _, s := range n.sessionsSnapshot() {
		if s.presence.isInitialized() {
			out = append(out, s.self.Clone())
		}
	}
	return out
}

func (n *Network) publishPresence(from *Session, p replica.Participant) {
	for _, s := range n.sessionsSnapshot() {
		if !s.presence.isInitialized() {
			continue
		}
		s.presence.fire(p, s == from)
	}
}

func (n *Network) broadcast(from *Session, payload []byte) {
	for _, s := range n.sessionsSnapshot() {
		if !s.events.IsInitialized() {
			continue
		}
		s.events.fire(payload, s == from)
	}
}
