// Package presence tracks who is in the meeting and what the local
// participant is allowed to control.
package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
)

// DefaultControllerRoles are the meeting roles allowed to drive the game.
var DefaultControllerRoles = []replica.Role{replica.RoleOrganizer, replica.RolePresenter}

func NewAdapter(channel replica.PresenceChannel, allowed []replica.Role) *Adapter {
	return &Adapter{
		channel: channel,
		allowed: append([]replica.Role(nil), allowed...),
	}
}

type Adapter struct {
	channel replica.PresenceChannel
	allowed []replica.Role

	startOnce sync.Once
	startErr  error

	mtx   sync.RWMutex
	users []replica.Participant
	local *replica.Participant

	subs replica.Listeners[func()]
}

// Start subscribes to presence changes and initializes the channel. Repeated
// calls return the first result.
func (a *Adapter) Start(ctx context.Context) error {
	a.startOnce.Do(func() {
		logger := logging.FromContext(ctx).Named("presence.Adapter")
		a.channel.OnPresenceChanged(func(p replica.Participant, local bool) {
			logger.Debugf("presence %s (%s) is %s, local %v", p.DisplayName, p.ID, p.State, local)
			a.update(p, local)
		})
		if err := a.channel.Initialize(ctx); err != nil {
			a.startErr = fmt.Errorf("initialize presence: %w", err)
		}
	})
	return a.startErr
}

func (a *Adapter) update(p replica.Participant, local bool) {
	online := a.channel.Users(replica.StateOnline)

	a.mtx.Lock()
	a.users = online
	if local {
		cp := p.Clone()
		a.local = &cp
	}
	a.mtx.Unlock()

	for _, fn := range a.subs.Snapshot() {
		fn()
	}
}

// OnChange registers fn for every rebuild of the participant set.
func (a *Adapter) OnChange(fn func()) (release func()) {
	return a.subs.Add(fn)
}

// Users returns the online participants.
func (a *Adapter) Users() []replica.Participant {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	out := make([]replica.Participant, len(a.users))
	for i := range a.users {
		out[i] = a.users[i].Clone()
	}
	return out
}

func (a *Adapter) LocalUser() (replica.Participant, bool) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	if a.local == nil {
		return replica.Participant{}, false
	}
	return a.local.Clone(), true
}

// IsAuthorizedController reports whether the local participant holds one of
// the allowed roles. An empty allow-list makes the game public.
func (a *Adapter) IsAuthorizedController() bool {
	if len(a.allowed) == 0 {
		return true
	}
	local, ok := a.LocalUser()
	if !ok {
		return false
	}
	for _, role := range a.allowed {
		if local.HasRole(role) {
			return true
		}
	}
	return false
}

func (a *Adapter) IsOrganizer() bool {
	local, ok := a.LocalUser()
	return ok && local.HasRole(replica.RoleOrganizer)
}
