// Package replica describes the transport a Balloon Bomb client joins: a set
// of replicated slots with last-write-wins semantics, a presence feed and an
// ephemeral broadcast channel.
package replica

import (
	"context"
	"fmt"
)

var ErrNotInitialized = fmt.Errorf("channel not initialized")

// Slot names one replicated mapping. Each slot holds a single JSON document.
type Slot string

const (
	SlotRoster     Slot = "personMap"
	SlotTurnWindow Slot = "pumpMap"
	SlotBlowConfig Slot = "blowMap"
	SlotRestartLog Slot = "restartMap"
	SlotPhase      Slot = "appStateMap"
)

// Slots lists every slot a game container declares.
var Slots = []Slot{SlotRoster, SlotTurnWindow, SlotBlowConfig, SlotRestartLog, SlotPhase}

// Store is the replicated key-value part of a session. Set replaces the whole
// document; there is no merge. Listeners registered with OnValueChanged run on
// every client, the writer included, and carry no payload: callers re-Get.
type Store interface {
	Get(slot Slot) (string, bool)
	Set(ctx context.Context, slot Slot, value string) error
	OnValueChanged(slot Slot, fn func()) (release func())
}

// PresenceChannel reports who is connected.
type PresenceChannel interface {
	Initialize(ctx context.Context) error
	OnPresenceChanged(fn func(p Participant, local bool)) (release func())
	Users(state ConnectionState) []Participant
}

// EventChannel is a fire-and-forget broadcast. Received handlers run for
// every event, including the sender's own, with local set accordingly.
type EventChannel interface {
	Initialize(ctx context.Context) error
	IsInitialized() bool
	Send(ctx context.Context, payload []byte) error
	OnReceived(fn func(payload []byte, local bool)) (release func())
}

// Session is one client's joined container. Done is closed once the session
// is gone, whether by Close or because the transport dropped it.
type Session interface {
	Store
	Presence() PresenceChannel
	Events() EventChannel
	Done() <-chan struct{}
	Close() error
}

// Joiner establishes sessions.
type Joiner interface {
	Join(ctx context.Context) (Session, error)
}
