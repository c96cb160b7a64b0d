// Package notify sends short-lived toasts ("just restarted the game") to
// every participant over the container's broadcast channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
)

// PlaceholderPrincipal stands in when the host platform gives no identity.
const PlaceholderPrincipal = "Someone@contoso.com"

var ErrNotStarted = fmt.Errorf("%w: notification channel not started", gamestate.ErrInvalidState)

// Event is the broadcast payload.
type Event struct {
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
}

// Notification is an Event as seen by one client.
type Notification struct {
	Event
	Local bool
}

// Display renders the toast from the receiver's point of view.
func (n Notification) Display() string {
	if n.Local {
		return "You " + n.Text
	}
	return n.SenderName + " " + n.Text
}

// SenderName turns a principal name such as jane@contoso.com into jane.
func SenderName(principal string) string {
	if principal == "" {
		principal = PlaceholderPrincipal
	}
	return strings.SplitN(principal, "@", 2)[0]
}

func NewChannel(events replica.EventChannel, principal string) *Channel {
	return &Channel{events: events, sender: SenderName(principal)}
}

type Channel struct {
	events replica.EventChannel
	sender string

	startOnce sync.Once
	startErr  error

	mtx     sync.RWMutex
	started bool

	subs replica.Listeners[func(Notification)]
}

// Start registers the receive handler and initializes the underlying
// channel. Only the first call does anything.
func (c *Channel) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		logger := logging.FromContext(ctx).Named("notify.Channel")
		c.events.OnReceived(func(payload []byte, local bool) {
			var e Event
			if err := json.Unmarshal(payload, &e); err != nil {
				logger.Warnf("dropping malformed notification: %v", err)
				return
			}
			c.dispatch(Notification{Event: e, Local: local})
		})

		if c.events.IsInitialized() {
			c.markStarted()
			return
		}
		if err := c.events.Initialize(ctx); err != nil {
			logger.Errorf("initialize notification channel: %v", err)
			c.startErr = fmt.Errorf("initialize: %w", err)
			return
		}
		c.markStarted()
	})

	return c.startErr
}

func (c *Channel) markStarted() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.started = true
}

func (c *Channel) Started() bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.started
}

// Send broadcasts text with the local sender name. Delivery is best effort:
// participants who join later never see it.
func (c *Channel) Send(ctx context.Context, text string) error {
	if !c.Started() {
		return ErrNotStarted
	}

	payload, err := json.Marshal(Event{Text: text, SenderName: c.sender})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := c.events.Send(ctx, payload); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Subscribe registers fn for every received notification, the sender's own
// included. The returned func unregisters it.
func (c *Channel) Subscribe(fn func(Notification)) (release func()) {
	return c.subs.Add(fn)
}

func (c *Channel) dispatch(n Notification) {
	for _, fn := range c.subs.Snapshot() {
		fn(n)
	}
}
