// Package console is the player-facing side of Balloon Bomb: a line-based
// command loop that gates every game action on phase, meeting role and turn.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/notify"
	"github.com/bloops-games/balloonbomb/internal/presence"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/enescakir/emoji"
)

// ErrorTTL is how long an error toast stays up.
const ErrorTTL = 3 * time.Second

// Toasts waiting for the mirror beyond this are dropped.
const mirrorQueueSize = 32

var errDisconnected = fmt.Errorf("%w: lost the game, type \"reconnect\" to rejoin", gamestate.ErrConnect)

// Mirror forwards toasts somewhere outside the meeting.
type Mirror interface {
	Forward(ctx context.Context, text string) error
}

type Config struct {
	Game     *gamestate.Service
	Identity replica.Identity

	// Meeting roles allowed to drive the game; empty means everyone.
	AllowedRoles []replica.Role

	Out      io.Writer
	ToastTTL time.Duration
	ErrorTTL time.Duration
	Mirror   Mirror

	// WriteFile stores exported scores. Defaults to os.WriteFile.
	WriteFile func(name string, data []byte) error
}

type Controller struct {
	game     *gamestate.Service
	identity replica.Identity
	allowed  []replica.Role
	write    func(name string, data []byte) error

	mirror   Mirror
	mirrored chan string
	stop     chan struct{}
	stopOnce sync.Once

	linkMtx  sync.RWMutex
	presence *presence.Adapter
	notes    *notify.Channel
	subs     []func()

	toasts *notify.Shelf
	errors *notify.Shelf

	outMtx sync.Mutex
	out    io.Writer

	disconnect *gamestate.Subscription
}

func New(config Config) *Controller {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	errTTL := config.ErrorTTL
	if errTTL <= 0 {
		errTTL = ErrorTTL
	}
	write := config.WriteFile
	if write == nil {
		write = func(name string, data []byte) error { return os.WriteFile(name, data, 0o644) }
	}

	return &Controller{
		game:     config.Game,
		identity: config.Identity,
		allowed:  config.AllowedRoles,
		mirror:   config.Mirror,
		mirrored: make(chan string, mirrorQueueSize),
		stop:     make(chan struct{}),
		write:    write,
		toasts:   notify.NewShelf(config.ToastTTL),
		errors:   notify.NewShelf(errTTL),
		out:      out,
	}
}

// Start connects to the game and wires presence, toasts and the organizer's
// automatic seat.
func (c *Controller) Start(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("console.Controller")

	if err := c.game.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.disconnect = c.game.OnDisconnect(func() { c.fail(errDisconnected) })
	if c.mirror != nil {
		go c.forward(ctx)
	}

	if err := c.attach(ctx); err != nil {
		return err
	}

	logger.Infof("console ready for %s", c.identity.DisplayName)
	return nil
}

// attach binds presence and toasts to the current game session, replacing
// any binding to an earlier one.
func (c *Controller) attach(ctx context.Context) error {
	presenceChannel, err := c.game.Presence()
	if err != nil {
		return fmt.Errorf("presence: %w", err)
	}
	events, err := c.game.Events()
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}

	people := presence.NewAdapter(presenceChannel, c.allowed)
	notes := notify.NewChannel(events, c.identity.PrincipalName)
	subs := []func(){
		notes.Subscribe(func(n notify.Notification) { c.toast(ctx, n.Display()) }),
		people.OnChange(func() { c.seatOrganizer(ctx) }),
	}

	c.linkMtx.Lock()
	old := c.subs
	c.presence, c.notes, c.subs = people, notes, subs
	c.linkMtx.Unlock()
	for _, release := range old {
		release()
	}

	if err := notes.Start(ctx); err != nil {
		return fmt.Errorf("start notifications: %w", err)
	}
	if err := people.Start(ctx); err != nil {
		return fmt.Errorf("start presence: %w", err)
	}
	return nil
}

func (c *Controller) people() *presence.Adapter {
	c.linkMtx.RLock()
	defer c.linkMtx.RUnlock()
	return c.presence
}

func (c *Controller) channel() *notify.Channel {
	c.linkMtx.RLock()
	defer c.linkMtx.RUnlock()
	return c.notes
}

// Stop releases the controller's subscriptions and clears pending toasts.
func (c *Controller) Stop() {
	c.disconnect.Release()

	c.linkMtx.Lock()
	subs := c.subs
	c.subs = nil
	c.linkMtx.Unlock()
	for _, release := range subs {
		release()
	}

	c.stopOnce.Do(func() { close(c.stop) })
	c.toasts.Clear()
	c.errors.Clear()
}

// seatOrganizer adds the organizer to the roster as soon as presence
// confirms the role.
func (c *Controller) seatOrganizer(ctx context.Context) {
	if !c.people().IsOrganizer() || c.game.Roster().Contains(c.identity.ID) {
		return
	}
	if err := c.game.AddPlayer(ctx, c.identity.DisplayName, c.identity.ID); err != nil && !errors.Is(err, gamestate.ErrValidation) {
		c.fail(err)
	}
}

// Run reads commands from in until EOF, ctx cancellation or "quit".
// Command errors become toasts; only read errors end the loop.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.printf("%s Balloon Bomb. Type \"help\" for commands.\n", emoji.Balloon)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read commands: %w", err)
			}
			return nil
		case line := <-lines:
			if strings.TrimSpace(line) == "quit" {
				return nil
			}
			if err := c.Execute(ctx, line); err != nil {
				c.fail(err)
			}
		}
	}
}

// toast runs on the transport's delivery path, so the mirror only gets a
// queued copy.
func (c *Controller) toast(ctx context.Context, text string) {
	c.toasts.Push(text)
	c.printf("%s %s\n", emoji.Loudspeaker, text)
	if c.mirror == nil {
		return
	}
	select {
	case c.mirrored <- text:
	default:
		logging.FromContext(ctx).Named("console.Controller").Warnf("mirror queue full, dropping toast %q", text)
	}
}

func (c *Controller) forward(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("console.Controller")
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case text := <-c.mirrored:
			if err := c.mirror.Forward(ctx, text); err != nil {
				logger.Warnf("mirror toast: %v", err)
			}
		}
	}
}

func (c *Controller) fail(err error) {
	c.errors.Push(err.Error())
	c.printf("%s %v\n", emoji.CrossMark, err)
}

// Toasts returns the notifications currently on screen.
func (c *Controller) Toasts() []notify.Toast { return c.toasts.Current() }

// Errors returns the error messages currently on screen.
func (c *Controller) Errors() []notify.Toast { return c.errors.Current() }

func (c *Controller) printf(format string, args ...interface{}) {
	c.outMtx.Lock()
	defer c.outMtx.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
