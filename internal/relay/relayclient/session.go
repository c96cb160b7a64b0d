// Package relayclient joins a relay room over a websocket and exposes it as
// a replica.Session.
package relayclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/relay"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var (
	ErrClosed    = fmt.Errorf("relay session closed")
	ErrHandshake = fmt.Errorf("relay handshake")
)

const readLimit = 1 << 20

var _ replica.Joiner = (*Joiner)(nil)

// Joiner dials BaseURL (ws:// or http://) and joins Room as Identity.
type Joiner struct {
	BaseURL  string
	Room     string
	Identity replica.Identity
}

func (j *Joiner) Join(ctx context.Context) (replica.Session, error) {
	return Dial(ctx, j.BaseURL, j.Room, j.Identity)
}

var _ replica.Session = (*Session)(nil)

// Session mirrors the room's slots locally. Writes are applied when the
// relay echoes them, so every client sees the same write order. Until its own
// latest write comes back, Get returns that write instead of older echoes.
type Session struct {
	conn   *websocket.Conn
	self   replica.Participant
	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mtx           sync.Mutex
	closed        bool
	slots         map[replica.Slot]string
	pending       map[replica.Slot][]pendingWrite
	others        map[string]replica.Participant
	order         []string
	slotListeners map[replica.Slot]*replica.Listeners[func()]

	presence *presence
	events   *events
}

// pendingWrite is a set sent to the relay and not yet echoed.
type pendingWrite struct {
	ref   string
	value string
}

func wsURL(base, room string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"room": []string{room}}.Encode()
	return u.String(), nil
}

// Dial connects, says hello and waits for the room snapshot.
func Dial(ctx context.Context, baseURL, room string, identity replica.Identity) (*Session, error) {
	target, err := wsURL(baseURL, room)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	conn.SetReadLimit(readLimit)

	hello, err := relay.Encode(relay.Frame{T: relay.FrameHello, Identity: &identity})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("%w: write hello: %v", ErrHandshake, err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("%w: read snapshot: %v", ErrHandshake, err)
	}
	snapshot, err := relay.Decode(data)
	if err != nil || snapshot.T != relay.FrameSnapshot {
		conn.Close(websocket.StatusProtocolError, "expected snapshot")
		return nil, fmt.Errorf("%w: expected snapshot", ErrHandshake)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn: conn,
		self: replica.Participant{
			ID:          identity.ID,
			DisplayName: identity.DisplayName,
			Roles:       append([]replica.Role(nil), identity.Roles...),
			State:       replica.StateOnline,
		},
		logger:        logging.FromContext(ctx).Named("relayclient.Session").With("room", room),
		ctx:           sctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		slots:         map[replica.Slot]string{},
		pending:       map[replica.Slot][]pendingWrite{},
		others:        map[string]replica.Participant{},
		slotListeners: map[replica.Slot]*replica.Listeners[func()]{},
	}
	for k, v := range snapshot.Slots {
		s.slots[k] = v
	}
	for _, p := range snapshot.Participants {
		s.upsert(p)
	}
	s.presence = &presence{session: s}
	s.events = &events{session: s}

	go s.readLoop()
	return s, nil
}

func (s *Session) Get(slot replica.Slot) (string, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if p := s.pending[slot]; len(p) > 0 {
		return p[len(p)-1].value, true
	}
	v, ok := s.slots[slot]
	return v, ok
}

// Set sends the write to the relay. Get returns value right away; listeners
// fire once the relay echoes it back.
func (s *Session) Set(ctx context.Context, slot replica.Slot, value string) error {
	if s.isClosed() {
		return fmt.Errorf("set %s: %w", slot, ErrClosed)
	}

	ref := uuid.New().String()
	s.mtx.Lock()
	s.pending[slot] = append(s.pending[slot], pendingWrite{ref: ref, value: value})
	s.mtx.Unlock()

	if err := s.write(ctx, relay.Frame{T: relay.FrameSet, Ref: ref, Slot: slot, Value: value}); err != nil {
		s.forget(slot, ref)
		return fmt.Errorf("set %s: %w", slot, err)
	}
	return nil
}

// forget drops a write the relay will never echo.
func (s *Session) forget(slot replica.Slot, ref string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p := s.pending[slot]
	for i, w := range p {
		if w.ref == ref {
			p = append(p[:i], p[i+1:]...)
			break
		}
	}
	if len(p) == 0 {
		delete(s.pending, slot)
		return
	}
	s.pending[slot] = p
}

// confirm records an echoed slot value. It reports whether the visible value
// may have changed: an echo that lands while a later own write is still in
// flight changes nothing Get returns.
func (s *Session) confirm(slot replica.Slot, ref, value string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.slots[slot] = value

	p, ok := s.pending[slot]
	if !ok {
		return true
	}
	if ref != "" {
		for i, w := range p {
			if w.ref == ref {
				// The relay keeps a connection's writes in order.
				p = p[i+1:]
				break
			}
		}
	}
	if len(p) == 0 {
		delete(s.pending, slot)
		return true
	}
	s.pending[slot] = p
	return false
}

func (s *Session) fireSlot(slot replica.Slot) {
	s.mtx.Lock()
	l := s.slotListeners[slot]
	s.mtx.Unlock()
	if l == nil {
		return
	}
	for _, fn := range l.Snapshot() {
		fn()
	}
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

func (s *Session) Presence() replica.PresenceChannel { return s.presence }

func (s *Session) Events() replica.EventChannel { return s.events }

// Done is closed when the connection to the relay is gone.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return nil
	}
	s.closed = true
	s.mtx.Unlock()

	s.cancel()
	if err := s.conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		s.logger.Debugf("close: %v", err)
	}
	<-s.done
	return nil
}

func (s *Session) isClosed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}

func (s *Session) write(ctx context.Context, f relay.Frame) error {
	data, err := relay.Encode(f)
	if err != nil {
		return err
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write %s frame: %w", f.T, err)
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer func() {
		s.mtx.Lock()
		s.closed = true
		s.mtx.Unlock()
	}()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warnf("relay connection lost: %v", err)
			}
			return
		}

		frame, err := relay.Decode(data)
		if err != nil {
			s.logger.Warnf("dropping frame: %v", err)
			continue
		}

		switch frame.T {
		case relay.FrameSlot:
			if s.confirm(frame.Slot, frame.Ref, frame.Value) {
				s.fireSlot(frame.Slot)
			}

		case relay.FramePresence:
			if frame.Participant == nil {
				continue
			}
			p := frame.Participant.Clone()
			if p.State == replica.StateOffline {
				s.remove(p.ID)
			} else {
				s.upsert(p)
			}
			if s.presence.isInitialized() {
				s.presence.fire(p, false)
			}

		case relay.FrameEvent:
			if s.events.IsInitialized() {
				s.events.fire(frame.Payload, false)
			}

		case relay.FrameError:
			s.logger.Warnf("relay rejected a frame: %s", frame.Error)
			if frame.Ref != "" && frame.Slot != "" {
				s.forget(frame.Slot, frame.Ref)
				s.fireSlot(frame.Slot)
			}
		}
	}
}

func (s *Session) upsert(p replica.Participant) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if p.ID == s.self.ID {
		return
	}
	if _, ok := s.others[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.others[p.ID] = p
}

func (s *Session) remove(id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.others, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Session) participants() []replica.Participant {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make([]replica.Participant, 0, len(s.order)+1)
	out = append(out, s.self.Clone())
	for _, id := range s.order {
		out = append(out, s.others[id].Clone())
	}
	return out
}
