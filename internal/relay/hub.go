package relay

import (
	"context"
	"errors"
	"fmt"

	slotdb "github.com/bloops-games/balloonbomb/internal/database/slotstate/database"
	slotmodel "github.com/bloops-games/balloonbomb/internal/database/slotstate/model"
	"github.com/bloops-games/balloonbomb/internal/hashutil"
	"github.com/bloops-games/balloonbomb/internal/logging"
)

var ErrRoomNotFound = fmt.Errorf("room not found")

type hubMsg interface{ isHubMsg() }

type createRoom struct {
	reply chan *Room
}

type getRoom struct {
	code  string
	reply chan *Room
}

type removeRoom struct{ code string }

type shutdownHub struct{}

func (createRoom) isHubMsg()  {}
func (getRoom) isHubMsg()     {}
func (removeRoom) isHubMsg()  {}
func (shutdownHub) isHubMsg() {}

// Hub owns the live rooms. Rooms persisted by an earlier process are
// restored on first access.
type Hub struct {
	inbox   chan hubMsg
	rooms   map[string]*Room
	store   RoomStore
	archive Archive

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, store RoomStore, archive Archive) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan hubMsg, 64),
		rooms:   make(map[string]*Room),
		store:   store,
		archive: archive,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Create opens a room under a fresh code.
func (h *Hub) Create(ctx context.Context) (*Room, error) {
	reply := make(chan *Room, 1)
	if err := h.send(ctx, createRoom{reply: reply}); err != nil {
		return nil, err
	}
	return h.await(ctx, reply)
}

// Get returns a live or persisted room, or ErrRoomNotFound.
func (h *Hub) Get(ctx context.Context, code string) (*Room, error) {
	reply := make(chan *Room, 1)
	if err := h.send(ctx, getRoom{code: code, reply: reply}); err != nil {
		return nil, err
	}
	r, err := h.await(ctx, reply)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.send(ctx, removeRoom{code: code})
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- shutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(ctx context.Context, m hubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped: %w", h.ctx.Err())
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) await(ctx context.Context, reply chan *Room) (*Room, error) {
	select {
	case r := <-reply:
		return r, nil
	case <-h.ctx.Done():
		return nil, fmt.Errorf("hub stopped: %w", h.ctx.Err())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) loop() {
	logger := logging.FromContext(h.ctx).Named("relay.Hub")
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case createRoom:
				code := hashutil.RoomCode()
				for h.exists(code) {
					logger.Debugf("collision on code %s, regenerating", code)
					code = hashutil.RoomCode()
				}
				initial := slotmodel.NewRoom(code)
				if h.store != nil {
					if err := h.store.Put(initial); err != nil {
						logger.Errorf("persist new room %s: %v", code, err)
					}
				}
				r := newRoom(h.ctx, code, initial, h.store, h.archive)
				h.rooms[code] = r
				logger.Infof("room %s created", code)
				msg.reply <- r

			case getRoom:
				if r := h.rooms[msg.code]; r != nil {
					msg.reply <- r
					break
				}
				initial, ok := h.restore(msg.code)
				if !ok {
					msg.reply <- nil
					break
				}
				r := newRoom(h.ctx, msg.code, initial, h.store, h.archive)
				h.rooms[msg.code] = r
				logger.Infof("room %s restored", msg.code)
				msg.reply <- r

			case removeRoom:
				if r := h.rooms[msg.code]; r != nil {
					r.Shutdown()
					delete(h.rooms, msg.code)
				}

			case shutdownHub:
				for code, r := range h.rooms {
					r.Shutdown()
					delete(h.rooms, code)
				}
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) exists(code string) bool {
	if _, ok := h.rooms[code]; ok {
		return true
	}
	_, ok := h.restore(code)
	return ok
}

func (h *Hub) restore(code string) (slotmodel.Room, bool) {
	if h.store == nil {
		return slotmodel.Room{}, false
	}
	room, err := h.store.Fetch(code)
	if err != nil {
		if !errors.Is(err, slotdb.ErrEntryNotFound) {
			logging.FromContext(h.ctx).Named("relay.Hub").Errorf("fetch room %s: %v", code, err)
		}
		return slotmodel.Room{}, false
	}
	return room, true
}
