package relay

import (
	"context"
	"encoding/json"
	"time"

	archivemodel "github.com/bloops-games/balloonbomb/internal/database/scorearchive/model"
	slotmodel "github.com/bloops-games/balloonbomb/internal/database/slotstate/model"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"go.uber.org/zap"
)

// RoomStore persists the last blob of every slot in a room.
type RoomStore interface {
	Fetch(code string) (slotmodel.Room, error)
	Put(room slotmodel.Room) error
}

// Archive keeps every restart log a room ever wrote.
type Archive interface {
	Add(e archivemodel.Entry) error
	FetchByRoom(code string) ([]archivemodel.Entry, error)
}

type roomMsg interface{ isRoomMsg() }

type join struct {
	id          string
	participant replica.Participant
	outbox      chan []byte
}

type leave struct{ id string }

type setSlot struct {
	from  string
	ref   string
	slot  replica.Slot
	value string
}

type broadcastEvent struct {
	from    string
	payload json.RawMessage
}

type getView struct{ reply chan View }

type shutdownRoom struct{}

func (join) isRoomMsg()           {}
func (leave) isRoomMsg()          {}
func (setSlot) isRoomMsg()        {}
func (broadcastEvent) isRoomMsg() {}
func (getView) isRoomMsg()        {}
func (shutdownRoom) isRoomMsg()   {}

// View is a copy of a room's state for inspection.
type View struct {
	Code         string
	Slots        map[replica.Slot]string
	Participants []replica.Participant
	Writes       int
}

type member struct {
	participant replica.Participant
	outbox      chan []byte
}

// Room is a single game container. All state is owned by the loop
// goroutine; the outside world talks to it through the inbox.
type Room struct {
	code    string
	inbox   chan roomMsg
	slots   map[replica.Slot]string
	members map[string]*member
	order   []string
	writes  int

	store   RoomStore
	archive Archive
	created time.Time
	logger  *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newRoom(parent context.Context, code string, initial slotmodel.Room, store RoomStore, archive Archive) *Room {
	ctx, cancel := context.WithCancel(parent)

	slots := make(map[replica.Slot]string, len(initial.Slots))
	for k, v := range initial.Slots {
		slots[replica.Slot(k)] = v
	}
	created := initial.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	r := &Room{
		code:    code,
		inbox:   make(chan roomMsg, 64),
		slots:   slots,
		members: make(map[string]*member),
		store:   store,
		archive: archive,
		created: created,
		logger:  logging.FromContext(parent).Named("relay.Room").With("room", code),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Done is closed when the room loop exits.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) send(m roomMsg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// View returns a snapshot of the room or false when it has shut down.
func (r *Room) View() (View, bool) {
	reply := make(chan View, 1)
	if !r.send(getView{reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.done:
		return View{}, false
	}
}

func (r *Room) Shutdown() {
	r.send(shutdownRoom{})
}

func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case join:
				r.join(msg)

			case leave:
				r.leave(msg.id)

			case setSlot:
				r.set(msg)

			case broadcastEvent:
				frame, err := Encode(Frame{T: FrameEvent, Payload: msg.payload})
				if err != nil {
					r.logger.Errorf("encode event: %v", err)
					break
				}
				r.broadcast(frame, msg.from)

			case getView:
				msg.reply <- r.view()

			case shutdownRoom:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) join(msg join) {
	snapshot := Frame{T: FrameSnapshot, Slots: r.copySlots(), Participants: r.participants()}
	frame, err := Encode(snapshot)
	if err != nil {
		r.logger.Errorf("encode snapshot: %v", err)
		close(msg.outbox)
		return
	}

	select {
	case msg.outbox <- frame:
	default:
		close(msg.outbox)
		return
	}

	r.members[msg.id] = &member{participant: msg.participant, outbox: msg.outbox}
	r.order = append(r.order, msg.id)
	r.logger.Infof("%s joined", msg.participant.DisplayName)

	r.publishPresence(msg.participant, msg.id)
}

func (r *Room) leave(id string) {
	m, ok := r.members[id]
	if !ok {
		return
	}
	r.drop(id)
	r.logger.Infof("%s left", m.participant.DisplayName)

	left := m.participant.Clone()
	left.State = replica.StateOffline
	r.publishPresence(left, "")
}

func (r *Room) publishPresence(p replica.Participant, except string) {
	frame, err := Encode(Frame{T: FramePresence, Participant: &p})
	if err != nil {
		r.logger.Errorf("encode presence: %v", err)
		return
	}
	r.broadcast(frame, except)
}

// set stores value last-write-wins and echoes it to every member, the
// writer included, so all clients apply writes in relay order.
func (r *Room) set(msg setSlot) {
	r.slots[msg.slot] = msg.value
	r.writes++

	frame, err := Encode(Frame{T: FrameSlot, Ref: msg.ref, Slot: msg.slot, Value: msg.value})
	if err != nil {
		r.logger.Errorf("encode slot: %v", err)
		return
	}
	r.broadcast(frame, "")

	r.persist()
	if msg.slot == replica.SlotRestartLog {
		r.archiveLog(msg.value)
	}
}

func (r *Room) persist() {
	if r.store == nil {
		return
	}
	room := slotmodel.Room{
		Code:      r.code,
		Slots:     make(map[string]string, len(r.slots)),
		CreatedAt: r.created,
		UpdatedAt: time.Now(),
	}
	for k, v := range r.slots {
		room.Slots[string(k)] = v
	}
	if err := r.store.Put(room); err != nil {
		r.logger.Errorf("persist room: %v", err)
	}
}

func (r *Room) archiveLog(value string) {
	if r.archive == nil {
		return
	}
	if !json.Valid([]byte(value)) {
		r.logger.Warnf("skipping archive of malformed restart log")
		return
	}
	if err := r.archive.Add(archivemodel.NewEntry(r.code, json.RawMessage(value))); err != nil {
		r.logger.Errorf("archive restart log: %v", err)
	}
}

// broadcast delivers frame to every member but except. Members whose
// outbox is full are dropped.
func (r *Room) broadcast(frame []byte, except string) {
	var slow []string
	for _, id := range r.order {
		if id == except {
			continue
		}
		select {
		case r.members[id].outbox <- frame:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		m, ok := r.members[id]
		if !ok {
			continue
		}
		r.logger.Warnf("dropping slow client %s", m.participant.DisplayName)
		r.drop(id)
		left := m.participant.Clone()
		left.State = replica.StateOffline
		r.publishPresence(left, "")
	}
}

func (r *Room) drop(id string) {
	m, ok := r.members[id]
	if !ok {
		return
	}
	close(m.outbox)
	delete(r.members, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Room) shutdown() {
	for _, id := range append([]string(nil), r.order...) {
		r.drop(id)
	}
	r.cancel()
}

func (r *Room) copySlots() map[replica.Slot]string {
	out := make(map[replica.Slot]string, len(r.slots))
	for k, v := range r.slots {
		out[k] = v
	}
	return out
}

func (r *Room) participants() []replica.Participant {
	out := make([]replica.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id].participant.Clone())
	}
	return out
}

func (r *Room) view() View {
	return View{
		Code:         r.code,
		Slots:        r.copySlots(),
		Participants: r.participants(),
		Writes:       r.writes,
	}
}
