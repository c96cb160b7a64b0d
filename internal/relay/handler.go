package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(s.ctx).Named("relay.handleWS")

	code := r.URL.Query().Get("room")
	if code == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	room, err := s.hub.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.config.OriginPatterns})
	if err != nil {
		logger.Warnf("accept websocket: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "relay closed")
	conn.SetReadLimit(s.config.ReadLimit)

	participant, err := s.readHello(r.Context(), conn)
	if err != nil {
		logger.Debugf("hello: %v", err)
		conn.Close(websocket.StatusPolicyViolation, "expected hello")
		return
	}

	id := uuid.New().String()
	outbox := make(chan []byte, s.config.OutboxSize)
	if !room.send(join{id: id, participant: participant, outbox: outbox}) {
		conn.Close(websocket.StatusGoingAway, "room closed")
		return
	}
	defer room.send(leave{id: id})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeLoop(ctx, cancel, conn, outbox)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					logger.Debugf("read from %s: %v", participant.DisplayName, err)
				}
			}
			return
		}

		frame, err := Decode(data)
		if err != nil {
			s.writeError(ctx, conn, Frame{}, "bad json")
			continue
		}

		switch frame.T {
		case FrameSet:
			if !validSlot(frame.Slot) {
				s.writeError(ctx, conn, frame, fmt.Sprintf("unknown slot %q", frame.Slot))
				continue
			}
			room.send(setSlot{from: id, ref: frame.Ref, slot: frame.Slot, value: frame.Value})

		case FrameEvent:
			if len(frame.Payload) == 0 {
				s.writeError(ctx, conn, frame, "empty event")
				continue
			}
			room.send(broadcastEvent{from: id, payload: frame.Payload})

		default:
			s.writeError(ctx, conn, frame, fmt.Sprintf("unknown frame %q", frame.T))
		}
	}
}

func (s *Server) readHello(ctx context.Context, conn *websocket.Conn) (replica.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.HelloTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return replica.Participant{}, fmt.Errorf("read: %w", err)
	}
	frame, err := Decode(data)
	if err != nil {
		return replica.Participant{}, err
	}
	if frame.T != FrameHello || frame.Identity == nil {
		return replica.Participant{}, fmt.Errorf("unexpected %q frame", frame.T)
	}

	identity := frame.Identity
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	return replica.Participant{
		ID:          identity.ID,
		DisplayName: identity.DisplayName,
		Roles:       append([]replica.Role(nil), identity.Roles...),
		State:       replica.StateOnline,
	}, nil
}

// writeLoop drains the outbox until the room closes it, then closes the
// connection so the read loop exits.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbox <-chan []byte) {
	defer cancel()
	for frame := range outbox {
		wctx, wcancel := context.WithTimeout(ctx, s.config.WriteTimeout)
		err := conn.Write(wctx, websocket.MessageText, frame)
		wcancel()
		if err != nil {
			return
		}
	}
	conn.Close(websocket.StatusGoingAway, "dropped by relay")
}

// writeError rejects the frame cause, echoing its ref and slot.
func (s *Server) writeError(ctx context.Context, conn *websocket.Conn, cause Frame, text string) {
	frame, err := Encode(Frame{T: FrameError, Ref: cause.Ref, Slot: cause.Slot, Error: text})
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, frame)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
