package relay

import (
	"encoding/json"
	"fmt"

	"github.com/bloops-games/balloonbomb/internal/bytespool"
	"github.com/bloops-games/balloonbomb/internal/replica"
)

// Frame kinds.
const (
	// client -> relay
	FrameHello = "hello"
	FrameSet   = "set"
	FrameEvent = "event"

	// relay -> client
	FrameSnapshot = "snapshot"
	FrameSlot     = "slot"
	FramePresence = "presence"
	FrameError    = "error"
)

// Frame is the single JSON message shape exchanged over the websocket. Only
// the fields relevant to T are set. Ref tags a set; the relay copies it onto
// the resulting slot echo, or onto the error frame when the set is rejected.
type Frame struct {
	T            string                  `json:"t"`
	Ref          string                  `json:"ref,omitempty"`
	Slot         replica.Slot            `json:"slot,omitempty"`
	Value        string                  `json:"value,omitempty"`
	Slots        map[replica.Slot]string `json:"slots,omitempty"`
	Payload      json.RawMessage         `json:"payload,omitempty"`
	Identity     *replica.Identity       `json:"identity,omitempty"`
	Participant  *replica.Participant    `json:"participant,omitempty"`
	Participants []replica.Participant   `json:"participants,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// Encode marshals f through a pooled buffer.
func Encode(f Frame) ([]byte, error) {
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	if err := json.NewEncoder(buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.T, err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode frame: %w", err)
	}
	if f.T == "" {
		return f, fmt.Errorf("decode frame: missing type")
	}
	return f, nil
}

func validSlot(slot replica.Slot) bool {
	for _, s := range replica.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
