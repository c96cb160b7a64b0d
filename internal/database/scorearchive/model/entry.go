package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func NewEntry(room string, restartLog json.RawMessage) Entry {
	return Entry{ID: uuid.New(), Room: room, RestartLog: restartLog, CreatedAt: time.Now()}
}

// Entry is a snapshot of a room's restart log taken when it changed.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Room       string          `json:"room"`
	RestartLog json.RawMessage `json:"restartLog"`
	CreatedAt  time.Time       `json:"createdAt"`
}
