package model

import "time"

// Room is the persisted state of one relay room: the last blob written to
// each slot.
type Room struct {
	Code      string            `json:"code"`
	Slots     map[string]string `json:"slots"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func NewRoom(code string) Room {
	now := time.Now()
	return Room{Code: code, Slots: map[string]string{}, CreatedAt: now, UpdatedAt: now}
}
