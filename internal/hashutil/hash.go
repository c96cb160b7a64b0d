package hashutil

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/bloops-games/balloonbomb/internal/bytespool"
	"github.com/google/uuid"
)

// RoomCodeLen is the length of codes returned by RoomCode.
const RoomCodeLen = 6

// RoomCode returns a short upper-case hex code for a new relay room.
func RoomCode() string {
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	buf.WriteString(strconv.FormatInt(time.Now().UnixNano(), 10))
	buf.WriteString(uuid.New().String())
	sum := sha1.Sum(buf.Bytes())
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:RoomCodeLen]
}

// ValidRoomCode reports whether code looks like one produced by RoomCode.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLen {
		return false
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
