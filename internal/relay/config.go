package relay

import (
	"time"

	"github.com/bloops-games/balloonbomb/internal/database"
)

type Config struct {
	Debug bool `envconfig:"BALLOON_DEBUG" default:"false"`

	// Port for the websocket endpoint, REST API and health check
	Port string `envconfig:"BALLOON_PORT" default:"8080"`

	// Number of rooms whose archived scores are kept in memory
	CacheSize int `envconfig:"BALLOON_CACHE_SIZE" default:"256"`

	// Frames buffered per client before it is considered slow and dropped
	OutboxSize int `envconfig:"BALLOON_OUTBOX_SIZE" default:"64"`

	// Largest frame accepted from a client
	ReadLimit int64 `envconfig:"BALLOON_READ_LIMIT" default:"1048576"`

	// Origins allowed to open a websocket, e.g. "teams.microsoft.com"
	OriginPatterns []string `envconfig:"BALLOON_ORIGIN_PATTERNS"`

	HelloTimeout time.Duration `envconfig:"BALLOON_HELLO_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"BALLOON_WRITE_TIMEOUT" default:"5s"`
	DB           database.Config
}

func (c Config) withDefaults() Config {
	if c.OutboxSize <= 0 {
		c.OutboxSize = 64
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}
