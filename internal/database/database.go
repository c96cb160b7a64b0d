package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/balloonbomb/internal/logging"
	bolt "go.etcd.io/bbolt"
)

type Config struct {
	FilePath    string        `envconfig:"BALLOON_DB_FILE_PATH" default:"balloonbomb.db"`
	OpenTimeout time.Duration `envconfig:"BALLOON_DB_OPEN_TIMEOUT" default:"1s"`
}

type DB struct {
	DB *bolt.DB
}

func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("opening db file %s", config.FilePath)

	db, err := bolt.Open(config.FilePath, 0600, &bolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("creating connection DB: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing DB connection")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("error close DB connection: %w", err)
	}

	return nil
}
