package database

import (
	"encoding/json"
	"fmt"

	"github.com/bloops-games/balloonbomb/internal/byteutil"
	"github.com/bloops-games/balloonbomb/internal/cache"
	"github.com/bloops-games/balloonbomb/internal/database"
	"github.com/bloops-games/balloonbomb/internal/database/scorearchive/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "archive"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func (db *DB) bucket(room string) []byte {
	return []byte(prefix + ":" + room)
}

// key orders entries by creation time; the id breaks ties.
func (db *DB) key(e model.Entry) ([]byte, error) {
	binaryID, err := e.ID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("uuid binary: %w", err)
	}
	return append(byteutil.EncodeUint64(uint64(e.CreatedAt.UnixNano())), binaryID...), nil
}

// FetchByRoom returns a room's snapshots, oldest first.
func (db *DB) FetchByRoom(room string) ([]model.Entry, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(room); ok {
			return v.([]model.Entry), nil
		}
	}

	var list []model.Entry
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bucket(room))
		if b == nil {
			return ErrNotFound
		}

		if err := b.ForEach(func(k, v []byte) error {
			var entry model.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, entry)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(room, list)
	}

	return list, nil
}

// Latest returns the newest snapshot of room.
func (db *DB) Latest(room string) (model.Entry, error) {
	list, err := db.FetchByRoom(room)
	if err != nil {
		return model.Entry{}, err
	}
	if len(list) == 0 {
		return model.Entry{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

func (db *DB) Add(e model.Entry) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	b, err := tx.CreateBucketIfNotExists(db.bucket(e.Room))
	if err != nil {
		return fmt.Errorf("can not create bucket %s: %w", e.Room, err)
	}

	key, err := db.key(e)
	if err != nil {
		return err
	}

	bytes, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(key, bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(e.Room)
	}

	return nil
}
