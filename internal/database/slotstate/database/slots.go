package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/balloonbomb/internal/database"
	"github.com/bloops-games/balloonbomb/internal/database/slotstate/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "rooms"

var (
	ErrEntryNotFound  = fmt.Errorf("not found")
	ErrBucketNotFound = fmt.Errorf("bucket not found")
)

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Fetch(code string) (model.Room, error) {
	var room model.Room

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return ErrEntryNotFound
		}

		v := b.Get([]byte(code))
		if v == nil {
			return ErrEntryNotFound
		}

		if err := json.Unmarshal(v, &room); err != nil {
			return fmt.Errorf("json unmarshal error, %w", err)
		}
		return nil
	}); err != nil {
		return room, fmt.Errorf("view transaction error: %w", err)
	}

	if room.Slots == nil {
		room.Slots = map[string]string{}
	}

	return room, nil
}

func (db *DB) FetchAll() ([]model.Room, error) {
	var list []model.Room

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return nil
		}

		if err := b.ForEach(func(k, v []byte) error {
			var room model.Room
			if err := json.Unmarshal(v, &room); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, room)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

// Put replaces the stored room.
func (db *DB) Put(room model.Room) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b, err := tx.CreateBucketIfNotExists([]byte(prefix))
	if err != nil {
		return fmt.Errorf("can not create bucket: %w", err)
	}

	bytes, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put([]byte(room.Code), bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (db *DB) Delete(code string) error {
	return db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(code)); err != nil {
			return fmt.Errorf("delete %s: %w", code, err)
		}
		return nil
	})
}

func (db *DB) Clean() error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	if err := tx.DeleteBucket([]byte(prefix)); err != nil {
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return ErrBucketNotFound
		}
		return fmt.Errorf("delete bucket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
