package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	bolt "go.etcd.io/bbolt"
)

const (
	usersBktName    = "users"
	snapshotBktName = "snapshot"
	snapshotKey     = "articles"
)

// Bolt is a storage that uses BoltDB as a backend.
// It keeps bot users and the last known snapshot of the collection.
type Bolt struct {
	db *bolt.DB
}

// NewBolt creates new Bolt storage.
func NewBolt(dir string) (*Bolt, error) {
	db, err := bolt.Open(path.Join(dir, "newsboard.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make boltdb for %s: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{usersBktName, snapshotBktName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create top-level bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("make buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Put puts user to storage.
func (b *Bolt) Put(_ context.Context, u User) error {
	if err := b.put(usersBktName, u.ChatID, u); err != nil {
		return fmt.Errorf("put user %s: %w", u.ChatID, err)
	}
	return nil
}

// Get returns user from storage.
func (b *Bolt) Get(_ context.Context, chatID string) (u User, err error) {
	if err = b.get(usersBktName, chatID, &u); err != nil {
		return User{}, fmt.Errorf("get user %s: %w", chatID, err)
	}
	return u, nil
}

// List returns users from storage.
func (b *Bolt) List(_ context.Context, req ListRequest) ([]User, error) {
	var result []User
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(usersBktName)).ForEach(func(k, v []byte) error {
			var u User
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("unmarshal user %s: %w", k, err)
			}
			if req.SubscribedOnly && !(u.Subscribed && u.Authorized) {
				return nil
			}
			result = append(result, u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("view storage: %w", err)
	}
	return result, nil
}

// Delete removes user from storage.
func (b *Bolt) Delete(_ context.Context, chatID string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(usersBktName)).Delete([]byte(chatID))
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}
	return nil
}

// SaveSnapshot stores the collection snapshot, replacing the previous one.
func (b *Bolt) SaveSnapshot(_ context.Context, s Snapshot) error {
	if err := b.put(snapshotBktName, snapshotKey, s); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the last stored snapshot.
// ErrNotFound is returned if nothing was stored yet.
func (b *Bolt) LoadSnapshot(context.Context) (s Snapshot, err error) {
	if err = b.get(snapshotBktName, snapshotKey, &s); err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return s, nil
}

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) put(bkt, key string, v any) error {
	bts, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bkt)).Put([]byte(key), bts)
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

func (b *Bolt) get(bkt, key string, v any) error {
	err := b.db.View(func(tx *bolt.Tx) error {
		bts := tx.Bucket([]byte(bkt)).Get([]byte(key))
		if bts == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(bts, v); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("view storage: %w", err)
	}

	return nil
}
