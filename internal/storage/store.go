package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when no snapshot exists under the key.
var ErrNotFound = errors.New("snapshot not found")

// Store combines snapshot persistence with resource cleanup.
type Store interface {
	SnapshotStore
	Close() error
}

// SnapshotStore persists stage outputs as opaque blobs.
type SnapshotStore interface {
	// Put upserts the blob stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes every key starting with prefix.
	Delete(ctx context.Context, prefix string) error
}

// BatchStore is implemented by stores that can write several snapshots
// atomically.
type BatchStore interface {
	PutBatch(ctx context.Context, items map[string][]byte) error
}

// Key names the snapshot of one stage of one run.
func Key(runID, stage string) string {
	return "run/" + runID + "/" + stage
}

// SplitKey is the inverse of Key.
func SplitKey(key string) (runID, stage string, ok bool) {
	rest, found := strings.CutPrefix(key, "run/")
	if !found {
		return "", "", false
	}
	runID, stage, ok = strings.Cut(rest, "/")
	return runID, stage, ok
}

// Open connects to the store selected by driver: sqlite3, postgres or redis.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite3", "postgres":
		return NewSQLStore(driver, dsn)
	case "redis":
		return NewRedisStore(dsn)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// Save encodes v with c and stores it under key.
func Save(ctx context.Context, s SnapshotStore, c Codec, key string, v any) error {
	data, err := c.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Load reads the blob under key and decodes it into v.
func Load(ctx context.Context, s SnapshotStore, c Codec, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := c.Decode(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SaveBatch encodes every value and stores them together. Stores without
// batch support get one Put per key in key order.
func SaveBatch(ctx context.Context, s SnapshotStore, c Codec, items map[string]any) error {
	encoded := make(map[string][]byte, len(items))
	keys := make([]string, 0, len(items))
	for key, v := range items {
		data, err := c.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		encoded[key] = data
		keys = append(keys, key)
	}

	if b, ok := s.(BatchStore); ok {
		if err := b.PutBatch(ctx, encoded); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		return nil
	}

	sort.Strings(keys)
	for _, key := range keys {
		if err := s.Put(ctx, key, encoded[key]); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return nil
}
