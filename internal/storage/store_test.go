package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Segments map[int]int `json:"segments"`
	Note     string      `json:"note"`
}

func TestSQLStore_SaveLoadSnapshots(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	codec := Codec{Compress: true}

	in := snapshot{Segments: map[int]int{1: 10, 2: 20}, Note: "first"}
	require.NoError(t, Save(ctx, store, codec, Key("r1", "domain"), in))

	// Overwrite keeps a single row per key.
	in.Note = "second"
	require.NoError(t, Save(ctx, store, codec, Key("r1", "domain"), in))
	require.NoError(t, Save(ctx, store, Codec{}, Key("r1", "partition"), map[string]int{"type1": 3}))
	require.NoError(t, Save(ctx, store, codec, Key("r2", "domain"), in))

	var out snapshot
	require.NoError(t, Load(ctx, store, codec, Key("r1", "domain"), &out))
	assert.Equal(t, in, out)

	// Uncompressed blobs decode with any codec.
	var counts map[string]int
	require.NoError(t, Load(ctx, store, codec, Key("r1", "partition"), &counts))
	assert.Equal(t, 3, counts["type1"])

	keys, err := store.List(ctx, "run/r1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"run/r1/domain", "run/r1/partition"}, keys)

	require.NoError(t, store.Delete(ctx, "run/r1/"))
	_, err = store.Get(ctx, Key("r1", "domain"))
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = store.List(ctx, "run/")
	require.NoError(t, err)
	assert.Equal(t, []string{"run/r2/domain"}, keys)
}

func TestSQLStore_PutBatch(t *testing.T) {
	store, err := NewSQLStore("sqlite3", filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.PutBatch(ctx, map[string][]byte{
		"run/a/x": []byte(`1`),
		"run/a/y": []byte(`2`),
	}))

	data, err := store.Get(ctx, "run/a/y")
	require.NoError(t, err)
	assert.Equal(t, []byte(`2`), data)
}

// putLog is a SnapshotStore without batch support that records Put order.
type putLog struct {
	keys []string
	data map[string][]byte
}

func (p *putLog) Put(ctx context.Context, key string, data []byte) error {
	p.keys = append(p.keys, key)
	p.data[key] = data
	return nil
}

func (p *putLog) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := p.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (p *putLog) List(ctx context.Context, prefix string) ([]string, error) { return p.keys, nil }
func (p *putLog) Delete(ctx context.Context, prefix string) error           { return nil }

func TestSaveBatch(t *testing.T) {
	ctx := context.Background()
	items := map[string]any{
		Key("r1", "params"):         map[string]int{"type1": 3},
		Key("r1", "classification"): map[int]int{1: 10},
	}

	t.Run("Batch store", func(t *testing.T) {
		store, err := NewSQLStore("sqlite3", filepath.Join(t.TempDir(), "batch.db"))
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, SaveBatch(ctx, store, Codec{Compress: true}, items))
		var out map[int]int
		require.NoError(t, Load(ctx, store, Codec{}, Key("r1", "classification"), &out))
		assert.Equal(t, map[int]int{1: 10}, out)
	})

	t.Run("Plain store falls back to ordered puts", func(t *testing.T) {
		store := &putLog{data: map[string][]byte{}}
		require.NoError(t, SaveBatch(ctx, store, Codec{}, items))
		assert.Equal(t, []string{"run/r1/classification", "run/r1/params"}, store.keys)

		var out map[string]int
		require.NoError(t, Load(ctx, store, Codec{}, Key("r1", "params"), &out))
		assert.Equal(t, 3, out["type1"])
	})

	t.Run("Encode failure", func(t *testing.T) {
		store := &putLog{data: map[string][]byte{}}
		err := SaveBatch(ctx, store, Codec{}, map[string]any{"run/r1/bad": make(chan int)})
		assert.ErrorContains(t, err, "run/r1/bad")
		assert.Empty(t, store.keys)
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: "postgres"}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &SQLStore{driver: "sqlite3"}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestSplitKey(t *testing.T) {
	run, stage, ok := SplitKey(Key("abc", "partition"))
	require.True(t, ok)
	assert.Equal(t, "abc", run)
	assert.Equal(t, "partition", stage)

	_, _, ok = SplitKey("other/abc")
	assert.False(t, ok)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.ErrorContains(t, err, "unknown storage driver")
}

// Requires a reachable Redis; set MGBBHO_TEST_REDIS to host:port or a URL.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MGBBHO_TEST_REDIS")
	if addr == "" {
		t.Skip("MGBBHO_TEST_REDIS not set")
	}
	store, err := Open("redis", addr)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	runID := "test-" + filepath.Base(t.TempDir())
	defer store.Delete(ctx, Key(runID, ""))

	require.NoError(t, Save(ctx, store, Codec{Compress: true}, Key(runID, "domain"), map[int]int{1: 10}))
	require.NoError(t, Save(ctx, store, Codec{}, Key(runID, "partition"), map[int]int{2: 20}))

	keys, err := store.List(ctx, Key(runID, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{Key(runID, "domain"), Key(runID, "partition")}, keys)

	var out map[int]int
	require.NoError(t, Load(ctx, store, Codec{}, Key(runID, "domain"), &out))
	assert.Equal(t, map[int]int{1: 10}, out)

	require.NoError(t, store.Delete(ctx, Key(runID, "")))
	_, err = store.Get(ctx, Key(runID, "domain"))
	assert.ErrorIs(t, err, ErrNotFound)
}
