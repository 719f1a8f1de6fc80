package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *Queue, id string, want Status) Entry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e, ok, err := q.Lookup(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok)
		if e.Status == want {
			return e
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return Entry{}
}

func TestQueueRunsTask(t *testing.T) {
	q := NewQueue(NewMemoryStore(time.Minute), 4, time.Minute)
	q.Start(1)
	defer q.Shutdown()

	id, ok := q.Submit(func(ctx context.Context) (interface{}, error) {
		return map[string]string{"filename": "out.pdf"}, nil
	})
	require.True(t, ok)
	require.NotEmpty(t, id)

	e := waitForStatus(t, q, id, StatusDone)
	assert.JSONEq(t, `{"filename":"out.pdf"}`, string(e.Result))
	assert.Empty(t, e.Error)
}

func TestQueueRecordsFailure(t *testing.T) {
	q := NewQueue(NewMemoryStore(time.Minute), 4, time.Minute)
	q.Start(1)
	defer q.Shutdown()

	id, ok := q.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("conversion blew up")
	})
	require.True(t, ok)

	e := waitForStatus(t, q, id, StatusFailed)
	assert.Equal(t, "conversion blew up", e.Error)
}

func TestSubmitFullQueue(t *testing.T) {
	// No workers started, so the channel fills up.
	q := NewQueue(NewMemoryStore(time.Minute), 1, time.Minute)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	_, ok := q.Submit(noop)
	assert.True(t, ok)
	_, ok = q.Submit(noop)
	assert.False(t, ok)
}

func TestLookupUnknownJob(t *testing.T) {
	q := NewQueue(NewMemoryStore(time.Minute), 1, time.Minute)
	_, ok, err := q.Lookup(context.Background(), "nope")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)

	now := time.Now().UTC().Truncate(time.Second)
	entry := Entry{ID: "abc", Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Put(context.Background(), entry))

	got, ok, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusQueued, got.Status)
	assert.True(t, got.CreatedAt.Equal(now))

	_, ok, err = store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// Entries expire with the store TTL.
	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreEvictsExpiredEntries(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	stale := time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, s.Put(context.Background(), Entry{ID: "old", Status: StatusDone, UpdatedAt: stale}))

	// A later write sweeps expired entries out of the map.
	require.NoError(t, s.Put(context.Background(), Entry{ID: "fresh", Status: StatusDone, UpdatedAt: time.Now().UTC()}))
	s.mu.RLock()
	_, held := s.m["old"]
	s.mu.RUnlock()
	assert.False(t, held)

	// Reads also drop an entry that expired since the last write.
	require.NoError(t, s.Put(context.Background(), Entry{ID: "late", Status: StatusFailed, UpdatedAt: stale}))
	_, ok, err := s.Get(context.Background(), "late")
	require.NoError(t, err)
	assert.False(t, ok)
	s.mu.RLock()
	_, held = s.m["late"]
	s.mu.RUnlock()
	assert.False(t, held)

	got, ok, err := s.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusDone, got.Status)
}
