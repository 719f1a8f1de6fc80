// Package jobs runs heavy conversions in the background and tracks their
// status so clients can poll instead of holding a request open.
package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	u "docbelt/internal/utils"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Entry is the persisted job record returned to pollers.
type Entry struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists job entries.
type Store interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (Entry, bool, error)
}

// Task does the actual work and returns a JSON-serializable result.
type Task func(ctx context.Context) (interface{}, error)

type job struct {
	id   string
	task Task
}

// Queue dispatches tasks to a fixed pool of workers.
type Queue struct {
	store Store
	ttl   time.Duration
	ch    chan job
	wg    sync.WaitGroup
	stop  chan struct{}
	once  sync.Once
}

// NewQueue creates a queue backed by the given store. Start must be called
// before submitting.
func NewQueue(store Store, size int, ttl time.Duration) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		store: store,
		ttl:   ttl,
		ch:    make(chan job, size),
		stop:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (q *Queue) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Shutdown stops accepting work and waits for in-flight jobs to finish.
func (q *Queue) Shutdown() {
	q.once.Do(func() { close(q.stop) })
	q.wg.Wait()
}

// Submit queues a task and returns its job ID, or false when the queue is
// full.
func (q *Queue) Submit(task Task) (string, bool) {
	id := uuid.New().String()
	now := time.Now().UTC()
	entry := Entry{ID: id, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	if err := q.store.Put(context.Background(), entry); err != nil {
		u.Error("Failed to persist job entry", "job_id", id, "error", err)
		return "", false
	}
	select {
	case q.ch <- job{id: id, task: task}:
		return id, true
	default:
		return "", false
	}
}

// Lookup fetches a job entry by ID.
func (q *Queue) Lookup(ctx context.Context, id string) (Entry, bool, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stop:
			return
		case j := <-q.ch:
			q.run(j)
		}
	}
}

func (q *Queue) run(j job) {
	ctx := context.Background()
	q.update(ctx, j.id, func(e *Entry) {
		e.Status = StatusProcessing
	})

	result, err := j.task(ctx)
	if err != nil {
		u.Warn("Background job failed", "job_id", j.id, "error", err)
		q.update(ctx, j.id, func(e *Entry) {
			e.Status = StatusFailed
			e.Error = err.Error()
		})
		return
	}

	raw, merr := json.Marshal(result)
	if merr != nil {
		q.update(ctx, j.id, func(e *Entry) {
			e.Status = StatusFailed
			e.Error = merr.Error()
		})
		return
	}
	q.update(ctx, j.id, func(e *Entry) {
		e.Status = StatusDone
		e.Result = raw
	})
}

func (q *Queue) update(ctx context.Context, id string, fn func(*Entry)) {
	e, ok, err := q.store.Get(ctx, id)
	if err != nil || !ok {
		return
	}
	fn(&e)
	e.UpdatedAt = time.Now().UTC()
	if err := q.store.Put(ctx, e); err != nil {
		u.Error("Failed to update job entry", "job_id", id, "error", err)
	}
}

// --- stores ---

// RedisStore keeps job entries in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps a Redis client as a job store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(id string) string { return "job:" + id }

func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(e.ID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// MemoryStore keeps job entries in process memory. It backs tests and
// deployments without Redis, with the same expiry semantics as the Redis
// store: an entry lives ttl past its last update.
type MemoryStore struct {
	mu  sync.RWMutex
	m   map[string]Entry
	ttl time.Duration
}

// NewMemoryStore creates an empty in-memory job store. Expired entries are
// evicted on the next write.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{m: make(map[string]Entry), ttl: ttl}
}

func (s *MemoryStore) expired(e Entry, now time.Time) bool {
	return now.Sub(e.UpdatedAt) > s.ttl
}

func (s *MemoryStore) Put(ctx context.Context, e Entry) error {
	now := time.Now().UTC()
	s.mu.Lock()
	for id, old := range s.m {
		if s.expired(old, now) {
			delete(s.m, id)
		}
	}
	s.m[e.ID] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if ok && s.expired(e, time.Now().UTC()) {
		s.mu.Lock()
		delete(s.m, id)
		s.mu.Unlock()
		return Entry{}, false, nil
	}
	return e, ok, nil
}
