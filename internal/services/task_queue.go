package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/pkg/logger"
)

const (
	TaskTypeBlobCleanup = "blob:cleanup"
)

// BlobCleanupTask lists stored objects to remove once their records are
// gone.
type BlobCleanupTask struct {
	ProjectID   string   `json:"projectId"`
	ProjectCode string   `json:"projectCode"`
	Paths       []string `json:"paths"`
}

// TaskQueue runs background work outside the request.
type TaskQueue interface {
	Enqueue(task *BlobCleanupTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	Close() error
}

// InitTaskQueue picks the Redis-backed queue when configured and reachable,
// and the in-process queue otherwise.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	if !cfg.Redis.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(&cfg.Redis)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client   *asynq.Client
	maxRetry int
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &AsyncQueue{client: client, maxRetry: maxRetry}, nil
}

func (q *AsyncQueue) Enqueue(task *BlobCleanupTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(asynq.NewTask(TaskTypeBlobCleanup, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(q.maxRetry),
	)
	if err != nil {
		return err
	}

	logger.Info().Str("task_id", info.ID).Str("project", task.ProjectCode).
		Int("objects", len(task.Paths)).Msg("[AsyncQueue] blob cleanup enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs each task on its own goroutine in this process. Tasks
// still running at shutdown are waited for by Close.
type SyncQueue struct {
	mu        sync.RWMutex
	processor func(context.Context, *BlobCleanupTask) error
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor func(context.Context, *BlobCleanupTask) error) {
	q.mu.Lock()
	q.processor = processor
	q.mu.Unlock()
}

func (q *SyncQueue) Enqueue(task *BlobCleanupTask) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Warn().Str("project", task.ProjectCode).Msg("[SyncQueue] no processor set, task dropped")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := processor(context.Background(), task); err != nil {
			logger.Error().Err(err).Str("project", task.ProjectCode).Msg("[SyncQueue] task processing failed")
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}

// BlobCleaner removes the objects named by a cleanup task. A missing blob
// store makes every task a no-op.
type BlobCleaner struct {
	blobs BlobStore
}

func NewBlobCleaner(blobs BlobStore) *BlobCleaner {
	return &BlobCleaner{blobs: blobs}
}

// Process removes every path, carrying on past failures, and returns the
// first error so the queue can retry.
func (b *BlobCleaner) Process(ctx context.Context, task *BlobCleanupTask) error {
	if b.blobs == nil {
		return nil
	}
	var firstErr error
	removed := 0
	for _, p := range task.Paths {
		if err := b.blobs.Remove(ctx, p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("[BlobCleanup] remove failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	logger.Info().Str("project", task.ProjectCode).Int("removed", removed).Int("total", len(task.Paths)).
		Msg("[BlobCleanup] done")
	return firstErr
}
