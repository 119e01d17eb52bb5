package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/pkg/logger"
)

// BlobWorker consumes blob cleanup tasks queued in Redis by AsyncQueue.
type BlobWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux

	mu      sync.Mutex
	running bool
}

// NewBlobWorker returns nil when Redis is disabled.
func NewBlobWorker(cfg *config.RedisConfig, cleaner *BlobCleaner) *BlobWorker {
	if !cfg.Enabled {
		return nil
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	server := asynq.NewServer(redisClientOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Error().Err(err).Str("type", task.Type()).Int("retried", retried).Msg("[Worker] task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeBlobCleanup, blobCleanupHandler(cleaner))
	return &BlobWorker{server: server, mux: mux}
}

// blobCleanupHandler decodes a task and hands it to cleaner. Payloads that
// cannot be decoded are not retried.
func blobCleanupHandler(cleaner *BlobCleaner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var task BlobCleanupTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		return cleaner.Process(ctx, &task)
	}
}

func (w *BlobWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	logger.Infof("[Worker] blob cleanup worker started")
	return nil
}

// Stop waits for running tasks, then disconnects.
func (w *BlobWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] blob cleanup worker stopped")
}
