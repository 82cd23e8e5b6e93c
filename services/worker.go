package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const defaultStorageDir = "./data/catalog_imports"

// ImportQueue persists queued payloads on disk and their job IDs in a Redis list.
type ImportQueue struct {
	rdb *redis.Client
	dir string
}

func NewImportQueue(rdb *redis.Client, storageDir string) *ImportQueue {
	if storageDir == "" {
		storageDir = defaultStorageDir
	}
	return &ImportQueue{rdb: rdb, dir: storageDir}
}

// Push writes the payload to <dir>/<id>.csv and appends id to the queue.
func (q *ImportQueue) Push(ctx context.Context, id, raw string) error {
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	path := q.payloadPath(id)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return fmt.Errorf("failed to persist file: %w", err)
	}
	if err := q.rdb.RPush(ctx, queueKey, id).Err(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *ImportQueue) payloadPath(id string) string {
	return filepath.Join(q.dir, filepath.Base(id)+".csv")
}

// StartImportQueueWorker consumes job IDs from the Redis queue and runs the
// persisted payloads through the manager one at a time.
func StartImportQueueWorker(ctx context.Context, q *ImportQueue, m *Manager) {
	if q == nil || q.rdb == nil || m == nil {
		zap.L().Warn("catalog import worker not started: missing dependencies")
		return
	}
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		zap.L().Error("failed to create import storage dir", zap.Error(err))
		return
	}

	go func() {
		zap.L().Info("catalog import worker started", zap.String("queue", queueKey), zap.String("dir", q.dir))
		for {
			select {
			case <-ctx.Done():
				zap.L().Info("catalog import worker stopping")
				return
			default:
			}

			// BLPop with no timeout blocks until an item is available
			res, err := q.rdb.BLPop(ctx, 0, queueKey).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				zap.L().Error("redis BLPop failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(500 * time.Millisecond):
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			q.process(ctx, m, res[1])
		}
	}()
}

func (q *ImportQueue) process(ctx context.Context, m *Manager, id string) {
	path := q.payloadPath(id)
	defer func() { _ = os.Remove(path) }()

	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Error("failed to open queued import", zap.String("job", id), zap.String("path", path), zap.Error(err))
		return
	}
	if err := m.RunQueued(ctx, id, string(data)); err != nil {
		zap.L().Error("queued import did not finish", zap.String("job", id), zap.Error(err))
	}
}
