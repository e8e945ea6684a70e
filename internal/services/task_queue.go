package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeEmailDeliver = "email:deliver"

	emailQueueName = "email"
)

// EmailTask references one EmailDelivery row; the row holds the content.
type EmailTask struct {
	DeliveryID uint   `json:"delivery_id"`
	Reference  string `json:"reference"`
}

type EmailProcessor func(context.Context, *EmailTask) error

// TaskQueue defines the interface for email task processing
type TaskQueue interface {
	// Enqueue hands a task off without waiting for it to run
	Enqueue(task *EmailTask) error
	IsAsync() bool
	Close() error
}

// InitTaskQueue builds the queue for cfg: asynq when Redis is enabled and
// reachable, otherwise the in-process queue.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncQueue(&cfg.Redis, cfg.Email.MaxAttempts)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		} else {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
			return queue
		}
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}
	backoff := time.Duration(cfg.Email.RetryBackoffSeconds) * time.Second
	return NewSyncQueue(cfg.Email.MaxAttempts, backoff)
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
	client      *asynq.Client
	maxAttempts int
}

func NewAsyncQueue(cfg *config.RedisConfig, maxAttempts int) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client, maxAttempts: maxAttempts}, nil
}

func (q *AsyncQueue) Enqueue(task *EmailTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	// the first run counts as an attempt
	retries := q.maxAttempts - 1
	if retries < 0 {
		retries = 0
	}

	t := asynq.NewTask(TaskTypeEmailDeliver, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue(emailQueueName),
		asynq.MaxRetry(retries),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return err
	}

	logger.Info().Str("task_id", info.ID).Str("queue", info.Queue).Uint("delivery_id", task.DeliveryID).
		Msg("[AsyncQueue] Task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs tasks on a goroutine inside this process and retries them
// with exponential backoff. A task stops after success, after
// ErrDeliveryExhausted or after maxAttempts runs.
type SyncQueue struct {
	processor   EmailProcessor
	maxAttempts int
	backoff     time.Duration

	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSyncQueue(maxAttempts int, backoff time.Duration) *SyncQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncQueue{maxAttempts: maxAttempts, backoff: backoff, ctx: ctx, cancel: cancel}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor EmailProcessor) {
	q.mu.Lock()
	q.processor = processor
	q.mu.Unlock()
}

func (q *SyncQueue) Enqueue(task *EmailTask) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task for delivery %d dropped", task.DeliveryID)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run(processor, task)
	}()
	return nil
}

func (q *SyncQueue) run(processor EmailProcessor, task *EmailTask) {
	delay := q.backoff
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		err := processor(q.ctx, task)
		if err == nil {
			return
		}
		if errors.Is(err, ErrDeliveryExhausted) || attempt == q.maxAttempts {
			logger.Warnf("[SyncQueue] delivery %d gave up after attempt %d: %v", task.DeliveryID, attempt, err)
			return
		}

		logger.Infof("[SyncQueue] delivery %d attempt %d failed, retrying in %s: %v", task.DeliveryID, attempt, delay, err)
		select {
		case <-time.After(delay):
		case <-q.ctx.Done():
			return
		}
		delay *= 2
	}
}

// Wait blocks until every enqueued task has finished.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

func (q *SyncQueue) IsAsync() bool { return false }

// Close stops pending backoff waits and waits for running tasks.
func (q *SyncQueue) Close() error {
	q.cancel()
	q.wg.Wait()
	return nil
}
