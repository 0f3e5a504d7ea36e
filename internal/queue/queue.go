package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"playlist-digest/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeDigest TaskType = "digest"
)

// Task represents a unit of work handed from the gateway to a worker.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry enqueues task, retrying failed publishes on the policy's
// schedule.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, policy retry.Policy) error {
	policy = policy.Normalize()
	var b backoff.BackOff = backoff.WithMaxRetries(policy.NewSchedule(nil), uint64(policy.MaxAttempts-1))
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return q.Enqueue(ctx, task)
	}, backoff.WithContext(b, ctx))
}
