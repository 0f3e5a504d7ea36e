package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"playlist-digest/internal/retry"
)

// NewNATS constructs a thin NATS-based queue. Failed tasks are re-published
// after the delay policy gives for their attempt count.
func NewNATS(log *slog.Logger, nc *nats.Conn, policy retry.Policy) Queue {
	return &natsQueue{log: log, nc: nc, policy: policy.Normalize()}
}

type natsQueue struct {
	log    *slog.Logger
	nc     *nats.Conn
	policy retry.Policy
}

func subjectFor(t TaskType) string {
	return "tasks." + string(t)
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subjectFor(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subjectFor(taskType), group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	if err := handler(ctx, task); err != nil {
		q.retryTask(ctx, task, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) {
	next, ok := nextAttempt(task, q.policy, time.Now(), rand.Float64())
	if !ok {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", next.Attempts, "original_err", handlerErr)
		return
	}
	q.log.Warn("task failed, re-enqueueing", "id", task.ID, "type", task.Type, "attempt", next.Attempts, "not_before", next.NotBefore, "err", handlerErr)
	if err := q.Enqueue(ctx, next); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
	}
}

// nextAttempt bumps the attempt counter and schedules the next delivery.
// ok is false once the task has used its attempt budget.
func nextAttempt(task Task, policy retry.Policy, now time.Time, u float64) (Task, bool) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = policy.MaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(policy.Delay(task.Attempts-1, u))
	return task, true
}
