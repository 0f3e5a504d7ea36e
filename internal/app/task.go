package app

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"playlist-digest/internal/queue"
	"playlist-digest/internal/source"
)

// DigestTask is the queue payload the gateway hands to a worker. The
// transcripts travel with the task so workers need no shared storage.
type DigestTask struct {
	RunID      uuid.UUID      `json:"run_id"`
	Title      string         `json:"title"`
	Model      string         `json:"model"`
	Categories string         `json:"categories,omitempty"`
	Videos     int            `json:"videos,omitempty"`
	BatchSize  int            `json:"batch_size,omitempty"`
	Archive    source.Archive `json:"archive"`
}

// NewDigestTask wraps t in a queue task.
func NewDigestTask(t DigestTask) (queue.Task, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return queue.Task{}, fmt.Errorf("marshal digest task: %w", err)
	}
	return queue.Task{Type: queue.TaskTypeDigest, Payload: body}, nil
}

// DecodeDigestTask reads the payload of a digest task.
func DecodeDigestTask(task queue.Task) (DigestTask, error) {
	var t DigestTask
	if err := json.Unmarshal(task.Payload, &t); err != nil {
		return DigestTask{}, fmt.Errorf("decode digest task %s: %w", task.ID, err)
	}
	if t.RunID == uuid.Nil {
		return DigestTask{}, fmt.Errorf("digest task %s has no run id", task.ID)
	}
	return t, nil
}
