package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusQueued  RunStatus = "queued"
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusFailed  RunStatus = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one digest of one playlist.
type Run struct {
	ID         uuid.UUID
	Title      string
	Model      string
	Categories []string
	Videos     int
	Status     RunStatus
	Error      string
	CostUSD    float64
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// ItemResult is the stored outcome of one playlist item.
type ItemResult struct {
	RunID    uuid.UUID
	Ord      int
	VideoID  string
	Title    string
	URL      string
	Status   string
	Category string
	Summary  string
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateRun(ctx context.Context, run Run) (Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error
	FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, costUSD float64, errMsg string) error
	SaveResults(ctx context.Context, runID uuid.UUID, results []ItemResult) error
	ListResults(ctx context.Context, runID uuid.UUID) ([]ItemResult, error)
}
