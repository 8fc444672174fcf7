package core

import (
	"time"

	"github.com/google/uuid"
)

// BuildStatus is the terminal classification of a build.
type BuildStatus string

const (
	StatusSuccess BuildStatus = "SUCCESS"
	StatusFailed  BuildStatus = "FAILED"
)

// BuildOutcome is the result of one build, keyed by commit SHA in the result store.
type BuildOutcome struct {
	CommitSHA   string      `json:"commit_sha" db:"commit_sha"`
	RepoOwner   string      `json:"repo_owner" db:"repo_owner"`
	RepoName    string      `json:"repo_name" db:"repo_name"`
	BranchName  string      `json:"branch_name" db:"branch_name"`
	Status      BuildStatus `json:"status" db:"status"`
	LogText     string      `json:"log_text,omitempty" db:"log_text"`
	StartedAt   time.Time   `json:"started_at" db:"started_at"`
	CompletedAt time.Time   `json:"completed_at" db:"completed_at"`

	// Err is the classified cause of a FAILED outcome. It is not persisted.
	Err error `json:"-" db:"-"`
}

// Succeeded reports whether the build passed.
func (o *BuildOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Duration is the wall-clock time of the build.
func (o *BuildOutcome) Duration() time.Duration {
	return o.CompletedAt.Sub(o.StartedAt)
}

// WorkerTask pairs a JobRequest with its execution state. It is owned by exactly
// one worker and discarded once the outcome has been handled.
type WorkerTask struct {
	ID         string
	Request    *JobRequest
	WorkerID   int
	EnqueuedAt time.Time
	StartedAt  time.Time
}

// NewWorkerTask creates a task with a fresh identifier.
func NewWorkerTask(req *JobRequest) *WorkerTask {
	return &WorkerTask{
		ID:         uuid.NewString(),
		Request:    req,
		EnqueuedAt: time.Now(),
	}
}
