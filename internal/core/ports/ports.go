package ports

import (
	"context"
	"time"

	"scopeindex/internal/engine/scope"
)

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

type IndexJobKind string

const (
	// JobSymbols extracts and stores the symbols of one file.
	JobSymbols IndexJobKind = "symbols"
)

// IndexJob is a unit of deferred project index work.
type IndexJob struct {
	Kind     IndexJobKind
	Path     string
	Enqueued time.Time
}

// IndexQueuePort is a bounded FIFO of deferred index jobs. Enqueue never
// blocks; a full or closed queue drops the job.
type IndexQueuePort interface {
	Enqueue(job IndexJob) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]IndexJob, error)
	Close() error
	Len() int
}

// ScopeStorePort persists extracted scopes and answers completion queries.
type ScopeStorePort interface {
	ReplaceScopes(ctx context.Context, parser, filename string, scopes []scope.Scope) error
	DeleteScopesByFilename(ctx context.Context, filename string) error
	QueryCompletions(ctx context.Context, parser, filename string, line, col int, prefix string) ([]string, error)
	ScopesForFile(ctx context.Context, filename string) ([]scope.Scope, error)
	Close() error
}

// ChangeHandler receives the batched paths of files that were saved,
// reloaded or removed.
type ChangeHandler interface {
	HandleChanges(ctx context.Context, paths []string) error
}
