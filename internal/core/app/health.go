package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health probes the store and reports the project index size.
func (ix *Indexer) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if _, err := ix.store.ScopesForFile(ctx, ""); err != nil {
		status.Status = "degraded"
		status.Components["scope_store"] = err.Error()
	} else {
		status.Components["scope_store"] = "ok"
	}

	status.Components["project_index"] = fmt.Sprintf("ok (%d files, %d symbols)", len(ix.project.Filenames()), len(ix.project.AllSymbols()))
	status.Components["extractors"] = fmt.Sprintf("ok (%d extensions)", len(ix.registry.Extensions()))

	ix.mu.RLock()
	watching := ix.watcher != nil
	ix.mu.RUnlock()
	if watching {
		status.Components["watcher"] = "ok"
	}
	return status
}
