package scheduler

import (
	"context"
	"time"
)

// DefaultPruneInterval is how often old analytics indices are pruned
const DefaultPruneInterval = 7 * 24 * time.Hour

// IndexMaintainer is the analytics index lifecycle, implemented by the
// Elasticsearch sink
type IndexMaintainer interface {
	RotateIndices(ctx context.Context, now time.Time) error
	PruneOldIndices(ctx context.Context, now time.Time) error
}

// AddIndexTasks schedules index rotation every rotation (daily when zero) and
// pruning every DefaultPruneInterval
func AddIndexTasks(s *Scheduler, repo IndexMaintainer, rotation time.Duration, clock func() time.Time) {
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	s.AddTask("index_rotation", rotation, func(ctx context.Context) error {
		return repo.RotateIndices(ctx, clock())
	})
	s.AddTask("index_pruning", DefaultPruneInterval, func(ctx context.Context) error {
		return repo.PruneOldIndices(ctx, clock())
	})
}
