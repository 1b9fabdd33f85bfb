package analytics

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// Sink receives committed ledger transactions and resolved game outcomes.
// Delivery is best effort: the ledger is the source of truth.
type Sink interface {
	RecordTransaction(ctx context.Context, tx *entities.Transaction) error
	RecordOutcome(ctx context.Context, outcome *entities.Outcome) error
}

// Maintainer is implemented by sinks with time-partitioned storage
type Maintainer interface {
	RotateIndices(ctx context.Context, now time.Time) error
	PruneOldIndices(ctx context.Context, now time.Time) error
}

// NoopSink discards everything
type NoopSink struct{}

func (NoopSink) RecordTransaction(context.Context, *entities.Transaction) error { return nil }
func (NoopSink) RecordOutcome(context.Context, *entities.Outcome) error         { return nil }
