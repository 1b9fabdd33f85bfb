package analytics

import (
	"context"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// Publisher forwards records to a sink and logs failures instead of returning them
type Publisher struct {
	sink   Sink
	logger *logging.Logger
}

// NewPublisher wraps sink; a nil sink publishes nowhere
func NewPublisher(sink Sink) *Publisher {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Publisher{sink: sink, logger: logging.Default.With("analytics")}
}

// Transactions publishes committed transactions, skipping nils
func (p *Publisher) Transactions(ctx context.Context, txs ...*entities.Transaction) {
	if p == nil {
		return
	}
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		if err := p.sink.RecordTransaction(ctx, tx); err != nil {
			p.logger.Warn("Failed to record transaction %s for %s: %v", tx.ID, tx.AccountID, err)
		}
	}
}

// Outcome publishes a resolved game outcome
func (p *Publisher) Outcome(ctx context.Context, outcome *entities.Outcome) {
	if p == nil || outcome == nil {
		return
	}
	if err := p.sink.RecordOutcome(ctx, outcome); err != nil {
		p.logger.Warn("Failed to record %s outcome for %s: %v", outcome.Game, outcome.AccountID, err)
	}
}
