package analytics

import (
	"context"
	"sync"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// MemorySink keeps everything in memory and aggregates per-game statistics
type MemorySink struct {
	mu           sync.RWMutex
	transactions []*entities.Transaction
	outcomes     []*entities.Outcome
	stats        map[string]map[entities.GameKind]*entities.PlayerStatistics
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		stats: make(map[string]map[entities.GameKind]*entities.PlayerStatistics),
	}
}

func (m *MemorySink) RecordTransaction(ctx context.Context, tx *entities.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txCopy := *tx
	m.transactions = append(m.transactions, &txCopy)
	return nil
}

func (m *MemorySink) RecordOutcome(ctx context.Context, outcome *entities.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomeCopy := *outcome
	m.outcomes = append(m.outcomes, &outcomeCopy)

	byGame, ok := m.stats[outcome.AccountID]
	if !ok {
		byGame = make(map[entities.GameKind]*entities.PlayerStatistics)
		m.stats[outcome.AccountID] = byGame
	}
	stats, ok := byGame[outcome.Game]
	if !ok {
		stats = &entities.PlayerStatistics{AccountID: outcome.AccountID, Game: outcome.Game}
		byGame[outcome.Game] = stats
	}
	stats.Record(outcome)
	return nil
}

// Transactions returns a snapshot of the recorded transactions
func (m *MemorySink) Transactions() []*entities.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*entities.Transaction(nil), m.transactions...)
}

// Outcomes returns a snapshot of the recorded outcomes
func (m *MemorySink) Outcomes() []*entities.Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*entities.Outcome(nil), m.outcomes...)
}

// Statistics returns the aggregate for one account and game
func (m *MemorySink) Statistics(accountID string, game entities.GameKind) entities.PlayerStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if stats, ok := m.stats[accountID][game]; ok {
		return *stats
	}
	return entities.PlayerStatistics{AccountID: accountID, Game: game}
}
