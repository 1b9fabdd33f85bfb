package statistics

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// DefaultPerPage is used when the caller asks for a non-positive page size
const DefaultPerPage = 10

// LeaderboardSource is the part of the ledger repository the service reads
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, kind entities.LeaderboardKind, offset, limit int) ([]*entities.LeaderboardEntry, int, error)
}

// Service provides methods for retrieving ranked account statistics
type Service struct {
	source LeaderboardSource
}

// NewService creates a new statistics service
func NewService(source LeaderboardSource) *Service {
	return &Service{
		source: source,
	}
}

// Leaderboard represents one page of a ranked board
type Leaderboard struct {
	Kind         entities.LeaderboardKind     `json:"kind"`
	Entries      []*entities.LeaderboardEntry `json:"entries"`
	TotalPlayers int                          `json:"total_players"`
	CurrentPage  int                          `json:"current_page"`
	TotalPages   int                          `json:"total_pages"`
	PerPage      int                          `json:"per_page"`
	LastUpdated  time.Time                    `json:"last_updated"`
}

// HasNext reports whether a later page exists
func (l *Leaderboard) HasNext() bool {
	return l.CurrentPage < l.TotalPages
}

// HasPrevious reports whether an earlier page exists
func (l *Leaderboard) HasPrevious() bool {
	return l.CurrentPage > 1
}

// ParseKind maps user input to a board, defaulting to coins
func ParseKind(s string) (entities.LeaderboardKind, error) {
	switch s {
	case "", "coins", "money", "balance":
		return entities.LeaderboardCoins, nil
	case "level", "xp", "nivel", "nível":
		return entities.LeaderboardLevel, nil
	case "messages", "mensagens":
		return entities.LeaderboardMessages, nil
	default:
		return "", types.Errorf(types.ErrInvalidArgument, "unknown leaderboard %q", s)
	}
}

// GetLeaderboard retrieves one page of the board. Pages past the end are
// clamped to the last page.
func (s *Service) GetLeaderboard(ctx context.Context, kind entities.LeaderboardKind, page, perPage int, now time.Time) (*Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	entries, total, err := s.source.Leaderboard(ctx, kind, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	if page > totalPages && totalPages > 0 {
		page = totalPages
		entries, total, err = s.source.Leaderboard(ctx, kind, (page-1)*perPage, perPage)
		if err != nil {
			return nil, err
		}
	}
	if entries == nil {
		entries = []*entities.LeaderboardEntry{}
	}

	return &Leaderboard{
		Kind:         kind,
		Entries:      entries,
		TotalPlayers: total,
		CurrentPage:  page,
		TotalPages:   totalPages,
		PerPage:      perPage,
		LastUpdated:  now,
	}, nil
}

// Rank finds an account's position on a board by scanning its pages. It
// returns nil when the account is not ranked.
func (s *Service) Rank(ctx context.Context, kind entities.LeaderboardKind, accountID string) (*entities.LeaderboardEntry, error) {
	const batch = 100
	for offset := 0; ; offset += batch {
		entries, total, err := s.source.Leaderboard(ctx, kind, offset, batch)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.AccountID == accountID {
				return e, nil
			}
		}
		if offset+batch >= total || len(entries) == 0 {
			return nil, nil
		}
	}
}
