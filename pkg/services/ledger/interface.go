package ledger

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_ledger_service
type LedgerService interface {
	EnsureAccount(ctx context.Context, id, username string, now time.Time) (*entities.Account, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	RecentTransactions(ctx context.Context, id string, limit int) ([]*entities.Transaction, error)
}
