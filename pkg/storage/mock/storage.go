package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/19722009abc/HelpyBot/pkg/storage"
)

// Storage is a mock implementation of storage.Store
type Storage struct {
	mock.Mock
}

func New() *Storage {
	return &Storage{}
}

func (s *Storage) Create(ctx context.Context, session *storage.Session, now time.Time) error {
	args := s.Called(ctx, session, now)
	return args.Error(0)
}

func (s *Storage) Save(ctx context.Context, session *storage.Session, now time.Time) error {
	args := s.Called(ctx, session, now)
	return args.Error(0)
}

func (s *Storage) Load(ctx context.Context, key storage.Key, now time.Time) (*storage.Session, error) {
	args := s.Called(ctx, key, now)
	if session, ok := args.Get(0).(*storage.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *Storage) Delete(ctx context.Context, key storage.Key, now time.Time) (bool, error) {
	args := s.Called(ctx, key, now)
	return args.Bool(0), args.Error(1)
}

func (s *Storage) Sweep(ctx context.Context, now time.Time) (int, error) {
	args := s.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
