package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/storage"
)

// Storage implements file-based storage for sessions
type Storage struct {
	path     string
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*storage.Session
	logger   *logging.Logger
}

// New creates a new file storage instance
func New(options *storage.Options) (*Storage, error) {
	if options == nil {
		options = storage.NewOptions()
	}
	if options.TTL <= 0 {
		options.TTL = storage.DefaultTTL
	}

	s := &Storage{
		path:     options.Path,
		ttl:      options.TTL,
		sessions: make(map[string]*storage.Session),
		logger:   logging.Default.With("sessions"),
	}

	// Load existing sessions from file
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	return s, nil
}

// Create stores a new session unless a live one holds its key
func (s *Storage) Create(ctx context.Context, session *storage.Session, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := session.Key.String()
	if prev, ok := s.sessions[id]; ok && !prev.Expired(now) {
		return storage.ErrSessionExists
	}

	session.ID = uuid.New().String()
	session.Version = 1
	session.CreatedAt = now
	s.touch(session, now)

	s.sessions[id] = session
	return s.save()
}

// Save writes back a loaded session if it is still the stored version
func (s *Storage) Save(ctx context.Context, session *storage.Session, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := session.Key.String()
	prev, ok := s.sessions[id]
	if !ok || prev.Expired(now) || prev.ID != session.ID {
		return storage.ErrSessionNotFound
	}
	if prev.Version != session.Version {
		return storage.ErrSessionChanged
	}

	// stored sessions are never mutated in place; Load hands out copies
	next := *session
	next.Version++
	next.CreatedAt = prev.CreatedAt
	s.touch(&next, now)
	s.sessions[id] = &next

	if err := s.save(); err != nil {
		s.sessions[id] = prev
		return err
	}
	*session = next
	return nil
}

func (s *Storage) touch(session *storage.Session, now time.Time) {
	ttl := session.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(ttl)
}

// Load returns the live session for key
func (s *Storage) Load(ctx context.Context, key storage.Key, now time.Time) (*storage.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[key.String()]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	if !session.Expired(now) {
		copied := *session
		return &copied, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// it may have been saved again since the read lock was released
	if current, ok := s.sessions[key.String()]; ok && current.Expired(now) {
		delete(s.sessions, key.String())
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return nil, storage.ErrSessionNotFound
}

// Delete removes the live session for key and reports whether it was there
func (s *Storage) Delete(ctx context.Context, key storage.Key, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[key.String()]
	if !ok {
		return false, nil
	}
	delete(s.sessions, key.String())
	if err := s.save(); err != nil {
		s.sessions[key.String()] = session
		return false, err
	}
	return !session.Expired(now), nil
}

// Sweep removes every expired session
func (s *Storage) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted == 0 {
		return 0, nil
	}

	s.logger.Debug("Evicted %d expired sessions", evicted)
	return evicted, s.save()
}

// Len returns the number of stored sessions, expired ones included
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Helper functions

func (s *Storage) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &s.sessions)
}

func (s *Storage) save() error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.StorageError("failed to create session directory", err)
	}

	data, err := json.Marshal(s.sessions)
	if err != nil {
		return types.StorageError("failed to marshal sessions", err)
	}

	// write then rename so a crash never leaves a truncated file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return types.StorageError("failed to write sessions", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return types.StorageError("failed to replace sessions file", err)
	}

	return nil
}
