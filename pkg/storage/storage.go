// Package storage keeps short-lived interactive game state between button
// presses, keyed by member, guild and game kind.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
)

// Sentinel errors of the session stores
var (
	// ErrSessionNotFound is returned for missing and expired sessions
	ErrSessionNotFound = types.NewError(types.ErrNotFound, "session not found")
	// ErrSessionExists is returned by Create while a live session holds the key
	ErrSessionExists = types.NewError(types.ErrInvalidState, "session already exists")
	// ErrSessionChanged is returned by Save when the stored session moved on
	// since it was loaded
	ErrSessionChanged = types.NewError(types.ErrInvalidState, "session changed, try again")
)

// DefaultTTL is how long a session lives without being saved again
const DefaultTTL = 10 * time.Minute

// Key identifies one member's session of one kind in one guild
type Key struct {
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id"`
	Kind    string `json:"kind"`
}

func (k Key) String() string {
	return k.GuildID + ":" + k.UserID + ":" + k.Kind
}

// Session is a stored interactive state
type Session struct {
	ID        string          `json:"id"`
	Key       Key             `json:"key"`
	State     json.RawMessage `json:"state"` // Game-specific state
	Version   int64           `json:"version"`
	TTL       time.Duration   `json:"ttl,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the session outlived its TTL
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Decode unmarshals the state into v
func (s *Session) Decode(v interface{}) error {
	if err := json.Unmarshal(s.State, v); err != nil {
		return fmt.Errorf("failed to decode %s session: %w", s.Key.Kind, err)
	}
	return nil
}

// Encode replaces the state with v
func (s *Session) Encode(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s session: %w", s.Key.Kind, err)
	}
	s.State = data
	return nil
}

// NewSession encodes state into a session for key
func NewSession(key Key, state interface{}) (*Session, error) {
	session := &Session{Key: key}
	if err := session.Encode(state); err != nil {
		return nil, err
	}
	return session, nil
}

// Store defines the interface for session persistence
type Store interface {
	// Create stores a new session unless a live one holds its key, in which
	// case it returns ErrSessionExists
	Create(ctx context.Context, session *Session, now time.Time) error

	// Save writes back a session obtained from Load and pushes its expiry to
	// now plus its TTL. It returns ErrSessionNotFound when the session was
	// removed or expired, and ErrSessionChanged when another Save won.
	Save(ctx context.Context, session *Session, now time.Time) error

	// Load returns the live session for key; expired sessions are evicted
	// and reported as ErrSessionNotFound
	Load(ctx context.Context, key Key, now time.Time) (*Session, error)

	// Delete removes the live session for key and reports whether this call
	// removed it. Exactly one of several concurrent callers gets true.
	Delete(ctx context.Context, key Key, now time.Time) (bool, error)

	// Sweep evicts every expired session and returns how many were removed
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Options represents storage configuration options
type Options struct {
	Path string
	TTL  time.Duration
}

// NewOptions creates a new Options with default values
func NewOptions() *Options {
	return &Options{
		Path: "sessions.json",
		TTL:  DefaultTTL,
	}
}
