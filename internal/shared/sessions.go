package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/favx/favx/internal/models"
)

// Sessions holds the persisted source and target account references.
// Persistence is a serialization concern only; during a run the accounts
// are read-only values owned by the engine.
type Sessions struct {
	Source *models.Account `json:"source,omitempty"`
	Target *models.Account `json:"target,omitempty"`
}

// Get returns the account for the given role ("source" or "target").
func (s *Sessions) Get(role string) (*models.Account, error) {
	switch role {
	case "source":
		if s.Source == nil {
			return nil, fmt.Errorf("%w: no source account, run `favx auth` first", ErrMissingCredentials)
		}
		return s.Source, nil
	case "target":
		if s.Target == nil {
			return nil, fmt.Errorf("%w: no target account, run `favx auth` first", ErrMissingCredentials)
		}
		return s.Target, nil
	default:
		return nil, fmt.Errorf("%w: role must be source or target, got %q", ErrInvalidInput, role)
	}
}

// Set replaces the account for the given role.
func (s *Sessions) Set(role string, account *models.Account) error {
	switch role {
	case "source":
		s.Source = account
	case "target":
		s.Target = account
	default:
		return fmt.Errorf("%w: role must be source or target, got %q", ErrInvalidInput, role)
	}
	return nil
}

// DefaultSessionsPath returns ~/.favx/sessions.json.
func DefaultSessionsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sessions.json"
	}
	return filepath.Join(home, ".favx", "sessions.json")
}

// LoadSessions reads the sessions file. A missing file yields an empty
// session set, not an error.
func LoadSessions(path string) (*Sessions, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Sessions{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions file: %w", err)
	}

	var sessions Sessions
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions file: %w", err)
	}
	return &sessions, nil
}

// SaveSessions writes the sessions file with owner-only permissions since
// it contains access tokens.
func SaveSessions(path string, sessions *Sessions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := MarshalJSON(sessions, true)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write sessions file: %w", err)
	}
	return nil
}
