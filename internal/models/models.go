package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Provider identifies a music streaming service.
type Provider string

const (
	Tidal   Provider = "tidal"
	Qobuz   Provider = "qobuz"
	Spotify Provider = "spotify"
)

// ParseProvider converts a user-supplied string into a [Provider].
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case Tidal, Qobuz, Spotify:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("unknown provider %q (want tidal, qobuz or spotify)", s)
	}
}

// ItemType identifies a kind of favorited library entity.
type ItemType string

const (
	Tracks    ItemType = "tracks"
	Albums    ItemType = "albums"
	Artists   ItemType = "artists"
	Playlists ItemType = "playlists"
)

// TransferOrder is the fixed order in which item types are processed
// during a run. Playlists go first: they are the slowest operation and
// their failures should surface early.
var TransferOrder = []ItemType{Playlists, Tracks, Albums, Artists}

// ParseItemType converts a user-supplied string into an [ItemType].
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case Tracks, Albums, Artists, Playlists:
		return ItemType(s), nil
	default:
		return "", fmt.Errorf("unknown item type %q (want tracks, albums, artists or playlists)", s)
	}
}

// Account references one authenticated streaming-service account.
// Immutable once created; a re-login replaces the whole value.
type Account struct {
	Provider Provider `json:"provider"`
	UserID   string   `json:"user_id"`
	Token    string   `json:"token"`
}

// Item is one favorited entity in a library snapshot.
type Item struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists,omitempty"`
	Album   string   `json:"album,omitempty"`
}

// Candidate is a single catalog search result, scored by the matcher and
// then discarded.
type Candidate struct {
	Item
	Raw json.RawMessage `json:"-"`
}

// Library is a snapshot of one account's favorites, keyed by item type.
type Library map[ItemType][]Item

// Total returns the number of items across the given types.
func (l Library) Total(types []ItemType) int {
	n := 0
	for _, t := range types {
		n += len(l[t])
	}
	return n
}

// Status classifies the outcome of one attempted item transfer.
type Status string

const (
	StatusAdded   Status = "added"
	StatusSkipped Status = "skipped_no_match"
	StatusFailed  Status = "failed"
)

// Outcome records the result of one attempted item transfer.
type Outcome struct {
	Type     ItemType `json:"type"`
	Item     Item     `json:"item"`
	Status   Status   `json:"status"`
	Err      string   `json:"error,omitempty"`
	TargetID string   `json:"target_id,omitempty"`
}

// Model defines the base interface for persistent entities in the match
// cache.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks the model's data
}

// Repository defines the data access operations implemented by the
// persistence layer for a specific model type.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Delete(id string) error
}

// PersistedMatch is a cached cross-provider id resolution: the target
// provider id a source item resolved to during a previous run.
type PersistedMatch struct {
	MatchID        string
	SourceProvider Provider
	SourceID       string
	TargetProvider Provider
	TargetID       string
	Type           ItemType
	Score          int
	Created        time.Time
}

func (m *PersistedMatch) ID() string           { return m.MatchID }
func (m *PersistedMatch) CreatedAt() time.Time { return m.Created }

func (m *PersistedMatch) Validate() error {
	if m.SourceProvider == "" || m.SourceID == "" {
		return fmt.Errorf("match missing source reference")
	}
	if m.TargetProvider == "" || m.TargetID == "" {
		return fmt.Errorf("match missing target reference")
	}
	if m.SourceProvider == m.TargetProvider {
		return fmt.Errorf("match must span two providers")
	}
	if m.Score < 0 || m.Score > 100 {
		return fmt.Errorf("match score %d out of range", m.Score)
	}
	return nil
}
