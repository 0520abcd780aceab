package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

// MatchRepository implements models.Repository[*models.PersistedMatch]
// plus the lookup surface the transfer engine caches through.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a MatchRepository with the given database
// connection.
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a new match, generating an id when the model carries
// none.
func (r *MatchRepository) Create(match *models.PersistedMatch) error {
	if match.MatchID == "" {
		match.MatchID = shared.GenerateID()
	}
	if match.Created.IsZero() {
		match.Created = time.Now().UTC()
	}
	if err := match.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO match_cache (
			id, source_provider, source_id, target_provider, target_id,
			item_type, score, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		match.MatchID,
		match.SourceProvider,
		match.SourceID,
		match.TargetProvider,
		match.TargetID,
		match.Type,
		match.Score,
		match.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// Get retrieves a match by id.
func (r *MatchRepository) Get(id string) (*models.PersistedMatch, error) {
	query := `
		SELECT id, source_provider, source_id, target_provider, target_id,
			item_type, score, created_at
		FROM match_cache
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Delete removes a match by id.
func (r *MatchRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM match_cache WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: match %s", shared.ErrNotFound, id)
	}
	return nil
}

// Lookup resolves a cached target id for a source item. The second
// return is false on a miss; database failures degrade to a miss so the
// engine falls back to searching.
func (r *MatchRepository) Lookup(source models.Provider, sourceID string, target models.Provider, t models.ItemType) (string, bool) {
	query := `
		SELECT target_id FROM match_cache
		WHERE source_provider = ? AND source_id = ? AND target_provider = ? AND item_type = ?
	`
	var targetID string
	err := r.db.QueryRow(query, source, sourceID, target, t).Scan(&targetID)
	if err != nil {
		return "", false
	}
	return targetID, true
}

// Store upserts a match, replacing any earlier resolution of the same
// source item against the same target provider.
func (r *MatchRepository) Store(match *models.PersistedMatch) error {
	if match.MatchID == "" {
		match.MatchID = shared.GenerateID()
	}
	if match.Created.IsZero() {
		match.Created = time.Now().UTC()
	}
	if err := match.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO match_cache (
			id, source_provider, source_id, target_provider, target_id,
			item_type, score, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_provider, source_id, target_provider, item_type)
		DO UPDATE SET target_id = excluded.target_id, score = excluded.score
	`
	_, err := r.db.Exec(query,
		match.MatchID,
		match.SourceProvider,
		match.SourceID,
		match.TargetProvider,
		match.TargetID,
		match.Type,
		match.Score,
		match.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}
	return nil
}

// Count returns the number of cached matches.
func (r *MatchRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM match_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

func (r *MatchRepository) scanOne(row *sql.Row) (*models.PersistedMatch, error) {
	var m models.PersistedMatch
	err := row.Scan(
		&m.MatchID,
		&m.SourceProvider,
		&m.SourceID,
		&m.TargetProvider,
		&m.TargetID,
		&m.Type,
		&m.Score,
		&m.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match not found", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return &m, nil
}
