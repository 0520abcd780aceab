package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func testMatch() *models.PersistedMatch {
	return &models.PersistedMatch{
		SourceProvider: models.Tidal,
		SourceID:       "src-1",
		TargetProvider: models.Spotify,
		TargetID:       "tgt-1",
		Type:           models.Tracks,
		Score:          80,
		Created:        time.Now().UTC(),
	}
}

func TestMatchRepositoryCreateAndGet(t *testing.T) {
	repo := NewMatchRepository(testDB(t))

	match := testMatch()
	if err := repo.Create(match); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if match.MatchID == "" {
		t.Fatal("Create should assign an id")
	}

	got, err := repo.Get(match.MatchID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SourceID != "src-1" || got.TargetID != "tgt-1" || got.Score != 80 {
		t.Errorf("unexpected match: %+v", got)
	}
}

func TestMatchRepositoryGetMissing(t *testing.T) {
	repo := NewMatchRepository(testDB(t))
	if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchRepositoryCreateRejectsInvalid(t *testing.T) {
	repo := NewMatchRepository(testDB(t))

	match := testMatch()
	match.TargetProvider = models.Tidal // same as source
	if err := repo.Create(match); err == nil {
		t.Error("same-provider match should fail validation")
	}
}

func TestMatchRepositoryLookup(t *testing.T) {
	repo := NewMatchRepository(testDB(t))

	if _, ok := repo.Lookup(models.Tidal, "src-1", models.Spotify, models.Tracks); ok {
		t.Error("empty cache should miss")
	}

	if err := repo.Store(testMatch()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	id, ok := repo.Lookup(models.Tidal, "src-1", models.Spotify, models.Tracks)
	if !ok || id != "tgt-1" {
		t.Errorf("expected hit tgt-1, got %q (hit=%v)", id, ok)
	}

	// A different item type is a different cache entry.
	if _, ok := repo.Lookup(models.Tidal, "src-1", models.Spotify, models.Albums); ok {
		t.Error("lookup must be scoped by item type")
	}
}

func TestMatchRepositoryStoreUpserts(t *testing.T) {
	repo := NewMatchRepository(testDB(t))

	first := testMatch()
	if err := repo.Store(first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	second := testMatch()
	second.TargetID = "tgt-2"
	second.Score = 90
	if err := repo.Store(second); err != nil {
		t.Fatalf("re-Store failed: %v", err)
	}

	id, ok := repo.Lookup(models.Tidal, "src-1", models.Spotify, models.Tracks)
	if !ok || id != "tgt-2" {
		t.Errorf("upsert should replace target id, got %q", id)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("upsert should not duplicate rows, got %d", count)
	}
}

func TestMatchRepositoryDelete(t *testing.T) {
	repo := NewMatchRepository(testDB(t))

	match := testMatch()
	if err := repo.Create(match); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Delete(match.MatchID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(match.MatchID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("double delete should report ErrNotFound, got %v", err)
	}
}
