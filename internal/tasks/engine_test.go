package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

// mockCatalog is an in-memory Catalog with call recording.
type mockCatalog struct {
	provider  models.Provider
	favorites map[models.ItemType][]models.Item
	results   map[string][]models.Candidate // query -> candidates
	plTracks  map[string][]models.Item      // playlist id -> tracks

	addedFavorites []addCall
	createdLists   []string
	addedPlTracks  map[string][]string
	searchQueries  []string

	listErr   error
	searchErr error
	addErr    map[string]error // item id -> error
	onAdd     func()           // hook invoked on every AddFavorite
}

type addCall struct {
	Type models.ItemType
	IDs  []string
}

func newMockCatalog(p models.Provider) *mockCatalog {
	return &mockCatalog{
		provider:      p,
		favorites:     map[models.ItemType][]models.Item{},
		results:       map[string][]models.Candidate{},
		plTracks:      map[string][]models.Item{},
		addedPlTracks: map[string][]string{},
		addErr:        map[string]error{},
	}
}

func (m *mockCatalog) Name() string              { return string(m.provider) }
func (m *mockCatalog) Provider() models.Provider { return m.provider }

func (m *mockCatalog) ListFavorites(_ context.Context, _ *models.Account, t models.ItemType) ([]models.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.favorites[t], nil
}

func (m *mockCatalog) Search(_ context.Context, _ *models.Account, query string, _ models.ItemType) ([]models.Candidate, error) {
	m.searchQueries = append(m.searchQueries, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results[query], nil
}

func (m *mockCatalog) AddFavorite(_ context.Context, _ *models.Account, t models.ItemType, ids []string) error {
	if m.onAdd != nil {
		m.onAdd()
	}
	for _, id := range ids {
		if err := m.addErr[id]; err != nil {
			return err
		}
	}
	m.addedFavorites = append(m.addedFavorites, addCall{Type: t, IDs: ids})
	return nil
}

func (m *mockCatalog) CreatePlaylist(_ context.Context, _ *models.Account, name, _ string) (string, error) {
	id := fmt.Sprintf("created-%d", len(m.createdLists))
	m.createdLists = append(m.createdLists, name)
	return id, nil
}

func (m *mockCatalog) AddPlaylistTracks(_ context.Context, _ *models.Account, playlistID string, trackIDs []string) error {
	m.addedPlTracks[playlistID] = append(m.addedPlTracks[playlistID], trackIDs...)
	return nil
}

func (m *mockCatalog) PlaylistTracks(_ context.Context, _ *models.Account, playlistID string) ([]models.Item, error) {
	return m.plTracks[playlistID], nil
}

// memCache is an in-memory MatchCache.
type memCache struct {
	entries map[string]string
	stored  []*models.PersistedMatch
}

func newMemCache() *memCache { return &memCache{entries: map[string]string{}} }

func cacheKey(source models.Provider, sourceID string, target models.Provider, t models.ItemType) string {
	return fmt.Sprintf("%s/%s/%s/%s", source, sourceID, target, t)
}

func (c *memCache) Lookup(source models.Provider, sourceID string, target models.Provider, t models.ItemType) (string, bool) {
	id, ok := c.entries[cacheKey(source, sourceID, target, t)]
	return id, ok
}

func (c *memCache) Store(m *models.PersistedMatch) error {
	c.entries[cacheKey(m.SourceProvider, m.SourceID, m.TargetProvider, m.Type)] = m.TargetID
	c.stored = append(c.stored, m)
	return nil
}

func candidate(id, name string, artists ...string) models.Candidate {
	return models.Candidate{Item: models.Item{ID: id, Name: name, Artists: artists}}
}

func testEngine(source, target *mockCatalog, cache MatchCache) *Engine {
	src := &models.Account{Provider: source.provider, UserID: "src", Token: "s"}
	tgt := &models.Account{Provider: target.provider, UserID: "tgt", Token: "t"}
	return NewEngine(source, target, src, tgt, cache, nil)
}

func TestRunSameProviderAddsDirectly(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Tidal)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "One"},
		{ID: "t2", Name: "Two"},
		{ID: "t3", Name: "Three"},
	}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Added != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("unexpected counts: added=%d skipped=%d failed=%d", report.Added, report.Skipped, report.Failed)
	}
	if len(target.searchQueries) != 0 {
		t.Errorf("same-provider transfer should not search, got %d queries", len(target.searchQueries))
	}
	if len(target.addedFavorites) != 3 {
		t.Fatalf("expected 3 add calls, got %d", len(target.addedFavorites))
	}
	if target.addedFavorites[0].IDs[0] != "t1" {
		t.Errorf("source ids should be reused directly, got %v", target.addedFavorites[0].IDs)
	}
	if engine.State() != Done {
		t.Errorf("expected Done state, got %s", engine.State())
	}
}

func TestRunCrossProviderMatchesAndSkips(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Qobuz)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "Known Song", Artists: []string{"Alpha"}},
		{ID: "t2", Name: "Obscure B-Side", Artists: []string{"Beta"}},
	}
	target.results["Known Song Alpha"] = []models.Candidate{
		candidate("q1", "Known Song", "Alpha"),
	}
	// No results for the obscure track.

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Added != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("unexpected counts: added=%d skipped=%d failed=%d", report.Added, report.Skipped, report.Failed)
	}
	if report.Outcomes[1].Status != models.StatusSkipped {
		t.Errorf("unmatched item should be skipped, got %s", report.Outcomes[1].Status)
	}
	if len(target.addedFavorites) != 1 || target.addedFavorites[0].IDs[0] != "q1" {
		t.Errorf("expected matched target id q1 to be favorited, got %v", target.addedFavorites)
	}
}

func TestRunOrderingInvariant(t *testing.T) {
	source := newMockCatalog(models.Spotify)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Tracks] = []models.Item{{ID: "t1", Name: "T1"}, {ID: "t2", Name: "T2"}}
	source.favorites[models.Albums] = []models.Item{{ID: "al1", Name: "A1"}}
	source.favorites[models.Artists] = []models.Item{{ID: "ar1", Name: "R1"}}
	source.favorites[models.Playlists] = []models.Item{{ID: "p1", Name: "P1"}}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []models.ItemType{models.Playlists, models.Tracks, models.Tracks, models.Albums, models.Artists}
	if len(report.Outcomes) != len(want) {
		t.Fatalf("expected %d outcomes, got %d", len(want), len(report.Outcomes))
	}
	for i, typ := range want {
		if report.Outcomes[i].Type != typ {
			t.Errorf("outcome %d: expected type %s, got %s", i, typ, report.Outcomes[i].Type)
		}
	}
	if report.Outcomes[1].Item.ID != "t1" || report.Outcomes[2].Item.ID != "t2" {
		t.Error("source order not preserved within type")
	}
}

func TestRunStopAtItemBoundary(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Tidal)
	items := make([]models.Item, 5)
	for i := range items {
		items[i] = models.Item{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Track %d", i)}
	}
	source.favorites[models.Tracks] = items

	engine := testEngine(source, target, nil)
	added := 0
	target.onAdd = func() {
		added++
		if added == 2 {
			engine.Stop()
		}
	}

	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The in-flight item completes; nothing after it starts.
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes before stop, got %d", len(report.Outcomes))
	}
	if !report.Stopped {
		t.Error("report should be marked stopped")
	}
	if engine.State() != Stopped {
		t.Errorf("expected Stopped state, got %s", engine.State())
	}
}

func TestRunAuthExpiredAborts(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Tidal)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "One"},
		{ID: "t2", Name: "Two"},
		{ID: "t3", Name: "Three"},
	}
	target.addErr["t2"] = fmt.Errorf("%w: status 401", shared.ErrAuthExpired)

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if !errors.Is(err, shared.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}

	// The failing item is recorded; the third never starts.
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.Outcomes))
	}
	if report.Outcomes[1].Status != models.StatusFailed {
		t.Errorf("aborting item should be recorded failed, got %s", report.Outcomes[1].Status)
	}
}

func TestRunContainsOrdinaryFailures(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Tidal)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "One"},
		{ID: "t2", Name: "Two"},
		{ID: "t3", Name: "Three"},
	}
	target.addErr["t2"] = &shared.StatusError{Code: 500, Body: "server error"}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if err != nil {
		t.Fatalf("ordinary failures must not abort the run: %v", err)
	}

	if report.Added != 2 || report.Failed != 1 {
		t.Errorf("unexpected counts: added=%d failed=%d", report.Added, report.Failed)
	}
	if len(report.Failures()) != 1 || report.Failures()[0].Item.ID != "t2" {
		t.Errorf("unexpected failures: %+v", report.Failures())
	}
}

func TestRunUsesMatchCache(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "Cached Song", Artists: []string{"Alpha"}},
	}

	cache := newMemCache()
	cache.entries[cacheKey(models.Tidal, "t1", models.Spotify, models.Tracks)] = "sp-cached"

	engine := testEngine(source, target, cache)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(target.searchQueries) != 0 {
		t.Errorf("cache hit should bypass search, got %d queries", len(target.searchQueries))
	}
	if report.Outcomes[0].TargetID != "sp-cached" {
		t.Errorf("expected cached target id, got %q", report.Outcomes[0].TargetID)
	}
}

func TestRunStoresAcceptedMatches(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Tracks] = []models.Item{
		{ID: "t1", Name: "New Song", Artists: []string{"Alpha"}},
	}
	target.results["New Song Alpha"] = []models.Candidate{
		candidate("sp1", "New Song", "Alpha"),
	}

	cache := newMemCache()
	engine := testEngine(source, target, cache)
	if _, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Tracks}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(cache.stored) != 1 {
		t.Fatalf("expected 1 stored match, got %d", len(cache.stored))
	}
	stored := cache.stored[0]
	if stored.SourceID != "t1" || stored.TargetID != "sp1" || stored.Type != models.Tracks {
		t.Errorf("unexpected stored match: %+v", stored)
	}
	if err := stored.Validate(); err != nil {
		t.Errorf("stored match should validate: %v", err)
	}
}

func TestRunFromLibrarySkipsFetch(t *testing.T) {
	source := newMockCatalog(models.Qobuz)
	target := newMockCatalog(models.Qobuz)
	source.listErr = errors.New("source must not be fetched")

	library := models.Library{
		models.Tracks: {{ID: "t1", Name: "Restored"}},
	}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{
		Types:   []models.ItemType{models.Tracks},
		Library: library,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Added != 1 {
		t.Errorf("expected 1 added from provided library, got %d", report.Added)
	}
}

func TestRunPlaylistPartialMatchSucceeds(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Playlists] = []models.Item{{ID: "pl1", Name: "Mix"}}
	source.plTracks["pl1"] = []models.Item{
		{ID: "t1", Name: "Matched Song", Artists: []string{"Alpha"}},
		{ID: "t2", Name: "Unmatched Song", Artists: []string{"Beta"}},
	}
	target.results["Matched Song Alpha"] = []models.Candidate{
		candidate("sp1", "Matched Song", "Alpha"),
	}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Playlists}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Added != 1 {
		t.Fatalf("partial playlist match should still succeed: %+v", report.Outcomes)
	}
	if len(target.createdLists) != 1 || target.createdLists[0] != "Mix" {
		t.Errorf("playlist not created: %v", target.createdLists)
	}
	tracks := target.addedPlTracks[report.Outcomes[0].TargetID]
	if len(tracks) != 1 || tracks[0] != "sp1" {
		t.Errorf("expected only matched track inserted, got %v", tracks)
	}
}

func TestRunPlaylistZeroMatchesFails(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Playlists] = []models.Item{{ID: "pl1", Name: "Mix"}}
	source.plTracks["pl1"] = []models.Item{
		{ID: "t1", Name: "Unmatched One"},
		{ID: "t2", Name: "Unmatched Two"},
	}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Playlists}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Failed != 1 {
		t.Errorf("zero-match playlist should fail, got %+v", report.Outcomes)
	}
}

func TestRunEmptyPlaylistSucceeds(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Spotify)
	source.favorites[models.Playlists] = []models.Item{{ID: "pl1", Name: "Empty"}}

	engine := testEngine(source, target, nil)
	report, err := engine.Run(context.Background(), nil, RunRequest{Types: []models.ItemType{models.Playlists}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Added != 1 {
		t.Errorf("empty playlist should transfer as an empty playlist, got %+v", report.Outcomes)
	}
}

func TestRunProgressUpdatesNonBlocking(t *testing.T) {
	source := newMockCatalog(models.Tidal)
	target := newMockCatalog(models.Tidal)
	source.favorites[models.Tracks] = []models.Item{{ID: "t1", Name: "One"}}

	// An unbuffered channel nobody reads must not stall the run.
	progress := make(chan ProgressUpdate)

	engine := testEngine(source, target, nil)
	if _, err := engine.Run(context.Background(), progress, RunRequest{Types: []models.ItemType{models.Tracks}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunTypesOrderFixed(t *testing.T) {
	got := runTypes(RunRequest{Types: []models.ItemType{models.Artists, models.Tracks}})
	if len(got) != 2 || got[0] != models.Tracks || got[1] != models.Artists {
		t.Errorf("request order must not override processing order, got %v", got)
	}
	if len(runTypes(RunRequest{})) != len(models.TransferOrder) {
		t.Error("empty request should cover all types")
	}
}
