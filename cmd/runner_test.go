package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/providers"
	"github.com/favx/favx/internal/shared"
	tu "github.com/favx/favx/internal/testing"
	"github.com/urfave/cli/v3"
)

// stubCatalog satisfies providers.Catalog with canned favorites.
type stubCatalog struct {
	provider  models.Provider
	favorites map[models.ItemType][]models.Item
	listErr   error
}

func (s *stubCatalog) Name() string              { return strings.ToUpper(string(s.provider)) }
func (s *stubCatalog) Provider() models.Provider { return s.provider }

func (s *stubCatalog) ListFavorites(ctx context.Context, account *models.Account, t models.ItemType) ([]models.Item, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.favorites[t], nil
}

func (s *stubCatalog) Search(ctx context.Context, account *models.Account, query string, t models.ItemType) ([]models.Candidate, error) {
	return nil, nil
}

func (s *stubCatalog) AddFavorite(ctx context.Context, account *models.Account, t models.ItemType, ids []string) error {
	return nil
}

func (s *stubCatalog) CreatePlaylist(ctx context.Context, account *models.Account, name, description string) (string, error) {
	return "pl-1", nil
}

func (s *stubCatalog) AddPlaylistTracks(ctx context.Context, account *models.Account, playlistID string, trackIDs []string) error {
	return nil
}

func (s *stubCatalog) PlaylistTracks(ctx context.Context, account *models.Account, playlistID string) ([]models.Item, error) {
	return nil, nil
}

// testRunner builds a Runner with an isolated sessions file and cache.
func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Sessions.Path = filepath.Join(dir, "sessions.json")
	config.Cache.Path = filepath.Join(dir, "favx.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
	})
	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/tmp/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/tmp/config.toml" {
				t.Error("expected configPath to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config")
			}
			if runner.logger == nil {
				t.Error("expected default logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.openBrowser == nil {
				t.Error("expected default browser opener")
			}
			if runner.catalogs == nil {
				t.Error("expected catalog map to be initialized")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != `{"key":"value"}`+"\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		if err := NewRunner(RunnerOpts{Output: &tu.FWriter{}}).writePlain("x"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("governorOpts", func(t *testing.T) {
		runner, _ := testRunner(t)

		tests := []struct {
			provider models.Provider
			interval time.Duration
		}{
			{models.Tidal, 200 * time.Millisecond},
			{models.Qobuz, 300 * time.Millisecond},
			{models.Spotify, 800 * time.Millisecond},
		}
		for _, tt := range tests {
			opts := runner.governorOpts(tt.provider)
			if opts.Interval != tt.interval {
				t.Errorf("%s interval = %v, want %v", tt.provider, opts.Interval, tt.interval)
			}
			if opts.MaxRetries != 3 {
				t.Errorf("%s max retries = %d, want 3", tt.provider, opts.MaxRetries)
			}
			if opts.RetryAfter != 5*time.Second {
				t.Errorf("%s retry-after = %v, want 5s", tt.provider, opts.RetryAfter)
			}
		}
	})

	t.Run("catalog", func(t *testing.T) {
		t.Run("memoizes constructed adapters", func(t *testing.T) {
			runner, _ := testRunner(t)

			first, err := runner.catalog(models.Tidal)
			if err != nil {
				t.Fatalf("catalog failed: %v", err)
			}
			second, err := runner.catalog(models.Tidal)
			if err != nil {
				t.Fatalf("catalog failed: %v", err)
			}
			if first != second {
				t.Error("expected the same adapter instance on repeat lookups")
			}
		})

		t.Run("prefers injected catalogs", func(t *testing.T) {
			stub := &stubCatalog{provider: models.Qobuz}
			runner := NewRunner(RunnerOpts{
				Catalogs: map[models.Provider]providers.Catalog{models.Qobuz: stub},
			})

			got, err := runner.catalog(models.Qobuz)
			if err != nil {
				t.Fatalf("catalog failed: %v", err)
			}
			if got != providers.Catalog(stub) {
				t.Error("expected the injected catalog")
			}
		})
	})

	t.Run("sessionsFile", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Sessions.Path = "/tmp/custom-sessions.json"
		runner := NewRunner(RunnerOpts{Config: config})
		if runner.sessionsFile() != "/tmp/custom-sessions.json" {
			t.Errorf("expected configured path, got %s", runner.sessionsFile())
		}

		config2 := shared.DefaultConfig()
		config2.Sessions.Path = ""
		runner2 := NewRunner(RunnerOpts{Config: config2})
		if runner2.sessionsFile() != shared.DefaultSessionsPath() {
			t.Errorf("expected default path, got %s", runner2.sessionsFile())
		}
	})
}

func TestAuthSessions(t *testing.T) {
	t.Run("storeAccount persists the session", func(t *testing.T) {
		runner, output := testRunner(t)

		account := &models.Account{Provider: models.Tidal, UserID: "42", Token: "tok"}
		if err := runner.storeAccount("source", account); err != nil {
			t.Fatalf("storeAccount failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Authenticated source with tidal") {
			t.Errorf("unexpected output: %s", output.String())
		}

		sessions, err := runner.loadSessions()
		if err != nil {
			t.Fatalf("loadSessions failed: %v", err)
		}
		stored, err := sessions.Get("source")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored.UserID != "42" {
			t.Errorf("unexpected account: %+v", stored)
		}
	})

	t.Run("storeAccount rejects unknown roles", func(t *testing.T) {
		runner, _ := testRunner(t)
		account := &models.Account{Provider: models.Tidal, UserID: "42", Token: "tok"}
		if err := runner.storeAccount("sideways", account); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("AuthStatus reports both roles", func(t *testing.T) {
		runner, output := testRunner(t)

		account := &models.Account{Provider: models.Qobuz, UserID: "7", Token: "tok"}
		if err := runner.storeAccount("target", account); err != nil {
			t.Fatalf("storeAccount failed: %v", err)
		}
		output.Reset()

		if err := runner.AuthStatus(context.Background(), &cli.Command{}); err != nil {
			t.Fatalf("AuthStatus failed: %v", err)
		}
		result := output.String()
		if !strings.Contains(result, "source: ✗ not authenticated") {
			t.Errorf("missing source line: %s", result)
		}
		if !strings.Contains(result, "target: ✓ qobuz (user 7)") {
			t.Errorf("missing target line: %s", result)
		}
	})
}

func TestParseTypes(t *testing.T) {
	t.Run("empty selects all", func(t *testing.T) {
		types, err := parseTypes("")
		if err != nil {
			t.Fatalf("parseTypes failed: %v", err)
		}
		if types != nil {
			t.Errorf("expected nil, got %v", types)
		}
	})

	t.Run("parses a comma-separated list", func(t *testing.T) {
		types, err := parseTypes("tracks, albums")
		if err != nil {
			t.Fatalf("parseTypes failed: %v", err)
		}
		if len(types) != 2 || types[0] != models.Tracks || types[1] != models.Albums {
			t.Errorf("unexpected types: %v", types)
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		if _, err := parseTypes("tracks,podcasts"); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}

func TestFetchLibrary(t *testing.T) {
	catalog := &stubCatalog{
		provider: models.Tidal,
		favorites: map[models.ItemType][]models.Item{
			models.Tracks: {{ID: "t1", Name: "Song"}},
			models.Albums: {{ID: "a1", Name: "Album"}},
		},
	}
	account := &models.Account{Provider: models.Tidal, UserID: "1", Token: "tok"}
	runner, _ := testRunner(t)

	t.Run("fetches all types by default", func(t *testing.T) {
		library, err := runner.fetchLibrary(context.Background(), catalog, account, nil)
		if err != nil {
			t.Fatalf("fetchLibrary failed: %v", err)
		}
		if len(library[models.Tracks]) != 1 || len(library[models.Albums]) != 1 {
			t.Errorf("unexpected library: %+v", library)
		}
		if _, ok := library[models.Playlists]; !ok {
			t.Error("requested types should be present even when empty")
		}
	})

	t.Run("honors a type filter", func(t *testing.T) {
		library, err := runner.fetchLibrary(context.Background(), catalog, account, []models.ItemType{models.Albums})
		if err != nil {
			t.Fatalf("fetchLibrary failed: %v", err)
		}
		if _, ok := library[models.Tracks]; ok {
			t.Error("tracks should not be fetched")
		}
		if len(library[models.Albums]) != 1 {
			t.Errorf("unexpected albums: %+v", library[models.Albums])
		}
	})

	t.Run("propagates list failures", func(t *testing.T) {
		broken := &stubCatalog{provider: models.Tidal, listErr: errors.New("boom")}
		if _, err := runner.fetchLibrary(context.Background(), broken, account, nil); err == nil {
			t.Error("expected error from failing catalog")
		}
	})
}

func TestOpenMatchCache(t *testing.T) {
	runner, _ := testRunner(t)

	db, repo, err := runner.openMatchCache()
	if err != nil {
		t.Fatalf("openMatchCache failed: %v", err)
	}
	defer db.Close()

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh cache should be empty, got %d", count)
	}
	tu.AssertFileExists(t, runner.config.Cache.Path)
}
