package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/favx/favx/internal/governor"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/providers"
	"github.com/favx/favx/internal/repositories"
	"github.com/favx/favx/internal/shared"
	"github.com/favx/favx/internal/transport"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
	catalogs    map[models.Provider]providers.Catalog
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
	Catalogs    map[models.Provider]providers.Catalog
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Catalogs == nil {
		opts.Catalogs = map[models.Provider]providers.Catalog{}
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		catalogs:    opts.Catalogs,
	}
}

// SetLogger swaps the runner's logger, e.g. for file logging under the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, transferCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// catalog returns the adapter for a provider, constructing and memoizing
// it with the shared transport and a per-provider rate governor.
func (r *Runner) catalog(p models.Provider) (providers.Catalog, error) {
	if c, ok := r.catalogs[p]; ok {
		return c, nil
	}

	deps := providers.Deps{
		HTTP:     transport.NewClient(r.httpClient, r.config.Proxy.URLs),
		Governor: governor.New(r.governorOpts(p)),
		Logger:   shared.WithLogger(r.logger, "provider", string(p)),
	}
	c, err := providers.ForProvider(p, r.config, deps)
	if err != nil {
		return nil, err
	}
	r.catalogs[p] = c
	return c, nil
}

func (r *Runner) governorOpts(p models.Provider) governor.Opts {
	pacing := r.config.Pacing

	var intervalMS int
	switch p {
	case models.Tidal:
		intervalMS = pacing.TidalIntervalMS
	case models.Qobuz:
		intervalMS = pacing.QobuzIntervalMS
	case models.Spotify:
		intervalMS = pacing.SpotifyIntervalMS
	}

	return governor.Opts{
		Interval:   time.Duration(intervalMS) * time.Millisecond,
		RetryAfter: time.Duration(pacing.DefaultRetryMS) * time.Millisecond,
		MaxRetries: pacing.MaxRetries,
	}
}

func (r *Runner) sessionsFile() string {
	if r.config.Sessions.Path != "" {
		return r.config.Sessions.Path
	}
	return shared.DefaultSessionsPath()
}

func (r *Runner) loadSessions() (*shared.Sessions, error) {
	return shared.LoadSessions(r.sessionsFile())
}

func (r *Runner) saveSessions(sessions *shared.Sessions) error {
	return shared.SaveSessions(r.sessionsFile(), sessions)
}

// account loads the persisted account for a role and the catalog fronting
// its provider.
func (r *Runner) account(role string) (*models.Account, providers.Catalog, error) {
	sessions, err := r.loadSessions()
	if err != nil {
		return nil, nil, err
	}
	account, err := sessions.Get(role)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := r.catalog(account.Provider)
	if err != nil {
		return nil, nil, err
	}
	return account, catalog, nil
}

// openMatchCache opens the match-cache database and prepares its schema.
// The caller closes the returned handle.
func (r *Runner) openMatchCache() (*sql.DB, *repositories.MatchRepository, error) {
	db, err := shared.NewDatabase(r.config.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open match cache: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Cache.MaxOpenConns, r.config.Cache.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate match cache: %w", err)
	}

	return db, repositories.NewMatchRepository(db), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
