package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/favx/favx/internal/match"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/providers"
	"github.com/favx/favx/internal/shared"
)

// State is the engine's position in the run lifecycle.
type State int

const (
	Idle State = iota
	Initializing
	Running
	Finalizing
	Done
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	case Stopped:
		return "stopped"
	default:
		return ""
	}
}

// RunRequest selects what a run transfers.
type RunRequest struct {
	// Types restricts the run to the given item types; empty means all.
	// The processing order is fixed regardless of request order.
	Types []models.ItemType

	// Library, when non-nil, is used instead of fetching the source
	// account's favorites. The restore path feeds a parsed export here.
	Library models.Library
}

// Report is the durable record of one run.
type Report struct {
	RunID    string           `json:"run_id"`
	Source   models.Provider  `json:"source"`
	Target   models.Provider  `json:"target"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Stopped  bool             `json:"stopped,omitempty"`
	Added    int              `json:"added"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Outcomes []models.Outcome `json:"outcomes"`
}

// Failures returns the outcomes that did not succeed, in run order.
func (r *Report) Failures() []models.Outcome {
	var out []models.Outcome
	for _, o := range r.Outcomes {
		if o.Status == models.StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) record(o models.Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case models.StatusAdded:
		r.Added++
	case models.StatusSkipped:
		r.Skipped++
	case models.StatusFailed:
		r.Failed++
	}
}

// MatchCache resolves source ids to previously accepted target ids so a
// re-run skips redundant searches. Implementations must tolerate
// concurrent use; a nil cache disables caching.
type MatchCache interface {
	Lookup(source models.Provider, sourceID string, target models.Provider, t models.ItemType) (string, bool)
	Store(m *models.PersistedMatch) error
}

// Engine drives one transfer run between two authenticated accounts.
type Engine struct {
	source    providers.Catalog
	target    providers.Catalog
	srcAcct   *models.Account
	tgtAcct   *models.Account
	cache     MatchCache
	logger    *log.Logger

	mu      sync.Mutex
	state   State
	stopped bool
}

// NewEngine creates an Engine. cache may be nil.
func NewEngine(source, target providers.Catalog, srcAcct, tgtAcct *models.Account, cache MatchCache, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		source:  source,
		target:  target,
		srcAcct: srcAcct,
		tgtAcct: tgtAcct,
		cache:   cache,
		logger:  logger,
		state:   Idle,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop requests a cooperative stop. The in-flight item completes and its
// outcome is recorded; nothing after it starts. Safe from any goroutine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *Engine) stopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

// sendProgress sends a progress update through the channel without
// blocking. A full channel drops the update rather than stalling the run.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// runTypes resolves the requested types into the fixed processing order.
func runTypes(req RunRequest) []models.ItemType {
	if len(req.Types) == 0 {
		return models.TransferOrder
	}
	requested := make(map[models.ItemType]bool, len(req.Types))
	for _, t := range req.Types {
		requested[t] = true
	}
	var out []models.ItemType
	for _, t := range models.TransferOrder {
		if requested[t] {
			out = append(out, t)
		}
	}
	return out
}

// abortsRun reports whether err invalidates the remainder of the run.
// Everything else is contained as a single-item failure.
func abortsRun(err error) bool {
	return errors.Is(err, shared.ErrAuthExpired) ||
		errors.Is(err, shared.ErrUserCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Run executes one transfer. The returned report covers every item
// attempted before completion, stop or abort; it is non-nil even when
// err is not.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, req RunRequest) (*Report, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	report := &Report{
		RunID:   shared.GenerateID(),
		Source:  e.source.Provider(),
		Target:  e.target.Provider(),
		Started: time.Now().UTC(),
	}
	logger := e.logger.With("run_id", report.RunID, "source", report.Source, "target", report.Target)

	e.setState(Initializing)
	e.sendProgress(progress, initUpdate(e.source.Name(), e.target.Name()))

	types := runTypes(req)

	library := req.Library
	if library == nil {
		var err error
		library, err = e.fetchLibrary(ctx, progress, types)
		if err != nil {
			report.Finished = time.Now().UTC()
			e.setState(Done)
			return report, err
		}
	}

	total := library.Total(types)
	logger.Info("starting transfer", "items", total)

	step := 0
	for _, t := range types {
		e.setState(Running)

		for _, item := range library[t] {
			if e.stopRequested() {
				return e.finish(progress, report, logger, true), nil
			}
			step++
			e.sendProgress(progress, itemUpdate(t, item, step, total))

			outcome, abort := e.transferItem(ctx, t, item)
			report.record(outcome)
			e.sendProgress(progress, outcomeUpdate(outcome, step, total))

			if abort != nil {
				report.Finished = time.Now().UTC()
				e.setState(Done)
				logger.Error("run aborted", "error", abort)
				return report, abort
			}
		}
	}

	return e.finish(progress, report, logger, false), nil
}

func (e *Engine) finish(progress chan<- ProgressUpdate, report *Report, logger *log.Logger, stopped bool) *Report {
	e.setState(Finalizing)
	report.Stopped = stopped
	report.Finished = time.Now().UTC()
	e.sendProgress(progress, finalizeUpdate(report))

	if stopped {
		e.setState(Stopped)
		logger.Info("run stopped", "added", report.Added, "skipped", report.Skipped, "failed", report.Failed)
	} else {
		e.setState(Done)
		logger.Info("run complete", "added", report.Added, "skipped", report.Skipped, "failed", report.Failed)
	}
	return report
}

// fetchLibrary snapshots the source account's favorites for the
// requested types, preserving source order.
func (e *Engine) fetchLibrary(ctx context.Context, progress chan<- ProgressUpdate, types []models.ItemType) (models.Library, error) {
	library := make(models.Library, len(types))
	for i, t := range types {
		e.sendProgress(progress, fetchUpdate(t, i+1, len(types)))
		items, err := e.source.ListFavorites(ctx, e.srcAcct, t)
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", t, err)
		}
		library[t] = items
		e.sendProgress(progress, fetchedUpdate(t, len(items), i+1, len(types)))
	}
	return library, nil
}

// transferItem replicates one item into the target account. A non-nil
// abort means the whole run must end; any other failure is contained in
// the outcome.
func (e *Engine) transferItem(ctx context.Context, t models.ItemType, item models.Item) (outcome models.Outcome, abort error) {
	outcome = models.Outcome{Type: t, Item: item}

	var err error
	switch {
	case e.source.Provider() == e.target.Provider():
		err = e.target.AddFavorite(ctx, e.tgtAcct, t, []string{item.ID})
		if err == nil {
			outcome.TargetID = item.ID
		}
	case t == models.Playlists:
		return e.transferPlaylist(ctx, item)
	default:
		outcome.TargetID, err = e.replicate(ctx, t, item)
	}

	switch {
	case err == nil:
		outcome.Status = models.StatusAdded
	case errors.Is(err, shared.ErrNoMatch):
		outcome.Status = models.StatusSkipped
		e.logger.Info("no acceptable match", "type", t, "item", item.Name)
	default:
		outcome.Status = models.StatusFailed
		outcome.Err = err.Error()
		if abortsRun(err) {
			abort = err
		}
		e.logger.Warn("item failed", "type", t, "item", item.Name, "error", err)
	}
	return outcome, abort
}

// replicate resolves a source item to a target-catalog id (cache first,
// then search and match) and favorites it. Returns [shared.ErrNoMatch]
// when no candidate clears the threshold.
func (e *Engine) replicate(ctx context.Context, t models.ItemType, item models.Item) (string, error) {
	targetID, err := e.resolve(ctx, t, item)
	if err != nil {
		return "", err
	}
	if err := e.target.AddFavorite(ctx, e.tgtAcct, t, []string{targetID}); err != nil {
		return "", err
	}
	return targetID, nil
}

// resolve finds the target-catalog id for a source item.
func (e *Engine) resolve(ctx context.Context, t models.ItemType, item models.Item) (string, error) {
	if e.cache != nil {
		if id, ok := e.cache.Lookup(e.source.Provider(), item.ID, e.target.Provider(), t); ok {
			return id, nil
		}
	}

	candidates, err := e.target.Search(ctx, e.tgtAcct, searchQuery(item), t)
	if err != nil {
		return "", err
	}

	best := match.Best(item, candidates, t)
	if !best.Accepted {
		return "", fmt.Errorf("%w: %s %q (best score %d)", shared.ErrNoMatch, t, item.Name, best.Score)
	}

	if e.cache != nil {
		cached := &models.PersistedMatch{
			MatchID:        shared.GenerateID(),
			SourceProvider: e.source.Provider(),
			SourceID:       item.ID,
			TargetProvider: e.target.Provider(),
			TargetID:       best.Candidate.ID,
			Type:           t,
			Score:          best.Score,
			Created:        time.Now().UTC(),
		}
		if err := e.cache.Store(cached); err != nil {
			e.logger.Warn("failed to cache match", "item", item.Name, "error", err)
		}
	}

	return best.Candidate.ID, nil
}

// searchQuery builds the catalog query for a source item: name plus the
// first artist, which is specific enough without over-constraining.
func searchQuery(item models.Item) string {
	if len(item.Artists) == 0 {
		return item.Name
	}
	return strings.TrimSpace(item.Name + " " + item.Artists[0])
}
