package main

import (
	"context"
	"fmt"
	"os"

	"github.com/favx/favx/internal/formatter"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
	"github.com/favx/favx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// buildEngine wires the transfer engine from the stored sessions. The
// returned cleanup closes the match-cache handle when one was opened.
func (r *Runner) buildEngine(useCache bool) (*tasks.Engine, *shared.Sessions, func(), error) {
	sessions, err := r.loadSessions()
	if err != nil {
		return nil, nil, nil, err
	}

	source, err := sessions.Get("source")
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := sessions.Get("target")
	if err != nil {
		return nil, nil, nil, err
	}

	sourceCatalog, err := r.catalog(source.Provider)
	if err != nil {
		return nil, nil, nil, err
	}
	targetCatalog, err := r.catalog(target.Provider)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {}
	var cache tasks.MatchCache
	if useCache {
		db, repo, err := r.openMatchCache()
		if err != nil {
			// The run can proceed without cached matches.
			r.logger.Warn("match cache unavailable", "error", err)
		} else {
			cache = repo
			cleanup = func() { db.Close() }
		}
	}

	engine := tasks.NewEngine(sourceCatalog, targetCatalog, source, target, cache, r.logger)
	return engine, sessions, cleanup, nil
}

// printProgress renders one engine progress update.
func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.PhaseFetch:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.PhaseTransfer:
		if update.Step == 0 {
			r.writePlain("\n🔁 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.PhasePlaylist:
		r.writePlain("   %s\n", update.Message)
	case tasks.PhaseFinalize:
		r.writePlain("\n%s\n", update.Message)
	}
}

// summarize prints the run report and optionally writes a failure report.
func (r *Runner) summarize(report *tasks.Report, reportPath string) error {
	title := "Transfer Complete!"
	if report.Stopped {
		title = "Transfer Stopped"
	}

	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Run: %s\n", report.RunID)
	r.writePlain("%s → %s\n", report.Source, report.Target)
	r.writePlain("Added: %d  Skipped: %d  Failed: %d\n", report.Added, report.Skipped, report.Failed)

	if failures := report.Failures(); len(failures) > 0 {
		r.writePlain("\nFailed items:\n")
		for _, outcome := range failures {
			r.writePlain("  - [%s] %s: %s\n", outcome.Type, outcome.Item.Name, outcome.Err)
		}
	}

	if reportPath != "" {
		text := formatter.FailureReport(version, report)
		if err := os.WriteFile(reportPath, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to write failure report: %w", err)
		}
		r.writePlain("\nFailure report written to %s\n", reportPath)
	}
	return nil
}

func (r *Runner) runTransfer(ctx context.Context, cmd *cli.Command, req tasks.RunRequest) error {
	engine, sessions, cleanup, err := r.buildEngine(!cmd.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer cleanup()

	source, _ := sessions.Get("source")
	target, _ := sessions.Get("target")
	r.logger.Info("starting transfer", "source", source.Provider, "target", target.Provider)
	r.writePlain("Transferring favorites: %s → %s\n\n", source.Provider, target.Provider)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.printProgress(update)
		}
	}()

	report, runErr := engine.Run(ctx, progressCh, req)
	close(progressCh)

	if report != nil {
		if cmd.Bool("json") {
			return r.writeJSON(report, cmd.Bool("pretty"))
		}
		if err := r.summarize(report, cmd.String("report")); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("transfer aborted: %w", runErr)
	}
	return nil
}

// TransferRun replicates the source account's favorites into the target.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	types, err := parseTypes(cmd.String("types"))
	if err != nil {
		return err
	}
	return r.runTransfer(ctx, cmd, tasks.RunRequest{Types: types})
}

// TransferRestore replays a saved library export into the target account.
func (r *Runner) TransferRestore(ctx context.Context, cmd *cli.Command) error {
	inputPath := cmd.String("input")

	types, err := parseTypes(cmd.String("types"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	provider, library, err := formatter.ParseLibraryExport(data)
	if err != nil {
		return err
	}

	sessions, err := r.loadSessions()
	if err != nil {
		return err
	}
	source, err := sessions.Get("source")
	if err != nil {
		return err
	}
	if source.Provider != provider {
		return fmt.Errorf("%w: export is from %s but the source account is %s",
			shared.ErrInvalidInput, provider, source.Provider)
	}

	r.logger.Info("restoring from export", "path", inputPath, "provider", provider,
		"items", library.Total(models.TransferOrder))

	return r.runTransfer(ctx, cmd, tasks.RunRequest{Types: types, Library: library})
}
