package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/favx/favx/internal/shared"
	"github.com/favx/favx/internal/tasks"
	"github.com/favx/favx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the favorites transfer.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	types, err := parseTypes(cmd.String("types"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/favx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, sessions, cleanup, err := r.buildEngine(!cmd.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer cleanup()

	source, _ := sessions.Get("source")
	target, _ := sessions.Get("target")

	model := ui.NewModel(ctx, engine, source.Provider, target.Provider, tasks.RunRequest{Types: types})
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
