package tasks

import (
	"fmt"

	"github.com/favx/favx/internal/models"
)

// ProgressUpdate represents a progress event during a transfer run.
//
// Used to send real-time updates to the CLI or TUI layer for display.
type ProgressUpdate struct {
	Phase   Phase           // Operation phase
	Type    models.ItemType // Item type being processed, when applicable
	Step    int             // Current step number within phase
	Total   int             // Total steps in this phase
	Message string          // Human-readable message for display
	Data    any             // Optional phase-specific data for advanced UIs
}

// Phase enumerates the stages of a transfer run.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseFetch
	PhaseTransfer
	PhasePlaylist
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseFetch:
		return "fetch"
	case PhaseTransfer:
		return "transfer"
	case PhasePlaylist:
		return "playlist"
	case PhaseFinalize:
		return "finalize"
	default:
		return ""
	}
}

func initUpdate(source, target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseInit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Starting transfer %s -> %s...", source, target),
	}
}

func fetchUpdate(t models.ItemType, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetch,
		Type:    t,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Reading %s from source...", t),
	}
}

func fetchedUpdate(t models.ItemType, count, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetch,
		Type:    t,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found %d %s", count, t),
	}
}

func itemUpdate(t models.ItemType, item models.Item, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseTransfer,
		Type:    t,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, item.Name),
		Data:    item,
	}
}

func outcomeUpdate(o models.Outcome, step, total int) ProgressUpdate {
	mark := "+"
	switch o.Status {
	case models.StatusSkipped:
		mark = "~"
	case models.StatusFailed:
		mark = "!"
	}
	return ProgressUpdate{
		Phase:   PhaseTransfer,
		Type:    o.Type,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, o.Item.Name),
		Data:    o,
	}
}

func playlistUpdate(name string, matched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePlaylist,
		Type:    models.Playlists,
		Step:    matched,
		Total:   total,
		Message: fmt.Sprintf("Playlist %s: matched %d/%d tracks", name, matched, total),
	}
}

func finalizeUpdate(report *Report) ProgressUpdate {
	return ProgressUpdate{
		Phase: PhaseFinalize,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Done: %d added, %d skipped, %d failed",
			report.Added, report.Skipped, report.Failed),
		Data: report,
	}
}
