// Package formatter serializes library snapshots and run reports for
// export: JSON for machine-readable backup/restore, CSV for
// spreadsheets, plain text for failure reports.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
	"github.com/favx/favx/internal/tasks"
)

// ExportEntry is one item in a library export. Only the identity
// survives; the restore path re-favorites by id on the same provider.
type ExportEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LibraryExport is the JSON backup format for one account's favorites.
type LibraryExport struct {
	Provider   models.Provider `json:"provider,omitempty"`
	Tracks     []ExportEntry   `json:"tracks"`
	Albums     []ExportEntry   `json:"albums"`
	Artists    []ExportEntry   `json:"artists"`
	Playlists  []ExportEntry   `json:"playlists"`
	ExportedAt time.Time       `json:"exportedAt"`
}

func entries(items []models.Item) []ExportEntry {
	out := make([]ExportEntry, 0, len(items))
	for _, item := range items {
		out = append(out, ExportEntry{ID: item.ID, Name: item.Name})
	}
	return out
}

// ExportLibrary converts a library snapshot into its JSON backup form.
func ExportLibrary(provider models.Provider, library models.Library) ([]byte, error) {
	export := LibraryExport{
		Provider:   provider,
		Tracks:     entries(library[models.Tracks]),
		Albums:     entries(library[models.Albums]),
		Artists:    entries(library[models.Artists]),
		Playlists:  entries(library[models.Playlists]),
		ExportedAt: time.Now().UTC(),
	}
	return shared.MarshalJSON(export, true)
}

// ParseLibraryExport reads a JSON backup back into a library snapshot
// for the restore path.
func ParseLibraryExport(data []byte) (models.Provider, models.Library, error) {
	var export LibraryExport
	if err := json.Unmarshal(data, &export); err != nil {
		return "", nil, fmt.Errorf("%w: failed to parse library export: %v", shared.ErrInvalidInput, err)
	}

	library := models.Library{}
	restore := func(t models.ItemType, src []ExportEntry) {
		items := make([]models.Item, 0, len(src))
		for _, e := range src {
			items = append(items, models.Item{ID: e.ID, Name: e.Name})
		}
		library[t] = items
	}
	restore(models.Tracks, export.Tracks)
	restore(models.Albums, export.Albums)
	restore(models.Artists, export.Artists)
	restore(models.Playlists, export.Playlists)

	return export.Provider, library, nil
}

// ExportLibraryCSV converts a library snapshot to CSV with columns:
// Type, ID, Name, Artists, Album.
func ExportLibraryCSV(library models.Library) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Type", "ID", "Name", "Artists", "Album"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range models.TransferOrder {
		for _, item := range library[t] {
			record := []string{
				string(t),
				item.ID,
				item.Name,
				strings.Join(item.Artists, "; "),
				item.Album,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// LibraryStats renders per-type item counts as aligned plain text.
func LibraryStats(provider models.Provider, library models.Library) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Library (%s)\n", provider)
	for _, t := range models.TransferOrder {
		fmt.Fprintf(&buf, "  %-10s %d\n", t, len(library[t]))
	}
	fmt.Fprintf(&buf, "  %-10s %d\n", "total", library.Total(models.TransferOrder))
	return buf.String()
}

// FailureReport renders a run's failed items as plain text: a header
// with version, timestamp, operation and failure count, then one line
// per failed item.
func FailureReport(version string, report *tasks.Report) string {
	failures := report.Failures()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "favx %s failure report\n", version)
	fmt.Fprintf(&buf, "generated: %s\n", report.Finished.Format(time.RFC3339))
	fmt.Fprintf(&buf, "operation: transfer %s -> %s (run %s)\n", report.Source, report.Target, report.RunID)
	fmt.Fprintf(&buf, "failures: %d of %d\n", len(failures), len(report.Outcomes))

	if len(failures) == 0 {
		return buf.String()
	}

	buf.WriteString("\n")
	for _, o := range failures {
		fmt.Fprintf(&buf, "- [%s] %s (id:%s): %s\n", o.Type, o.Item.Name, o.Item.ID, o.Err)
	}
	return buf.String()
}

// ReportJSON renders the full run report as JSON.
func ReportJSON(report *tasks.Report) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}
