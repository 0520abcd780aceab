package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/favx/favx/internal/formatter"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/providers"
	"github.com/favx/favx/internal/shared"
	"github.com/urfave/cli/v3"
)

// parseTypes parses a comma-separated item-type list. Empty input selects
// every type in transfer order.
func parseTypes(raw string) ([]models.ItemType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var types []models.ItemType
	for _, part := range strings.Split(raw, ",") {
		t, err := models.ParseItemType(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// fetchLibrary reads the favorites of the requested types from an account.
func (r *Runner) fetchLibrary(ctx context.Context, catalog providers.Catalog, account *models.Account, types []models.ItemType) (models.Library, error) {
	if len(types) == 0 {
		types = models.TransferOrder
	}

	library := models.Library{}
	for _, t := range models.TransferOrder {
		wanted := false
		for _, req := range types {
			if req == t {
				wanted = true
				break
			}
		}
		if !wanted {
			continue
		}

		items, err := catalog.ListFavorites(ctx, account, t)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", t, err)
		}
		library[t] = items
		r.logger.Info("fetched favorites", "type", t, "count", len(items))
	}
	return library, nil
}

// LibraryList summarizes an account's favorites counts.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")

	types, err := parseTypes(cmd.String("types"))
	if err != nil {
		return err
	}

	account, catalog, err := r.account(role)
	if err != nil {
		return err
	}

	r.logger.Info("listing library", "role", role, "provider", account.Provider)
	library, err := r.fetchLibrary(ctx, catalog, account, types)
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.LibraryStats(account.Provider, library))
}

// LibraryExport writes an account's favorites as JSON or CSV.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	types, err := parseTypes(cmd.String("types"))
	if err != nil {
		return err
	}

	account, catalog, err := r.account(role)
	if err != nil {
		return err
	}

	library, err := r.fetchLibrary(ctx, catalog, account, types)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = formatter.ExportLibrary(account.Provider, library)
	case "csv":
		data, err = formatter.ExportLibraryCSV(library)
	default:
		return fmt.Errorf("%w: format must be json or csv, got %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		return r.writePlain("%s", string(data))
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	r.logger.Info("library exported", "path", outputPath, "items", library.Total(models.TransferOrder))
	return r.writePlain("✓ Exported %d items to %s\n", library.Total(models.TransferOrder), outputPath)
}
