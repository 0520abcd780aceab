package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheStats reports the size of the persistent match cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openMatchCache()
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := repo.Count()
	if err != nil {
		return err
	}

	r.writePlain("Match cache: %s\n", r.config.Cache.Path)
	return r.writePlain("Cached matches: %d\n", count)
}
