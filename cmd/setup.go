package main

import (
	"context"
	"fmt"
	"os"

	"github.com/favx/favx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if needed and initializes the match cache.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	r.config = config
	r.configPath = configPath

	r.logger.Info("initializing match cache", "path", config.Cache.Path)

	db, _, err := r.openMatchCache()
	if err != nil {
		return fmt.Errorf("failed to initialize match cache: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for match cache: %v", config.Cache.Path)
	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Match cache: %s\n", config.Cache.Path)
	r.writePlain("\nNext steps:\n")
	r.writePlain("1. Add Spotify credentials to %s if you use Spotify\n", configPath)
	r.writePlain("2. Run 'favx auth <provider> --role source' and '--role target'\n")
	r.writePlain("3. Run 'favx transfer run'\n")

	return nil
}
