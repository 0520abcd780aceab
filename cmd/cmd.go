// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func roleFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "role",
		Aliases: []string{"r"},
		Usage:   "Account role: source or target",
		Value:   "source",
	}
}

func typesFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "types",
		Aliases: []string{"t"},
		Usage:   "Comma-separated item types (tracks,albums,artists,playlists); empty = all",
	}
}

// setupCommand initializes local state: config file and match-cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the match cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles account authentication for both roles.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate source and target accounts",
		Commands: []*cli.Command{
			{
				Name:   "tidal",
				Usage:  "Authenticate with Tidal using the device-code flow",
				Flags:  []cli.Flag{roleFlag()},
				Action: r.AuthTidal,
			},
			{
				Name:  "qobuz",
				Usage: "Authenticate with Qobuz using email and password",
				Flags: []cli.Flag{
					roleFlag(),
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Qobuz account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Qobuz account password",
						Required: true,
					},
				},
				Action: r.AuthQobuz,
			},
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{roleFlag()},
				Action: r.AuthSpotify,
			},
			{
				Name:   "status",
				Usage:  "Show which accounts are authenticated",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session for a role",
				Flags:  []cli.Flag{roleFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// libraryCommand reads favorites from an authenticated account.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Inspect and export account favorites",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Summarize favorites counts per item type",
				Flags:  []cli.Flag{roleFlag(), typesFlag()},
				Action: r.LibraryList,
			},
			{
				Name:  "export",
				Usage: "Export favorites as JSON or CSV",
				Flags: []cli.Flag{
					roleFlag(),
					typesFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json or csv",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path; empty writes to stdout",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// transferCommand runs the favorites transfer between the two roles.
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Replicate source favorites into the target account",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Transfer favorites from the source to the target account",
				Flags: []cli.Flag{
					typesFlag(),
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a failure report to this file",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the run report as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Skip the persistent match cache",
					},
				},
				Action: r.TransferRun,
			},
			{
				Name:  "restore",
				Usage: "Replay a library export into the target account",
				Flags: []cli.Flag{
					typesFlag(),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Library export file produced by `favx library export`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a failure report to this file",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Skip the persistent match cache",
					},
				},
				Action: r.TransferRestore,
			},
		},
	}
}

// cacheCommand inspects the persistent match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Match cache maintenance",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many matches are cached",
				Action: r.CacheStats,
			},
		},
	}
}

// tuiCommand launches the interactive transfer view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive transfer with live progress",
		Flags: []cli.Flag{
			typesFlag(),
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the persistent match cache",
			},
		},
		Action: r.TUI,
	}
}
