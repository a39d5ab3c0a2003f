// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func phaseFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of workouts to process (0 = all)",
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Strava authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Strava authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Strava using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check stored Strava credentials",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// inventoryCommand loads and inspects the workout inventory.
func inventoryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Manage the workout inventory",
		Commands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Load workouts from a MapMyRun export CSV",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "csv"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.InventoryLoad,
			},
			{
				Name:  "list",
				Usage: "List inventoried workouts and their states",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.InventoryList,
			},
		},
	}
}

// fetchCommand downloads TCX artifacts from MapMyRun.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "fetch",
		Usage:  "Download TCX artifacts for pending workouts",
		Flags:  phaseFlags(),
		Action: r.Fetch,
	}
}

// validateCommand validates downloaded artifacts.
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Validate downloaded TCX artifacts",
		Flags:  phaseFlags(),
		Action: r.Validate,
	}
}

// submitCommand uploads validated artifacts to Strava.
func submitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Upload validated workouts to Strava",
		Flags: append(phaseFlags(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be uploaded without calling Strava",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Uploads per batch before pausing",
			},
		),
		Action: r.Submit,
	}
}

// runCommand executes the full pipeline.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full fetch → validate → submit pipeline",
		Flags: append(phaseFlags(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be uploaded without calling Strava",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Uploads per batch before pausing",
			},
		),
		Action: r.RunAll,
	}
}

// statusCommand reports per-state counts, optionally as a live dashboard.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show migration progress",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Launch the interactive dashboard",
			},
		},
		Action: r.Status,
	}
}

// reportCommand exports a migration report.
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Export a migration report",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: csv, markdown, or text",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		},
		Action: r.Report,
	}
}
