// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// modeCommand inspects and switches the active storage mode
func modeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mode",
		Usage: "Inspect or switch the active storage mode",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Print the active storage mode",
				Action: r.ModeGet,
			},
			{
				Name:  "set",
				Usage: "Switch to a storage mode (cloud, local, demo)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "mode",
					},
				},
				Action: r.ModeSet,
			},
		},
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Dataset export operations",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Export the whole dataset to a portable snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (defaults to the configured export directory)",
					},
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to export (defaults to the configured tenant)",
					},
					&cli.StringSliceFlag{
						Name:    "entity",
						Aliases: []string{"e"},
						Usage:   "Entity type to export (repeatable, defaults to all)",
					},
					&cli.BoolFlag{
						Name:  "split",
						Usage: "Also write one delimited file per entity",
					},
				},
				Action: r.ExportRun,
			},
		},
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Dataset import operations",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Restore a portable snapshot into the active backend",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "file",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to import into (defaults to the configured tenant)",
					},
					&cli.StringSliceFlag{
						Name:    "entity",
						Aliases: []string{"e"},
						Usage:   "Entity type to import (repeatable, defaults to all)",
					},
					&cli.BoolFlag{
						Name:  "skip-duplicates",
						Usage: "Skip records that already exist instead of failing",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Import valid records past rejected ones",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate the snapshot without writing anything",
					},
				},
				Action: r.ImportRun,
			},
		},
	}
}

// accountCommand handles account operations against the active backend
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "account",
		Aliases: []string{"acct"},
		Usage:   "Account operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List accounts with balances",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to list (defaults to the configured tenant)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AccountList,
			},
			{
				Name:  "create",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Account name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "category",
						Usage:    "Account category id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "currency",
						Usage: "ISO 4217 currency code",
						Value: "USD",
					},
					&cli.StringFlag{
						Name:  "balance",
						Usage: "Opening balance",
						Value: "0",
					},
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to create under (defaults to the configured tenant)",
					},
				},
				Action: r.AccountCreate,
			},
		},
	}
}

func recurringCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recurring",
		Usage: "Recurring transaction schedules",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Materialize every due schedule into transactions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to run (defaults to the configured tenant)",
					},
				},
				Action: r.RecurringRun,
			},
		},
	}
}

func demoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Demo dataset operations",
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Seed the active backend with the sample dataset",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant to seed (defaults to the configured tenant)",
					},
				},
				Action: r.DemoSeed,
			},
		},
	}
}
