// submodule cmd contains command definitions
package main

import (
	"github.com/mietzen/catch-all-autofill/internal/formatter"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

// setupCommand initializes configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "domain",
				Usage: "Catch-all domain to store during setup",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Roll back every schema migration first, dropping all stored data",
			},
		},
		Action: r.Setup,
	}
}

// configCommand manages stored user settings.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage settings",
		Commands: []*cli.Command{
			{
				Name:  "domain",
				Usage: "Set the catch-all domain aliases are generated for",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "domain"},
				},
				Action: r.ConfigDomain,
			},
			{
				Name:   "show",
				Usage:  "Show settings (the token is masked)",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ConfigShow,
			},
		},
	}
}

// generateCommand issues an alias.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen", "g"},
		Usage:   "Generate a unique alias and record it in the usage log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "site",
				Aliases: []string{"s"},
				Usage:   "Site (host or URL) the alias is for",
			},
			&cli.BoolFlag{
				Name:  "no-log",
				Usage: "Do not record the alias in the usage log",
			},
			jsonFlag(),
		},
		Action: r.Generate,
	}
}

// validateCommand re-checks an address.
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate an email address",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "email"},
		},
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Validate,
	}
}

// wordlistCommand handles wordlist selection and caching.
func wordlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "wordlist",
		Aliases: []string{"words"},
		Usage:   "Select and inspect wordlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List bundled wordlists",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.WordlistList,
			},
			{
				Name:  "use",
				Usage: "Select a bundled wordlist by code",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "code"},
				},
				Action: r.WordlistUse,
			},
			{
				Name:  "custom",
				Usage: "Select and load a wordlist from a URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.WordlistCustom,
			},
			{
				Name:   "reload",
				Usage:  "Clear caches and reload the active wordlist",
				Action: r.WordlistReload,
			},
			{
				Name:   "info",
				Usage:  "Show the active wordlist, its size and a preview",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.WordlistInfo,
			},
			{
				Name:  "clear-cache",
				Usage: "Clear the in-memory wordlist cache",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "durable",
						Usage: "Also remove stored wordlists",
					},
				},
				Action: r.WordlistClearCache,
			},
		},
	}
}

// historyCommand handles usage log views.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"log"},
		Usage:   "Browse and manage the usage log",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List issued aliases, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "domain",
						Aliases: []string{"d"},
						Usage:   "Only show aliases issued for this site",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Only show aliases or sites containing this text",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to show (0 for all)",
					},
					jsonFlag(),
				},
				Action: r.HistoryList,
			},
			{
				Name:  "delete",
				Usage: "Delete one entry matching alias, site and date exactly",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Alias to delete",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "domain",
						Usage: "Site the alias was issued for",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Timestamp of the entry as shown by 'history list --json'",
					},
				},
				Action: r.HistoryDelete,
			},
			{
				Name:  "clear",
				Usage: "Delete the entire usage log",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm clearing the log",
					},
				},
				Action: r.HistoryClear,
			},
			{
				Name:  "export",
				Usage: "Export the usage log",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, json, md, txt)",
						Value:   string(formatter.CSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, - for stdout (default: email_log_<date>.<ext>)",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}

// backupCommand handles local and remote backups.
func backupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export, import and synchronise backups",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write a backup document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, - for stdout (default: catch_all_email_backup_<date>.json)",
					},
				},
				Action: r.BackupExport,
			},
			{
				Name:  "import",
				Usage: "Import a backup document, replacing the usage log",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.BackupImport,
			},
			{
				Name:   "status",
				Usage:  "Show the outcome of the last remote backup",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.BackupStatus,
			},
			{
				Name:  "github",
				Usage: "GitHub repository backups",
				Commands: []*cli.Command{
					{
						Name:  "configure",
						Usage: "Store the repository, branch and token",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "token",
								Usage:   "Personal access token with contents write access",
								Sources: cli.EnvVars("CATCHALL_GITHUB_TOKEN"),
							},
							&cli.StringFlag{
								Name:  "repo",
								Usage: "Repository as owner/repo",
							},
							&cli.StringFlag{
								Name:  "branch",
								Usage: "Branch to commit to",
							},
							&cli.BoolFlag{
								Name:  "auto",
								Usage: "Back up automatically after each new alias",
							},
						},
						Action: r.GitHubConfigure,
					},
					{
						Name:   "test",
						Usage:  "Check that the repository is reachable with the stored token",
						Action: r.GitHubTest,
					},
					{
						Name:   "push",
						Usage:  "Upload a backup now",
						Action: r.GitHubPush,
					},
					{
						Name:  "restore",
						Usage: "Download a backup from the repository and import it",
						Arguments: []cli.Argument{
							&cli.StringArg{Name: "path"},
						},
						Action: r.GitHubRestore,
					},
				},
			},
		},
	}
}

// serveCommand runs the local alias API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the local alias API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] in the config file)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for browsing the usage log.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse the usage log interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving log output while the TUI runs",
				Value: "./tmp/catchall-tui.log",
			},
		},
		Action: r.TUI,
	}
}
