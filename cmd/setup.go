package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.String("domain")
	if domain != "" {
		if err := generator.ValidateDomain(domain); err != nil {
			return err
		}
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(r.configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			r.config = config
		}
	}

	if cmd.Bool("reset") {
		if err := r.reset(ctx); err != nil {
			return err
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.open(ctx); err != nil {
		return err
	}

	version, err := shared.SchemaVersion(ctx, r.db)
	if err != nil {
		return err
	}

	settings, err := r.settings.Update(ctx, func(s *models.Settings) error {
		if domain != "" {
			s.CatchAllDomain = domain
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("  Config:         %s\n", r.configPath)
	r.writePlain("  Database:       %s (schema v%d, data v%d)\n", r.config.Database.Path, version, settings.DataVersion)
	if settings.CatchAllDomain == "" {
		r.writePlainln("Next: run 'catchall config domain <your-domain>' to set the catch-all domain.")
	} else {
		r.writePlain("  Catch-all domain: %s\n", settings.CatchAllDomain)
	}
	return nil
}

// reset rolls the schema back to empty so the following open recreates it.
func (r *Runner) reset(ctx context.Context) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := shared.ResetMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	r.settings = nil
	r.logger.Warn("database reset, settings and usage log dropped", "migrations", n)
	return nil
}

// ConfigDomain validates and stores the catch-all domain.
func (r *Runner) ConfigDomain(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.StringArg("domain")
	if domain == "" {
		return fmt.Errorf("%w: domain", shared.ErrMissingArgument)
	}
	if err := generator.ValidateDomain(domain); err != nil {
		return err
	}

	if err := r.open(ctx); err != nil {
		return err
	}
	if _, err := r.settings.Update(ctx, func(s *models.Settings) error {
		s.CatchAllDomain = domain
		return nil
	}); err != nil {
		return err
	}

	r.logger.Info("catch-all domain updated", "domain", domain)
	return r.writePlain("✓ Catch-all domain set to %s\n", domain)
}

// ConfigShow prints the stored settings with the token masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	settings, err := r.settings.Load(ctx)
	if err != nil {
		return err
	}
	settings.GitHub.Token = shared.MaskSecret(settings.GitHub.Token)

	if cmd.Bool("json") {
		return r.writeJSON(settings, true)
	}

	r.writePlainHeader("Settings")
	r.writePlain("Catch-all domain: %s\n", orNone(settings.CatchAllDomain))
	r.writePlain("Wordlist:         %s\n", settings.Selector())
	r.writePlain("Data version:     %d\n", settings.DataVersion)
	r.writePlain("Installation ID:  %s\n", orNone(settings.InstallationID))
	r.writePlainln("GitHub backup")
	r.writePlain("  Repository:     %s\n", orNone(settings.GitHub.Repository))
	r.writePlain("  Branch:         %s\n", settings.GitHub.BranchOrDefault())
	r.writePlain("  Token:          %s\n", orNone(settings.GitHub.Token))
	r.writePlain("  Auto backup:    %t\n", settings.GitHub.AutoBackup)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
