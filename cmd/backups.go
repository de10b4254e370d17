package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/backup"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
	"github.com/urfave/cli/v3"
)

// BackupExport writes a backup document to a file or stdout.
func (r *Runner) BackupExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	doc, err := r.backups.Export(ctx)
	if err != nil {
		return err
	}
	data, err := backup.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	path := cmd.String("output")
	if path == "-" {
		_, err := r.output.Write(append(data, '\n'))
		return err
	}
	if path == "" {
		path = backup.ExportFilename(time.Now())
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	r.logger.Info("backup exported", "path", path, "aliases", len(doc.UsageLog))
	return r.writePlain("✓ Exported %d aliases to %s\n", len(doc.UsageLog), path)
}

// BackupImport applies a backup document from a file.
func (r *Runner) BackupImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	doc, err := backup.ParseDocument(f)
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	result, err := r.backups.Import(ctx, doc)
	if err != nil {
		return err
	}
	r.cache.Clear()

	return r.writePlain("✓ Imported %d settings and %d aliases\n", result.SettingsImported, result.AliasesImported)
}

// BackupStatus prints the outcome of the last remote backup.
func (r *Runner) BackupStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	settings, err := r.settings.Load(ctx)
	if err != nil {
		return err
	}
	status := settings.LastBackup

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Backup status")
	r.writePlain("Repository:  %s (%s)\n", orNone(settings.GitHub.Repository), settings.GitHub.BranchOrDefault())
	r.writePlain("Auto backup: %t\n", settings.GitHub.AutoBackup)
	if status.Date.IsZero() {
		r.writePlain("Last backup: never\n")
	} else {
		r.writePlain("Last backup: %s\n", status.Date.Local().Format(time.DateTime))
		r.writePlain("URL:         %s\n", orNone(status.URL))
	}
	if status.Error != "" {
		if !status.FailedAt.IsZero() {
			r.writePlain("Failed at:   %s\n", status.FailedAt.Local().Format(time.DateTime))
		}
		r.writePlain("Last error:  %s\n", status.Error)
	}
	return nil
}

// GitHubConfigure merges the given flags into the stored remote settings and validates them.
func (r *Runner) GitHubConfigure(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	settings, err := r.settings.Load(ctx)
	if err != nil {
		return err
	}

	gh := settings.GitHub
	gh.Token = cmd.String("token")
	if cmd.IsSet("repo") {
		gh.Repository = cmd.String("repo")
	}
	if cmd.IsSet("branch") {
		gh.Branch = cmd.String("branch")
	}
	if cmd.IsSet("auto") {
		gh.AutoBackup = cmd.Bool("auto")
	}
	gh.Branch = gh.BranchOrDefault()

	updated, err := r.engine.Configure(ctx, gh)
	if err != nil {
		return err
	}

	r.writePlain("✓ GitHub backup configured\n")
	r.writePlain("  Repository:  %s (%s)\n", updated.GitHub.Repository, updated.GitHub.Branch)
	r.writePlain("  Token:       %s\n", shared.MaskSecret(updated.GitHub.Token))
	r.writePlain("  Auto backup: %t\n", updated.GitHub.AutoBackup)
	return nil
}

// GitHubTest checks the stored credentials against the repository.
func (r *Runner) GitHubTest(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	repo, err := r.engine.TestConnection(ctx)
	if err != nil {
		return err
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}
	return r.writePlain("✓ Connected to %s (%s, default branch %s)\n", repo.FullName, visibility, repo.DefaultBranch)
}

// GitHubPush uploads a manual backup and reports progress.
func (r *Runner) GitHubPush(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	var result *tasks.PushResult
	err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = r.engine.Push(ctx, true, progress)
		return err
	})
	if err != nil {
		return err
	}

	verb := "Created"
	if result.Replaced {
		verb = "Updated"
	}
	return r.writePlainln("✓ %s %s\n  %s", verb, result.Path, result.URL)
}

// GitHubRestore downloads a remote backup and imports it.
func (r *Runner) GitHubRestore(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	var result backup.ImportResult
	err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = r.engine.Restore(ctx, path, progress)
		return err
	})
	if err != nil {
		return err
	}
	r.cache.Clear()

	return r.writePlainln("✓ Restored %d settings and %d aliases from %s", result.SettingsImported, result.AliasesImported, path)
}

// withProgress runs fn while printing its progress updates.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("→ [%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	err := fn(progress)
	close(progress)
	wg.Wait()
	return err
}
