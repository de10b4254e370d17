package main

import (
	"context"
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/formatter"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the usage log newest first, optionally filtered.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	records, err := r.records(ctx, cmd.String("domain"), cmd.String("search"))
	if err != nil {
		return err
	}
	models.SortNewestFirst(records)
	if limit := int(cmd.Int("limit")); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	if cmd.Bool("json") {
		entries := make([]models.BackupLogEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, rec.Entry())
		}
		return r.writeJSON(entries, true)
	}

	if len(records) == 0 {
		return r.writePlain("No aliases issued yet.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Usage log (%d)", len(records)))
	for _, rec := range records {
		date := "-"
		if !rec.CreatedAt.IsZero() {
			date = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		r.writePlain("%-16s  %-24s  %s\n", date, rec.Domain, rec.Alias)
	}
	return nil
}

// HistoryDelete removes the entry matching alias, site and date exactly.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	at, err := models.ParseTimestamp(cmd.String("date"))
	if err != nil {
		return fmt.Errorf("%w: --date: %w", shared.ErrInvalidFlag, err)
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	rec := models.UsageRecord{Domain: cmd.String("domain"), Alias: cmd.String("email"), CreatedAt: at}
	deleted, err := r.usage.Delete(ctx, rec)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: no entry for %s on %q at %q", shared.ErrNotFound, rec.Alias, rec.Domain, rec.Timestamp())
	}

	r.logger.Info("usage entry deleted", "alias", rec.Alias, "site", rec.Domain)
	return r.writePlain("✓ Deleted %s\n", rec.Alias)
}

// HistoryClear empties the usage log. It refuses to run without --yes.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: clearing the usage log cannot be undone, pass --yes to confirm", shared.ErrMissingArgument)
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	n, err := r.usage.Count(ctx)
	if err != nil {
		return err
	}
	if err := r.usage.Clear(ctx); err != nil {
		return err
	}

	r.logger.Warn("usage log cleared", "entries", n)
	return r.writePlain("✓ Cleared %d entries\n", n)
}

// HistoryExport writes the usage log in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	records, err := r.usage.All(ctx)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "-" {
		data, err := formatter.Export(format, records)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteExport(format, records, output)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d entries to %s\n", len(records), path)
}

func (r *Runner) records(ctx context.Context, domain, search string) ([]models.UsageRecord, error) {
	switch {
	case domain != "":
		return r.usage.ListByDomain(ctx, tasks.SiteDomain(domain))
	case search != "":
		return r.usage.Search(ctx, search)
	default:
		return r.usage.All(ctx)
	}
}
