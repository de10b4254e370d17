package main

import (
	"context"
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive usage log browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.open(ctx); err != nil {
		return err
	}

	issuer := r.aliasService(autoBackupTrigger{ctx: ctx, r: r})
	return ui.Run(ctx, r.usage, issuer)
}
