package main

import (
	"context"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/server"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
	"github.com/urfave/cli/v3"
)

const flushTimeout = 30 * time.Second

// Serve runs the local alias API until interrupted. Issued aliases schedule a debounced
// auto backup, and a pending backup is flushed before exit.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	debouncer := tasks.NewDebouncer(r.config.Backup.DebounceDelay(), r.engine.AutoBackup, shared.WithLogger(r.logger, "component", "debounce"))
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go debouncer.Run(runCtx)

	logger := shared.WithLogger(r.logger, "component", "server")
	api := server.NewAPI(r.aliasService(debouncer), r.usage, logger)
	serveErr := server.Serve(ctx, addr, server.NewHandler(api, logger), logger)

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := debouncer.Flush(flushCtx); err != nil {
		r.logger.Warn("pending backup not flushed", "err", err)
	}
	return serveErr
}
