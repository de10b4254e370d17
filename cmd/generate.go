package main

import (
	"context"
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/urfave/cli/v3"
)

// Generate issues an alias for the configured domain and records it unless --no-log is set.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	aliases := r.aliasService(autoBackupTrigger{ctx: ctx, r: r})
	result, err := aliases.Issue(ctx, cmd.String("site"), !cmd.Bool("no-log"))
	if err != nil {
		return err
	}

	if result.Alias.Degraded {
		r.logger.Warn("usage log unavailable, uniqueness of this alias is unverified", "alias", result.Alias.Address)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlain("%s\n", result.Alias.Address)
}

// Validate re-checks an address and fails when it is invalid.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}

	result := generator.Validate(email)
	if cmd.Bool("json") {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
		return result.Err()
	}

	if result.Valid {
		return r.writePlain("✓ %s is valid\n", email)
	}
	r.writePlain("✗ %s is invalid\n", email)
	for _, e := range result.Errors {
		r.writePlain("  • %s\n", e)
	}
	return result.Err()
}
