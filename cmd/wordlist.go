package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/wordlist"
	"github.com/urfave/cli/v3"
)

const previewSize = 10

// WordlistInfo describes the active wordlist.
type WordlistInfo struct {
	Selection string   `json:"selection"`
	URL       string   `json:"url,omitempty"`
	Served    string   `json:"served"`
	Error     string   `json:"error,omitempty"`
	Size      int      `json:"size"`
	Preview   []string `json:"preview"`
	Cached    []string `json:"cached"`
}

// WordlistList prints the bundled locales and marks the active one.
func (r *Runner) WordlistList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	settings, err := r.settings.Load(ctx)
	if err != nil {
		return err
	}
	active := settings.Selector()

	if cmd.Bool("json") {
		return r.writeJSON(wordlist.Locales(), true)
	}

	r.writePlainHeader("Wordlists")
	for _, l := range wordlist.Locales() {
		marker := " "
		if !active.IsCustom() && active.Code == l.Code {
			marker = "*"
		}
		r.writePlain("%s %s  %-8s (%s)\n", marker, l.Code, l.Name, l.Flag)
	}
	if active.IsCustom() {
		r.writePlain("* %s  %s\n", models.CustomSelection, active.URL)
	}
	return nil
}

// WordlistUse selects a bundled wordlist.
func (r *Runner) WordlistUse(ctx context.Context, cmd *cli.Command) error {
	code := strings.ToLower(cmd.StringArg("code"))
	if code == "" {
		return fmt.Errorf("%w: code", shared.ErrMissingArgument)
	}
	if code == models.CustomSelection {
		return fmt.Errorf("%w: use 'wordlist custom <url>' for custom wordlists", shared.ErrInvalidArgument)
	}

	sel, err := wordlist.ParseSelection(code, "")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	if _, err := r.settings.Update(ctx, func(s *models.Settings) error {
		s.WordlistSelection = sel.Selection()
		return nil
	}); err != nil {
		return err
	}
	r.cache.Clear()

	pool, err := r.loadSelected(ctx, sel, false)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Using %s wordlist (%d words)\n", sel, pool.Len())
}

// WordlistCustom validates and force-loads a remote wordlist, then selects it.
// Nothing is stored when the list cannot be loaded.
func (r *Runner) WordlistCustom(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	if err := generator.ValidateURL(url); err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	sel := models.CustomSelector(url)
	if _, err := r.clearCaches(ctx); err != nil {
		return err
	}
	pool, err := r.loadSelected(ctx, sel, true)
	if err != nil {
		return err
	}

	if _, err := r.settings.Update(ctx, func(s *models.Settings) error {
		s.WordlistSelection = models.CustomSelection
		s.WordlistURL = url
		return nil
	}); err != nil {
		return err
	}
	return r.writePlain("✓ Loaded %d words from %s\n", pool.Len(), url)
}

// WordlistReload clears both cache tiers and force-loads the active wordlist.
func (r *Runner) WordlistReload(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	sel, err := r.selector(ctx)
	if err != nil {
		return err
	}
	if _, err := r.clearCaches(ctx); err != nil {
		return err
	}

	pool, err := r.loadSelected(ctx, sel, true)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Reloaded %s wordlist (%d words)\n", sel, pool.Len())
}

// WordlistInfo prints the active selector, pool size and a short preview.
func (r *Runner) WordlistInfo(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	sel, err := r.selector(ctx)
	if err != nil {
		return err
	}

	res, err := r.cache.Resolve(ctx, sel, false)
	if err != nil {
		return err
	}
	cached, err := r.cache.Keys(ctx)
	if err != nil {
		return err
	}

	info := WordlistInfo{
		Selection: sel.Selection(),
		URL:       sel.URL,
		Served:    res.Selector.Selection(),
		Size:      res.Pool.Len(),
		Preview:   res.Pool.Preview(previewSize),
		Cached:    cached,
	}
	if res.FellBack() {
		info.Error = res.Cause.Error()
	}
	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	r.writePlainHeader("Wordlist")
	r.writePlain("Selection: %s\n", sel)
	if res.FellBack() {
		r.writePlain("Serving:   %s (selected list unavailable: %s)\n", res.Selector, info.Error)
	}
	r.writePlain("Words:     %d\n", info.Size)
	r.writePlain("Preview:   %s\n", strings.Join(info.Preview, ", "))
	r.writePlain("Cached:    %d stored wordlists\n", len(info.Cached))
	return nil
}

// WordlistClearCache clears the in-memory tier and, with --durable, stored wordlists.
func (r *Runner) WordlistClearCache(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	if !cmd.Bool("durable") {
		r.cache.Clear()
		return r.writePlain("✓ In-memory wordlist cache cleared\n")
	}

	n, err := r.clearCaches(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Wordlist caches cleared (%d stored entries removed)\n", n)
}

func (r *Runner) clearCaches(ctx context.Context) (int, error) {
	r.cache.Clear()
	return r.cache.ClearDurable(ctx)
}

// loadSelected loads sel and fails when only the fallback list could be served.
func (r *Runner) loadSelected(ctx context.Context, sel models.Selector, force bool) (*wordlist.Pool, error) {
	res, err := r.cache.Resolve(ctx, sel, force)
	if err != nil {
		return nil, err
	}
	if res.FellBack() {
		return nil, fmt.Errorf("failed to load %s wordlist: %w", sel, res.Cause)
	}
	return res.Pool, nil
}
