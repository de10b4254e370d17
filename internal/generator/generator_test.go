package generator

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/mietzen/catch-all-autofill/internal/shared"
	tu "github.com/mietzen/catch-all-autofill/internal/testing"
	"github.com/mietzen/catch-all-autofill/internal/wordlist"
)

type staticWords struct {
	pool *wordlist.Pool
	err  error
}

func (s staticWords) Words(context.Context) (*wordlist.Pool, error) { return s.pool, s.err }

// usageSet reports aliases in used as taken; err makes every lookup fail.
type usageSet struct {
	used  map[string]bool
	err   error
	calls int
}

func (u *usageSet) Exists(_ context.Context, alias string) (bool, error) {
	u.calls++
	if u.err != nil {
		return false, u.err
	}
	return u.used[alias], nil
}

// alwaysUsed claims every candidate already exists.
type alwaysUsed struct{}

func (alwaysUsed) Exists(context.Context, string) (bool, error) { return true, nil }

func mustPool(t *testing.T, min int, words ...string) *wordlist.Pool {
	t.Helper()
	pool, err := wordlist.NewPool(words, min)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	return pool
}

// domainOfLength builds a valid domain of exactly n characters ending in ".com".
func domainOfLength(t *testing.T, n int) string {
	t.Helper()
	remaining := n - len(".com")
	var labels []string
	for remaining > 63 {
		labels = append(labels, strings.Repeat("a", 63))
		remaining -= 64
	}
	labels = append(labels, strings.Repeat("b", remaining))
	domain := strings.Join(labels, ".") + ".com"
	if len(domain) != n {
		t.Fatalf("built domain of length %d, want %d", len(domain), n)
	}
	if err := ValidateDomain(domain); err != nil {
		t.Fatalf("built invalid domain: %v", err)
	}
	return domain
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)
	tenAA := strings.Fields(strings.Repeat("aa ", 10))

	t.Run("Shape", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		gen := New(staticWords{pool: pool}, &usageSet{}, logger)
		shape := regexp.MustCompile(`^(alpha|bravo)_(alpha|bravo)_([1-9][0-9]{2})@example\.com$`)

		for range 200 {
			alias, err := gen.GenerateAlias(ctx, "example.com")
			if err != nil {
				t.Fatalf("GenerateAlias failed: %v", err)
			}
			if !shape.MatchString(alias.Address) {
				t.Fatalf("unexpected alias %q", alias.Address)
			}
			if alias.Digits < 100 || alias.Digits > 999 {
				t.Fatalf("digits out of range: %d", alias.Digits)
			}
		}
	})

	t.Run("ScriptedDraws", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		rnd := tu.NewScriptedRand(1, 0, 0)
		gen := New(staticWords{pool: pool}, &usageSet{}, logger, WithRand(rnd))

		got, err := gen.Generate(ctx, "example.com")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if got != "bravo_alpha_100@example.com" {
			t.Errorf("unexpected alias %q", got)
		}
		if len(rnd.Calls) != 3 || rnd.Calls[0] != 2 || rnd.Calls[2] != DigitSpan {
			t.Errorf("unexpected draw bounds %v", rnd.Calls)
		}
	})

	t.Run("DigitBounds", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		rnd := tu.NewScriptedRand(0, 0, DigitSpan-1)
		gen := New(staticWords{pool: pool}, &usageSet{}, logger, WithRand(rnd))

		alias, err := gen.GenerateAlias(ctx, "example.com")
		if err != nil {
			t.Fatalf("GenerateAlias failed: %v", err)
		}
		if alias.Digits != 999 {
			t.Errorf("expected upper bound 999, got %d", alias.Digits)
		}
	})

	t.Run("RetriesTakenCandidate", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		rnd := tu.NewScriptedRand(0, 0, 0, 1, 1, 0)
		usage := &usageSet{used: map[string]bool{"alpha_alpha_100@example.com": true}}
		gen := New(staticWords{pool: pool}, usage, logger, WithRand(rnd))

		alias, err := gen.GenerateAlias(ctx, "example.com")
		if err != nil {
			t.Fatalf("GenerateAlias failed: %v", err)
		}
		if alias.Address != "bravo_bravo_100@example.com" {
			t.Errorf("unexpected alias %q", alias.Address)
		}
		if alias.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", alias.Attempts)
		}
	})

	t.Run("LengthBoundaryAccepted", func(t *testing.T) {
		pool := mustPool(t, 10, tenAA...)
		domain := domainOfLength(t, 244)
		gen := New(staticWords{pool: pool}, &usageSet{}, logger, WithRand(tu.NewScriptedRand(0, 0, 23)))

		got, err := gen.Generate(ctx, domain)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(got) != MaxAddressLength {
			t.Errorf("expected %d characters, got %d", MaxAddressLength, len(got))
		}
	})

	t.Run("LengthBoundaryRejected", func(t *testing.T) {
		pool := mustPool(t, 10, tenAA...)
		domain := domainOfLength(t, 245)
		usage := &usageSet{}
		gen := New(staticWords{pool: pool}, usage, logger)

		_, err := gen.Generate(ctx, domain)
		if !errors.Is(err, shared.ErrGenerationExhausted) {
			t.Fatalf("expected ErrGenerationExhausted, got %v", err)
		}
		if usage.calls != 0 {
			t.Errorf("over-long candidates must not reach the usage check, got %d calls", usage.calls)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		gen := New(staticWords{pool: pool}, alwaysUsed{}, logger)

		_, err := gen.Generate(ctx, "example.com")
		if !errors.Is(err, shared.ErrGenerationExhausted) {
			t.Errorf("expected ErrGenerationExhausted, got %v", err)
		}
		if errors.Is(err, shared.ErrSource) {
			t.Error("exhaustion must be distinct from source errors")
		}
	})

	t.Run("MaxAttempts", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		usage := &usageSet{used: map[string]bool{}}
		for _, a := range []string{"alpha", "bravo"} {
			for _, b := range []string{"alpha", "bravo"} {
				for d := 100; d <= 999; d++ {
					usage.used[a+"_"+b+"_"+strconv.Itoa(d)+"@example.com"] = true
				}
			}
		}
		gen := New(staticWords{pool: pool}, usage, logger, WithMaxAttempts(3))

		if _, err := gen.Generate(ctx, "example.com"); !errors.Is(err, shared.ErrGenerationExhausted) {
			t.Fatalf("expected ErrGenerationExhausted, got %v", err)
		}
		if usage.calls != 3 {
			t.Errorf("expected 3 checks, got %d", usage.calls)
		}
	})

	t.Run("FailOpen", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		usage := &usageSet{err: errors.New("database is locked")}
		gen := New(staticWords{pool: pool}, usage, logger)

		alias, err := gen.GenerateAlias(ctx, "example.com")
		if err != nil {
			t.Fatalf("usage failures must not block generation: %v", err)
		}
		if !alias.Degraded {
			t.Error("expected the alias to be marked degraded")
		}
	})

	t.Run("SourceFailure", func(t *testing.T) {
		gen := New(staticWords{err: shared.ErrNoWordlist}, &usageSet{}, logger)

		if _, err := gen.Generate(ctx, "example.com"); !errors.Is(err, shared.ErrNoWordlist) {
			t.Errorf("expected ErrNoWordlist, got %v", err)
		}
	})

	t.Run("InvalidDomain", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		gen := New(staticWords{pool: pool}, &usageSet{}, logger)

		for _, d := range []string{"", "localhost", "-bad.com", "exa mple.com"} {
			if _, err := gen.Generate(ctx, d); !errors.Is(err, shared.ErrInvalidDomain) {
				t.Errorf("Generate(%q): expected ErrInvalidDomain, got %v", d, err)
			}
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		pool := mustPool(t, 2, "alpha", "bravo")
		gen := New(staticWords{pool: pool}, &usageSet{}, logger)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := gen.Generate(cctx, "example.com"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
