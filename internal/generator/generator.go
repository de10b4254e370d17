package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/wordlist"
)

const (
	// MaxAttempts bounds the candidates tried per call.
	MaxAttempts = 10

	// MinDigits is the smallest numeric suffix.
	MinDigits = 100

	// DigitSpan is the number of possible suffixes, so suffixes fall in [100, 999].
	DigitSpan = 900
)

// WordSource supplies the active word pool.
type WordSource interface {
	Words(ctx context.Context) (*wordlist.Pool, error)
}

// UsageChecker reports whether an alias was issued before.
type UsageChecker interface {
	Exists(ctx context.Context, alias string) (bool, error)
}

// Rand draws uniform integers in [0, n).
type Rand interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand returns a goroutine safe [Rand] seeded from the clock.
func NewRand() Rand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Alias is a generated address with the parts it was built from.
type Alias struct {
	Address  string `json:"address"`
	Word1    string `json:"word1"`
	Word2    string `json:"word2"`
	Digits   int    `json:"digits"`
	Attempts int    `json:"attempts"`

	// Degraded is set when the usage log could not be consulted and uniqueness is unverified.
	Degraded bool `json:"degraded,omitempty"`
}

func (a Alias) String() string { return a.Address }

// Generator produces aliases from a word source, checked against the usage log.
type Generator struct {
	words       WordSource
	usage       UsageChecker
	rand        Rand
	logger      *log.Logger
	maxAttempts int
}

// Option configures a [Generator].
type Option func(*Generator)

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rand = r }
}

// WithMaxAttempts overrides [MaxAttempts].
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// New creates a Generator.
func New(words WordSource, usage UsageChecker, logger *log.Logger, opts ...Option) *Generator {
	g := &Generator{
		words:       words,
		usage:       usage,
		rand:        NewRand(),
		logger:      logger,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh alias address for domain.
func (g *Generator) Generate(ctx context.Context, domain string) (string, error) {
	alias, err := g.GenerateAlias(ctx, domain)
	if err != nil {
		return "", err
	}
	return alias.Address, nil
}

// GenerateAlias runs the attempt loop and returns the accepted candidate.
//
// Word source failures end the call immediately. Running out of attempts returns an error
// wrapping [shared.ErrGenerationExhausted].
func (g *Generator) GenerateAlias(ctx context.Context, domain string) (Alias, error) {
	if err := ValidateDomain(domain); err != nil {
		return Alias{}, err
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Alias{}, err
		}

		pool, err := g.words.Words(ctx)
		if err != nil {
			return Alias{}, err
		}

		candidate := g.compose(pool, domain)
		candidate.Attempts = attempt

		if n := utf8.RuneCountInString(candidate.Address); n > MaxAddressLength {
			g.logger.Debug("candidate too long", "length", n, "attempt", attempt)
			continue
		}

		exists, err := g.usage.Exists(ctx, candidate.Address)
		if err != nil {
			g.logger.Warn("usage check failed, accepting candidate unverified", "alias", candidate.Address, "err", err)
			candidate.Degraded = true
			return candidate, nil
		}
		if exists {
			g.logger.Debug("candidate already used", "alias", candidate.Address, "attempt", attempt)
			continue
		}

		return candidate, nil
	}

	return Alias{}, fmt.Errorf("%w: no free address for %s after %d attempts", shared.ErrGenerationExhausted, domain, g.maxAttempts)
}

func (g *Generator) compose(pool *wordlist.Pool, domain string) Alias {
	w1 := pool.Word(g.rand.Intn(pool.Len()))
	w2 := pool.Word(g.rand.Intn(pool.Len()))
	digits := MinDigits + g.rand.Intn(DigitSpan)

	return Alias{
		Address: w1 + "_" + w2 + "_" + strconv.Itoa(digits) + "@" + domain,
		Word1:   w1,
		Word2:   w2,
		Digits:  digits,
	}
}
