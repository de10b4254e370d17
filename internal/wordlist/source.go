package wordlist

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

//go:embed assets/*.txt
var bundled embed.FS

// maxFetchSize bounds the body read from a custom wordlist URL.
const maxFetchSize = 8 << 20

// Source resolves selectors to word pools.
type Source struct {
	httpClient *http.Client
	override   fs.FS
	minSize    int
	logger     *log.Logger
}

// SourceOption configures a [Source].
type SourceOption func(*Source)

// WithHTTPClient sets the client used for custom wordlists.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *Source) { s.httpClient = c }
}

// WithTimeout sets a timeout on the default HTTP client.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithDirectory makes <code>.txt files in fsys take precedence over the bundled ones.
func WithDirectory(fsys fs.FS) SourceOption {
	return func(s *Source) { s.override = fsys }
}

// WithMinSize sets the minimum pool size.
func WithMinSize(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.minSize = n
		}
	}
}

// NewSource creates a Source. Without options it reads the bundled locales and
// fetches custom lists with a 10 second timeout.
func NewSource(logger *log.Logger, opts ...SourceOption) *Source {
	s := &Source{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		minSize:    DefaultMinSize,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch loads and validates the pool for sel. Every failure wraps [shared.ErrSource].
func (s *Source) Fetch(ctx context.Context, sel models.Selector) (*Pool, error) {
	var (
		text string
		err  error
	)
	if sel.IsCustom() {
		text, err = s.fetchURL(ctx, sel.URL)
	} else {
		text, err = s.readBundled(sel.Code)
	}
	if err != nil {
		return nil, err
	}

	pool, err := NewPool(Parse(text), s.minSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel, err)
	}

	s.logger.Debug("wordlist loaded", "selector", sel.String(), "words", pool.Len())
	return pool, nil
}

func (s *Source) readBundled(code string) (string, error) {
	if _, ok := LookupLocale(code); !ok {
		return "", fmt.Errorf("%w: %w: %q", shared.ErrSource, shared.ErrUnknownLocale, code)
	}

	name := code + ".txt"
	if s.override != nil {
		data, err := fs.ReadFile(s.override, name)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: failed to read %s: %w", shared.ErrSource, name, err)
		}
	}

	data, err := bundled.ReadFile("assets/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read bundled %s: %w", shared.ErrSource, name, err)
	}
	return string(data), nil
}

func (s *Source) fetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", shared.ErrSource, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %w", shared.ErrSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: HTTP %d: %s", shared.ErrSource, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", shared.ErrSource, err)
	}
	return string(body), nil
}
