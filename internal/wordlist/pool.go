package wordlist

import (
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// DefaultMinSize is the smallest pool accepted from any source.
const DefaultMinSize = 10

// Pool is an immutable, validated list of words.
type Pool struct {
	words []string
}

// NewPool validates words against minSize and wraps them in a Pool.
// A pool that is too small is reported as a source failure.
func NewPool(words []string, minSize int) (*Pool, error) {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if len(words) < minSize {
		return nil, fmt.Errorf("%w: %w (%d words, need %d)", shared.ErrSource, shared.ErrWordlistTooSmall, len(words), minSize)
	}
	return &Pool{words: append([]string(nil), words...)}, nil
}

// Len returns the number of words, duplicates included.
func (p *Pool) Len() int { return len(p.words) }

// Word returns the i-th word.
func (p *Pool) Word(i int) string { return p.words[i] }

// Words returns a copy of the words.
func (p *Pool) Words() []string { return append([]string(nil), p.words...) }

// Preview returns at most n leading words.
func (p *Pool) Preview(n int) []string {
	if n > len(p.words) {
		n = len(p.words)
	}
	return append([]string(nil), p.words[:n]...)
}
