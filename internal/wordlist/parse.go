package wordlist

import (
	"strings"
	"unicode/utf8"
)

// MinWordLength is the shortest word kept after normalisation, in characters.
const MinWordLength = 2

// Parse normalises raw wordlist text into words.
//
// Lines are trimmed; empty lines and lines starting with '#' are skipped. Each remaining
// line is lowercased and stripped of everything outside a-z, 0-9, ä, ö, ü and ß. Words
// shorter than [MinWordLength] are dropped. Order and duplicates are preserved.
func Parse(text string) []string {
	words := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word := strings.Map(keepRune, strings.ToLower(line))
		if utf8.RuneCountInString(word) < MinWordLength {
			continue
		}
		words = append(words, word)
	}
	return words
}

func keepRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return r
	case r == 'ä', r == 'ö', r == 'ü', r == 'ß':
		return r
	}
	return -1
}
