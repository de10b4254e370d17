// package models defines the data model for the catch-all alias generator
package models

import (
	"fmt"
	"sort"
	"time"
)

const (
	// ExtensionID identifies documents produced by this tool.
	ExtensionID = "catch-all-email-extension"

	// DataVersion is the current version of persisted data and backup documents.
	DataVersion = 2

	// CustomSelection is the stored selection value for a custom URL wordlist.
	CustomSelection = "custom"

	// DefaultSelection is the built-in locale used when nothing is selected.
	DefaultSelection = "en"

	// DefaultBranch is the remote backup branch used when none is configured.
	DefaultBranch = "main"

	// TimestampLayout renders instants the same way JavaScript's toISOString does.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// SelectorKind tags a [Selector].
type SelectorKind int

const (
	SelectorBuiltin SelectorKind = iota
	SelectorCustom
)

// Selector identifies the active word pool: a bundled locale or a custom URL.
type Selector struct {
	Kind SelectorKind
	Code string // locale code, set for built-in selectors
	URL  string // source URL, set for custom selectors
}

// BuiltinSelector returns a selector for a bundled locale.
func BuiltinSelector(code string) Selector {
	return Selector{Kind: SelectorBuiltin, Code: code}
}

// CustomSelector returns a selector for a remote wordlist.
func CustomSelector(url string) Selector {
	return Selector{Kind: SelectorCustom, URL: url}
}

// IsCustom reports whether the selector points at a URL.
func (s Selector) IsCustom() bool { return s.Kind == SelectorCustom }

// Selection returns the value stored in settings: the locale code or "custom".
func (s Selector) Selection() string {
	if s.IsCustom() {
		return CustomSelection
	}
	return s.Code
}

func (s Selector) String() string {
	if s.IsCustom() {
		return fmt.Sprintf("custom(%s)", s.URL)
	}
	return s.Code
}

// UsageRecord is one issued alias. Records are compared by the exact (alias, domain, timestamp) triple.
type UsageRecord struct {
	ID        string    `json:"-"`
	Domain    string    `json:"domain"`
	Alias     string    `json:"generatedEmail"`
	CreatedAt time.Time `json:"-"`
}

// NewUsageRecord builds a record with the timestamp normalised to UTC milliseconds.
func NewUsageRecord(domain, alias string, at time.Time) UsageRecord {
	return UsageRecord{Domain: domain, Alias: alias, CreatedAt: NormalizeTime(at)}
}

// Timestamp returns the canonical string form of CreatedAt, or "" for a zero time.
func (r UsageRecord) Timestamp() string {
	return FormatTimestamp(r.CreatedAt)
}

// Matches reports whether both records share the same alias, domain and timestamp.
func (r UsageRecord) Matches(o UsageRecord) bool {
	return r.Alias == o.Alias && r.Domain == o.Domain && r.Timestamp() == o.Timestamp()
}

// NormalizeTime converts t to UTC and truncates it to millisecond precision.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t with [TimestampLayout]. The zero time renders as "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return NormalizeTime(t).Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 instant, accepting both millisecond and nanosecond precision.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return NormalizeTime(t), nil
}

// SortNewestFirst returns a copy of records ordered by timestamp, newest first.
// Display code sorts; the log itself keeps insertion order.
func SortNewestFirst(records []UsageRecord) []UsageRecord {
	out := append([]UsageRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
