package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/wordlist"
)

const cacheInfo = "Wordlist cache contents are not exported and are rebuilt on demand"

// SettingsStore persists the settings record.
type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

// UsageStore is the part of the usage log a backup reads and replaces.
type UsageStore interface {
	All(ctx context.Context) ([]models.UsageRecord, error)
	Replace(ctx context.Context, records []models.UsageRecord) (int, error)
}

// CacheLister lists durable wordlist cache keys.
type CacheLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// ImportResult counts what an import applied.
type ImportResult struct {
	SettingsImported int `json:"settingsImported"`
	AliasesImported  int `json:"emailsImported"`
}

// Service exports and imports backup documents.
type Service struct {
	settings SettingsStore
	usage    UsageStore
	cache    CacheLister
	logger   *log.Logger
	now      func() time.Time
}

// NewService creates a backup service. cache may be nil.
func NewService(settings SettingsStore, usage UsageStore, cache CacheLister, logger *log.Logger) *Service {
	return &Service{settings: settings, usage: usage, cache: cache, logger: logger, now: time.Now}
}

// Export builds a snapshot of the current settings and usage log.
// It fails with [shared.ErrNothingToExport] when no domain is configured and the log is empty.
func (s *Service) Export(ctx context.Context) (*models.BackupDocument, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.usage.All(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 && settings.CatchAllDomain == "" {
		return nil, shared.ErrNothingToExport
	}

	keys := []string{}
	if s.cache != nil {
		if k, err := s.cache.Keys(ctx); err != nil {
			s.logger.Warn("failed to list cached wordlists", "err", err)
		} else if k != nil {
			keys = k
		}
	}

	entries := make([]models.BackupLogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.Entry())
	}

	stats := ComputeStatistics(entries)
	doc := &models.BackupDocument{
		Metadata: models.BackupMetadata{
			ExportDate:     models.FormatTimestamp(s.now()),
			Version:        models.DataVersion,
			ExtensionID:    models.ExtensionID,
			InstallationID: settings.InstallationID,
		},
		Settings:   exportSettings(settings),
		Cache:      &models.CacheSummary{LocalStorageKeys: keys, CacheInfo: cacheInfo},
		UsageLog:   entries,
		Statistics: &stats,
	}
	return doc, nil
}

func exportSettings(s models.Settings) *models.BackupSettings {
	out := &models.BackupSettings{
		CatchAllDomain:    s.CatchAllDomain,
		WordlistSelection: s.WordlistSelection,
		WordlistURL:       s.WordlistURL,
		DataVersion:       models.DataVersion,
	}
	if s.GitHub.Repository != "" {
		out.GitHub = &models.BackupGitHub{
			Repository: s.GitHub.Repository,
			Branch:     s.GitHub.Branch,
			AutoBackup: s.GitHub.AutoBackup,
		}
	}
	return out
}

// ComputeStatistics derives totals and the ISO date range from log entries.
// Entries without a date do not affect the range; DateRange is nil when no entry has one.
func ComputeStatistics(entries []models.BackupLogEntry) models.Statistics {
	domains := map[string]struct{}{}
	var first, last string
	for _, e := range entries {
		domains[e.Domain] = struct{}{}
		if e.Date == "" {
			continue
		}
		if first == "" || e.Date < first {
			first = e.Date
		}
		if last == "" || e.Date > last {
			last = e.Date
		}
	}

	stats := models.Statistics{TotalEmails: len(entries), UniqueDomains: len(domains)}
	if first != "" {
		stats.DateRange = &models.DateRange{First: first, Last: last}
	}
	return stats
}

// Import applies doc to the stores. Settings fields present in the document replace the
// stored ones; a present usage log replaces the stored log. Remote credentials are kept.
func (s *Service) Import(ctx context.Context, doc *models.BackupDocument) (ImportResult, error) {
	if doc == nil || (doc.Settings == nil && doc.UsageLog == nil) {
		return ImportResult{}, shared.ErrInvalidBackupFormat
	}

	if doc.Metadata.Version > models.DataVersion {
		s.logger.Warn("backup document is newer than this build; unknown fields are ignored",
			"version", doc.Metadata.Version, "supported", models.DataVersion)
	}
	doc = Upgrade(doc, s.now())

	var result ImportResult

	var records []models.UsageRecord
	if doc.UsageLog != nil {
		var err error
		records, err = s.toRecords(doc.UsageLog)
		if err != nil {
			return ImportResult{}, err
		}
	}

	if doc.Settings != nil {
		settings, err := s.settings.Load(ctx)
		if err != nil {
			return ImportResult{}, err
		}
		n, err := applySettings(&settings, doc.Settings)
		if err != nil {
			return ImportResult{}, err
		}
		if err := s.settings.Save(ctx, settings); err != nil {
			return ImportResult{}, err
		}
		result.SettingsImported = n
	}

	if doc.UsageLog != nil {
		stored, err := s.usage.Replace(ctx, records)
		if err != nil {
			return result, err
		}
		result.AliasesImported = stored
	}

	s.logger.Info("backup imported", "settings", result.SettingsImported, "aliases", result.AliasesImported)
	return result, nil
}

func applySettings(dst *models.Settings, src *models.BackupSettings) (int, error) {
	n := 0
	if d := strings.TrimSpace(src.CatchAllDomain); d != "" {
		if err := generator.ValidateDomain(d); err != nil {
			return 0, fmt.Errorf("%w: %w", shared.ErrInvalidBackupFormat, err)
		}
		dst.CatchAllDomain = d
		n++
	}

	if sel := src.WordlistSelection; sel != "" {
		if _, ok := wordlist.LookupLocale(sel); !ok && sel != models.CustomSelection {
			return 0, fmt.Errorf("%w: %w: %q", shared.ErrInvalidBackupFormat, shared.ErrUnknownLocale, sel)
		}
		dst.WordlistSelection = sel
		n++
	}

	if u := src.WordlistURL; u != "" {
		if err := generator.ValidateURL(u); err != nil {
			return 0, fmt.Errorf("%w: %w", shared.ErrInvalidBackupFormat, err)
		}
		dst.WordlistURL = u
		n++
	}

	if gh := src.GitHub; gh != nil && gh.Repository != "" {
		dst.GitHub.Repository = gh.Repository
		if gh.Branch != "" {
			dst.GitHub.Branch = gh.Branch
		}
		dst.GitHub.AutoBackup = gh.AutoBackup
		n++
	}
	return n, nil
}

func (s *Service) toRecords(entries []models.BackupLogEntry) ([]models.UsageRecord, error) {
	records := make([]models.UsageRecord, 0, len(entries))
	for i, e := range entries {
		if e.GeneratedEmail == "" {
			s.logger.Warn("skipping usage entry without address", "index", i)
			continue
		}
		if res := generator.Validate(e.GeneratedEmail); !res.Valid {
			s.logger.Warn("imported address fails validation", "alias", e.GeneratedEmail, "errors", strings.Join(res.Errors, "; "))
		}

		at, err := models.ParseTimestamp(e.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: usage entry %d: %w", shared.ErrInvalidBackupFormat, i, err)
		}
		records = append(records, models.UsageRecord{Domain: e.Domain, Alias: e.GeneratedEmail, CreatedAt: at})
	}
	return records, nil
}

// Upgrade returns a copy of doc migrated to [models.DataVersion]. Entries without a date get
// now and entries without a domain get "unknown", whatever version the document claims.
func Upgrade(doc *models.BackupDocument, now time.Time) *models.BackupDocument {
	out := *doc
	version := doc.Metadata.Version
	if doc.Settings != nil && doc.Settings.DataVersion > version {
		version = doc.Settings.DataVersion
	}

	if doc.UsageLog != nil {
		stamp := models.FormatTimestamp(now)
		out.UsageLog = make([]models.BackupLogEntry, len(doc.UsageLog))
		for i, e := range doc.UsageLog {
			if e.Date == "" {
				e.Date = stamp
			}
			if e.Domain == "" {
				e.Domain = "unknown"
			}
			out.UsageLog[i] = e
		}
	}

	if version < models.DataVersion {
		out.Metadata.Version = models.DataVersion
	}
	return &out
}

// ParseDocument decodes a backup document. Malformed JSON wraps [shared.ErrInvalidBackupFormat].
func ParseDocument(r io.Reader) (*models.BackupDocument, error) {
	var doc models.BackupDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", shared.ErrInvalidBackupFormat)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidBackupFormat, err)
	}
	return &doc, nil
}

// MarshalDocument renders doc as indented JSON.
func MarshalDocument(doc *models.BackupDocument) ([]byte, error) {
	return shared.MarshalJSON(doc, true)
}
