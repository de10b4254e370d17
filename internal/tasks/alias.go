package tasks

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// UnknownSite is recorded when an alias is issued without a site.
const UnknownSite = "unknown"

// AliasGenerator produces aliases for a domain.
type AliasGenerator interface {
	GenerateAlias(ctx context.Context, domain string) (generator.Alias, error)
}

// UsageAppender records issued aliases.
type UsageAppender interface {
	Append(ctx context.Context, record *models.UsageRecord) error
}

// SettingsLoader reads the current settings.
type SettingsLoader interface {
	Load(ctx context.Context) (models.Settings, error)
}

// Trigger is notified after the usage log changes.
type Trigger interface {
	Trigger()
}

// IssueResult is an issued alias and, when it was logged, its usage record.
type IssueResult struct {
	Alias  generator.Alias     `json:"alias"`
	Record *models.UsageRecord `json:"record,omitempty"`
}

// AliasService issues aliases for the configured catch-all domain.
type AliasService struct {
	gen      AliasGenerator
	usage    UsageAppender
	settings SettingsLoader
	trigger  Trigger
	logger   *log.Logger
	now      func() time.Time
}

// NewAliasService creates an AliasService. trigger may be nil.
func NewAliasService(gen AliasGenerator, usage UsageAppender, settings SettingsLoader, trigger Trigger, logger *log.Logger) *AliasService {
	return &AliasService{
		gen:      gen,
		usage:    usage,
		settings: settings,
		trigger:  trigger,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue generates an alias for site. When record is set the alias is appended to the usage
// log and the trigger fires.
//
// There is no reservation between generation and recording, so two concurrent calls can in
// rare cases issue the same alias.
func (s *AliasService) Issue(ctx context.Context, site string, record bool) (*IssueResult, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if settings.CatchAllDomain == "" {
		return nil, shared.ErrNoDomainConfigured
	}

	alias, err := s.gen.GenerateAlias(ctx, settings.CatchAllDomain)
	if err != nil {
		return nil, err
	}

	result := &IssueResult{Alias: alias}
	if !record {
		return result, nil
	}

	rec := models.NewUsageRecord(SiteDomain(site), alias.Address, s.now())
	if err := s.usage.Append(ctx, &rec); err != nil {
		return nil, err
	}
	result.Record = &rec

	s.logger.Info("alias issued", "site", rec.Domain, "alias", alias.Address, "attempts", alias.Attempts, "degraded", alias.Degraded)
	if s.trigger != nil {
		s.trigger.Trigger()
	}
	return result, nil
}

// SiteDomain reduces a URL or host to a lowercase host name. Empty input yields [UnknownSite].
func SiteDomain(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return UnknownSite
	}
	if strings.Contains(site, "://") {
		if u, err := url.Parse(site); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	if host, _, ok := strings.Cut(site, "/"); ok {
		site = host
	}
	return strings.ToLower(site)
}
