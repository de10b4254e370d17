package models

// BackupDocument is the portable snapshot of settings and the usage log.
//
// A nil Settings or UsageLog means the section was absent from the source document.
type BackupDocument struct {
	Metadata   BackupMetadata   `json:"metadata"`
	Settings   *BackupSettings  `json:"settings,omitempty"`
	Cache      *CacheSummary    `json:"cache,omitempty"`
	UsageLog   []BackupLogEntry `json:"usageLog"`
	Statistics *Statistics      `json:"statistics,omitempty"`
}

type BackupMetadata struct {
	ExportDate     string `json:"exportDate"`
	Version        int    `json:"version"`
	ExtensionID    string `json:"extensionId"`
	InstallationID string `json:"installationId,omitempty"`
}

// BackupSettings mirrors [Settings] without credentials or volatile status.
type BackupSettings struct {
	CatchAllDomain    string        `json:"catchAllDomain"`
	WordlistSelection string        `json:"wordlistSelection"`
	WordlistURL       string        `json:"wordlistUrl"`
	DataVersion       int           `json:"dataVersion"`
	GitHub            *BackupGitHub `json:"github,omitempty"`
}

type BackupGitHub struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	AutoBackup bool   `json:"autoBackup"`
}

// CacheSummary lists cached wordlist keys; the cached words themselves are never exported.
type CacheSummary struct {
	LocalStorageKeys []string `json:"localStorageKeys"`
	CacheInfo        string   `json:"cacheInfo"`
}

// BackupLogEntry is the document form of a [UsageRecord]. Date may be empty in version 1 documents.
type BackupLogEntry struct {
	Domain         string `json:"domain"`
	Date           string `json:"date,omitempty"`
	GeneratedEmail string `json:"generatedEmail"`
}

// Entry converts a record to its document form.
func (r UsageRecord) Entry() BackupLogEntry {
	return BackupLogEntry{Domain: r.Domain, Date: r.Timestamp(), GeneratedEmail: r.Alias}
}

// Statistics are derived from the usage log at export time.
type Statistics struct {
	TotalEmails   int        `json:"totalEmails"`
	UniqueDomains int        `json:"uniqueDomains"`
	DateRange     *DateRange `json:"dateRange"`
}

type DateRange struct {
	First string `json:"first"`
	Last  string `json:"last"`
}
