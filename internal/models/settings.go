package models

import "time"

// Settings is the typed user settings record kept in durable storage.
type Settings struct {
	CatchAllDomain    string         `json:"catchAllDomain"`
	WordlistSelection string         `json:"wordlistSelection"`
	WordlistURL       string         `json:"wordlistUrl"`
	GitHub            GitHubSettings `json:"github"`
	LastBackup        BackupStatus   `json:"lastBackup"`
	DataVersion       int            `json:"dataVersion"`
	InstallationID    string         `json:"installationId"`
}

// GitHubSettings holds the remote backup target. Token is never exported.
type GitHubSettings struct {
	Token      string `json:"token"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	AutoBackup bool   `json:"autoBackup"`
}

// BackupStatus records the outcome of the last remote backup attempt.
// Date and URL belong to the last successful push; FailedAt and Error to a later failure.
type BackupStatus struct {
	Date     time.Time `json:"date"`
	URL      string    `json:"url,omitempty"`
	FailedAt time.Time `json:"failedAt"`
	Error    string    `json:"error,omitempty"`
}

// DefaultSettings returns settings for a fresh installation.
func DefaultSettings() Settings {
	return Settings{
		WordlistSelection: DefaultSelection,
		GitHub:            GitHubSettings{Branch: DefaultBranch},
	}
}

// Selector derives the active wordlist selector from the stored selection.
func (s Settings) Selector() Selector {
	switch s.WordlistSelection {
	case "":
		return BuiltinSelector(DefaultSelection)
	case CustomSelection:
		return CustomSelector(s.WordlistURL)
	default:
		return BuiltinSelector(s.WordlistSelection)
	}
}

// Configured reports whether enough is set to talk to the remote store.
func (g GitHubSettings) Configured() bool {
	return g.Token != "" && g.Repository != ""
}

// BranchOrDefault returns the configured branch or [DefaultBranch].
func (g GitHubSettings) BranchOrDefault() string {
	if g.Branch == "" {
		return DefaultBranch
	}
	return g.Branch
}
