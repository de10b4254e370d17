package backup

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

const (
	autoPrefix   = "catch-all-email-backup-"
	manualPrefix = "catch-all-email-manual-backup-"
)

var repoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// ExportFilename is the default local file name for an export made at t.
func ExportFilename(t time.Time) string {
	return "catch_all_email_backup_" + t.UTC().Format("2006-01-02") + ".json"
}

// RemoteFilename names a remote backup taken at t, e.g. catch-all-email-backup-2024-05-01T12-00-00.json.
func RemoteFilename(t time.Time, manual bool) string {
	prefix := autoPrefix
	if manual {
		prefix = manualPrefix
	}
	return prefix + t.UTC().Format("2006-01-02T15-04-05") + ".json"
}

// RemotePath joins the configured directory prefix and a file name.
func RemotePath(prefix, filename string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filename
	}
	return path.Join(prefix, filename)
}

// CommitMessage describes a remote backup commit.
func CommitMessage(t time.Time, manual bool) string {
	kind := "Auto-backup"
	if manual {
		kind = "Manual backup"
	}
	return kind + ": " + models.FormatTimestamp(t)
}

// ValidateGitHub checks remote backup settings before they are stored or used.
func ValidateGitHub(gh models.GitHubSettings) error {
	switch {
	case strings.TrimSpace(gh.Token) == "":
		return fmt.Errorf("%w: Personal Access Token is required", shared.ErrInvalidConfig)
	case strings.TrimSpace(gh.Repository) == "":
		return fmt.Errorf("%w: Repository is required", shared.ErrInvalidConfig)
	case !repoPattern.MatchString(gh.Repository):
		return fmt.Errorf("%w: Repository must be in format \"owner/repo\"", shared.ErrInvalidConfig)
	case strings.TrimSpace(gh.Branch) == "":
		return fmt.Errorf("%w: Branch is required", shared.ErrInvalidConfig)
	}
	return nil
}
