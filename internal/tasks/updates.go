package tasks

import (
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/backup"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Snapshot Phase = iota
	Revision
	Upload
	Download
	Import
	Complete
)

func (p Phase) String() string {
	switch p {
	case Snapshot:
		return "snapshot"
	case Revision:
		return "revision"
	case Upload:
		return "upload"
	case Download:
		return "download"
	case Import:
		return "import"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func snapshotUpdate(step, total, aliases int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Snapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Building snapshot (%d aliases)...", aliases),
	}
}

func revisionUpdate(step, total int, path, sha string) ProgressUpdate {
	msg := fmt.Sprintf("No remote revision for %s, creating it...", path)
	if sha != "" {
		msg = fmt.Sprintf("Remote revision %s found for %s", shortSHA(sha), path)
	}
	return ProgressUpdate{Phase: Revision, Step: step, Total: total, Message: msg}
}

func uploadUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading %s...", path),
	}
}

func downloadUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Downloading %s...", path),
	}
}

func importUpdate(step, total int, result backup.ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Import,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Imported %d settings and %d aliases", result.SettingsImported, result.AliasesImported),
		Data:    result,
	}
}

func completeUpdate(step, total int, result *PushResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ Backup stored at %s", result.URL),
		Data:    result,
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
