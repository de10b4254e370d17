// package formatter renders the usage log in export formats (CSV, JSON, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// Format is an export format name.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	Markdown Format = "md"
	Text     Format = "txt"
)

// Formats lists the supported export formats.
var Formats = []Format{CSV, JSON, Markdown, Text}

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want csv, json, md or txt)", shared.ErrInvalidFlag, s)
}

// Filename is the default export file name for a log exported at t, e.g. email_log_2024-05-01.csv.
func (f Format) Filename(t time.Time) string {
	return "email_log_" + t.UTC().Format("2006-01-02") + "." + string(f)
}

// Export renders records in format f. An empty log fails with [shared.ErrNothingToExport].
func Export(f Format, records []models.UsageRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, shared.ErrNothingToExport
	}

	switch f {
	case CSV:
		return ExportToCSV(records)
	case JSON:
		return ExportToJSON(records)
	case Markdown:
		return ExportToMarkdown(records)
	case Text:
		return ExportToText(records)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
}

// ExportToCSV converts records to CSV with columns: email, domain, date
func ExportToCSV(records []models.UsageRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"email", "domain", "date"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		if err := writer.Write([]string{r.Alias, r.Domain, r.Timestamp()}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders records as the usage log array found in backup documents.
func ExportToJSON(records []models.UsageRecord) ([]byte, error) {
	entries := make([]models.BackupLogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.Entry())
	}
	return shared.MarshalJSON(entries, true)
}

// ExportToMarkdown renders records as a table grouped under a summary header.
func ExportToMarkdown(records []models.UsageRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Email Alias History\n\n")
	buf.WriteString(fmt.Sprintf("**Aliases**: %d\n", len(records)))
	buf.WriteString(fmt.Sprintf("**Sites**: %d\n\n", countDomains(records)))

	buf.WriteString("| Alias | Site | Date |\n")
	buf.WriteString("| --- | --- | --- |\n")
	for _, r := range records {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(r.Alias), escapeCell(r.Domain), r.Timestamp()))
	}

	return buf.Bytes(), nil
}

// ExportToText renders records one per line
func ExportToText(records []models.UsageRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Aliases: %d\n\n", len(records)))
	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. %s (%s) %s\n", i+1, r.Alias, r.Domain, r.Timestamp()))
	}

	return buf.Bytes(), nil
}

// WriteExport renders records in format f and writes them to path.
//
// Defaults to [Format.Filename] for the current day when path is empty.
func WriteExport(f Format, records []models.UsageRecord, path string) (string, error) {
	if path == "" {
		path = f.Filename(time.Now())
	}

	data, err := Export(f, records)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func countDomains(records []models.UsageRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.Domain] = struct{}{}
	}
	return len(seen)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
