package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/mietzen/catch-all-autofill/internal/models"
)

var _ list.Item = usageItem{}

// usageItem wraps [models.UsageRecord] to implement [list.Item].
type usageItem struct {
	record models.UsageRecord
}

func (i usageItem) FilterValue() string { return i.record.Alias + " " + i.record.Domain }
func (i usageItem) Title() string       { return i.record.Alias }
func (i usageItem) Description() string {
	if i.record.CreatedAt.IsZero() {
		return i.record.Domain
	}
	return fmt.Sprintf("%s • %s", i.record.Domain, i.record.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func usageItems(records []models.UsageRecord) []list.Item {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = usageItem{record: r}
	}
	return items
}
