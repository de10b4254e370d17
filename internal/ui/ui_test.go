package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
)

type fakeHistory struct {
	records []models.UsageRecord
	loadErr error
	deleted []models.UsageRecord
}

func (h *fakeHistory) All(context.Context) ([]models.UsageRecord, error) {
	if h.loadErr != nil {
		return nil, h.loadErr
	}
	return append([]models.UsageRecord(nil), h.records...), nil
}

func (h *fakeHistory) Delete(_ context.Context, rec models.UsageRecord) (bool, error) {
	for i, r := range h.records {
		if r.Alias == rec.Alias && r.Domain == rec.Domain && r.CreatedAt.Equal(rec.CreatedAt) {
			h.records = append(h.records[:i], h.records[i+1:]...)
			h.deleted = append(h.deleted, rec)
			return true, nil
		}
	}
	return false, nil
}

type fakeIssuer struct {
	history *fakeHistory
	sites   []string
	err     error
}

func (f *fakeIssuer) Issue(_ context.Context, site string, record bool) (*tasks.IssueResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sites = append(f.sites, site)
	rec := models.NewUsageRecord(tasks.SiteDomain(site), "new_alias_100@example.com", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	f.history.records = append(f.history.records, rec)
	return &tasks.IssueResult{Alias: generator.Alias{Address: rec.Alias, Attempts: 1}, Record: &rec}, nil
}

func newTestModel(t *testing.T) (*Model, *fakeHistory, *fakeIssuer) {
	t.Helper()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{records: []models.UsageRecord{
		models.NewUsageRecord("a.test", "old_one_100@example.com", base),
		models.NewUsageRecord("b.test", "new_one_200@example.com", base.Add(time.Hour)),
	}}
	issuer := &fakeIssuer{history: history}

	m := NewModel(context.Background(), history, issuer)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	drain(m, m.Init())
	return m, history, issuer
}

// drain runs cmd and feeds resulting model messages back until none remain.
func drain(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(Msg); !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func press(m *Model, keys string) tea.Cmd {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func aliases(m *Model) []string {
	var out []string
	for _, item := range m.list.Items() {
		out = append(out, item.(usageItem).record.Alias)
	}
	return out
}

func TestModel(t *testing.T) {
	t.Run("LoadsNewestFirst", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		got := aliases(m)
		if len(got) != 2 || got[0] != "new_one_200@example.com" {
			t.Errorf("expected newest first, got %v", got)
		}
		if !strings.Contains(m.View(), "Alias History") {
			t.Error("expected the list title in the view")
		}
	})

	t.Run("LoadError", func(t *testing.T) {
		history := &fakeHistory{loadErr: errors.New("disk gone")}
		m := NewModel(context.Background(), history, &fakeIssuer{history: history})
		drain(m, m.Init())

		if !strings.Contains(m.View(), "disk gone") {
			t.Errorf("expected the error in the view, got %q", m.View())
		}

		history.loadErr = nil
		drain(m, press(m, "r"))
		if m.err != nil {
			t.Errorf("expected refresh to clear the error, got %v", m.err)
		}
	})

	t.Run("Generate", func(t *testing.T) {
		m, _, issuer := newTestModel(t)

		press(m, "g")
		if m.view != SiteInputView {
			t.Fatalf("expected site input view, got %v", m.view)
		}
		press(m, "shop.test")
		drain(m, press(m, "enter"))

		if m.view != HistoryView {
			t.Errorf("expected history view after issuing, got %v", m.view)
		}
		if len(issuer.sites) != 1 || issuer.sites[0] != "shop.test" {
			t.Errorf("unexpected issue calls %v", issuer.sites)
		}
		if got := aliases(m); len(got) != 3 || got[0] != "new_alias_100@example.com" {
			t.Errorf("expected the new alias at the top, got %v", got)
		}
		if !strings.Contains(m.status, "new_alias_100@example.com") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("GenerateCancelled", func(t *testing.T) {
		m, _, issuer := newTestModel(t)

		press(m, "g")
		press(m, "esc")
		if m.view != HistoryView || len(issuer.sites) != 0 {
			t.Errorf("expected cancel without issuing, view %v calls %v", m.view, issuer.sites)
		}
	})

	t.Run("GenerateFailure", func(t *testing.T) {
		m, _, issuer := newTestModel(t)
		issuer.err = errors.New("exhausted")

		press(m, "g")
		drain(m, press(m, "enter"))
		if !m.statusErr || !strings.Contains(m.status, "exhausted") {
			t.Errorf("expected a failure status, got %q", m.status)
		}
	})

	t.Run("DeleteConfirmed", func(t *testing.T) {
		m, history, _ := newTestModel(t)

		press(m, "d")
		if m.view != ConfirmDeleteView || m.pending == nil {
			t.Fatalf("expected confirmation view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "new_one_200@example.com") {
			t.Error("expected the selected alias in the confirmation")
		}

		drain(m, press(m, "y"))
		if len(history.deleted) != 1 || history.deleted[0].Alias != "new_one_200@example.com" {
			t.Errorf("unexpected deletions %v", history.deleted)
		}
		if got := aliases(m); len(got) != 1 {
			t.Errorf("expected one remaining entry, got %v", got)
		}
	})

	t.Run("DeleteDeclined", func(t *testing.T) {
		m, history, _ := newTestModel(t)

		press(m, "d")
		press(m, "n")
		if m.view != HistoryView || m.pending != nil || len(history.deleted) != 0 {
			t.Errorf("expected nothing deleted, got %v", history.deleted)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		cmd := press(m, "q")
		if cmd == nil {
			t.Fatal("expected a quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
