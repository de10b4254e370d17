package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HistoryView ViewState = iota
	SiteInputView
	ConfirmDeleteView
)

// History is the usage log as seen by the browser.
type History interface {
	All(ctx context.Context) ([]models.UsageRecord, error)
	Delete(ctx context.Context, record models.UsageRecord) (bool, error)
}

// Issuer issues and logs aliases. [tasks.AliasService] satisfies it.
type Issuer interface {
	Issue(ctx context.Context, site string, record bool) (*tasks.IssueResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	history   History
	issuer    Issuer
	width     int
	height    int
	list      list.Model
	input     textinput.Model
	pending   *models.UsageRecord
	status    string
	statusErr bool
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, history History, issuer Issuer) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Alias History"
	l.SetShowHelp(false)
	l.KeyMap.GoToStart.SetKeys("home")
	l.KeyMap.NextPage.SetKeys("right", "l", "pgdown", "f")

	in := textinput.New()
	in.Placeholder = "example.com"
	in.CharLimit = 253

	return &Model{
		ctx:     ctx,
		view:    HistoryView,
		history: history,
		issuer:  issuer,
		list:    l,
		input:   in,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, history History, issuer Issuer) error {
	p := tea.NewProgram(NewModel(ctx, history, issuer), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Init loads the usage log.
func (m *Model) Init() tea.Cmd {
	return m.loadHistory()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SiteInputView:
			return m.handleSiteInputKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		default:
			return m.handleHistoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgHistoryLoaded:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		records, _ := msg.data.([]models.UsageRecord)
		models.SortNewestFirst(records)
		return m, m.list.SetItems(usageItems(records))

	case MsgAliasIssued:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Failed to generate alias: %v", msg.err), true)
			return m, nil
		}
		result, _ := msg.data.(*tasks.IssueResult)
		status := "✓ Issued " + result.Alias.Address
		if result.Alias.Degraded {
			status += " (uniqueness unverified)"
		}
		m.setStatus(status, false)
		return m, m.loadHistory()

	case MsgEntryDeleted:
		data, _ := msg.data.(struct {
			record  models.UsageRecord
			deleted bool
		})
		switch {
		case msg.err != nil:
			m.setStatus(fmt.Sprintf("Failed to delete: %v", msg.err), true)
			return m, nil
		case !data.deleted:
			m.setStatus(data.record.Alias+" was already removed", true)
		default:
			m.setStatus("Deleted "+data.record.Alias, false)
		}
		return m, m.loadHistory()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case SiteInputView:
		return m.renderSiteInput()
	case ConfirmDeleteView:
		return m.renderConfirm()
	default:
		return m.renderHistory()
	}
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.setStatus("Refreshing...", false)
		return m, m.loadHistory()
	case m.err != nil:
		return m, nil
	case key.Matches(msg, m.keys.generate):
		m.view = SiteInputView
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.list.SelectedItem().(usageItem); ok {
			rec := item.record
			m.pending = &rec
			m.view = ConfirmDeleteView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleSiteInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = HistoryView
		return m, nil
	case tea.KeyEnter:
		site := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.view = HistoryView
		return m, m.issue(site)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.yes):
		rec := *m.pending
		m.pending = nil
		m.view = HistoryView
		return m, m.deleteEntry(rec)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.pending = nil
		m.view = HistoryView
		return m, nil
	}
	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		records, err := m.history.All(m.ctx)
		return historyLoadedMsg(records, err)
	}
}

func (m *Model) issue(site string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.issuer.Issue(m.ctx, site, true)
		return aliasIssuedMsg(result, err)
	}
}

func (m *Model) deleteEntry(rec models.UsageRecord) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.history.Delete(m.ctx, rec)
		return entryDeletedMsg(rec, deleted, err)
	}
}

func (m *Model) renderHistory() string {
	var status string
	switch {
	case m.status == "":
		status = styles.muted.Render(fmt.Sprintf("%d aliases", len(m.list.Items())))
	case m.statusErr:
		status = styles.warn.Render(m.status)
	default:
		status = styles.ok.Render(m.status)
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s\n\n%s", m.list.View(), status, helpView)
}

func (m *Model) renderSiteInput() string {
	title := styles.title.Render("Generate Alias")
	prompt := styles.muted.Render("Site the alias is for (empty for " + tasks.UnknownSite + "):")

	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, prompt, m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.pending == nil {
		return ""
	}

	title := styles.title.Render("Delete this entry?")
	info := fmt.Sprintf("\n%s\nSite: %s\nDate: %s\n",
		styles.alias.Render(m.pending.Alias),
		m.pending.Domain,
		orDash(m.pending.Timestamp()),
	)
	warning := styles.warn.Render("The alias may become issuable again once removed.")

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s\n%s\n\n%s", title, info, warning, helpView)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
