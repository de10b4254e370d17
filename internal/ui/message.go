package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgHistoryLoaded MsgKind = iota
	MsgAliasIssued
	MsgEntryDeleted
)

// historyLoadedMsg is the constructor for [MsgHistoryLoaded]
func historyLoadedMsg(records []models.UsageRecord, err error) Msg {
	return Msg{kind: MsgHistoryLoaded, data: records, err: err}
}

// aliasIssuedMsg is the constructor for [MsgAliasIssued]
func aliasIssuedMsg(result *tasks.IssueResult, err error) Msg {
	return Msg{kind: MsgAliasIssued, data: result, err: err}
}

// entryDeletedMsg is the constructor for [MsgEntryDeleted]
func entryDeletedMsg(record models.UsageRecord, deleted bool, err error) Msg {
	return Msg{
		kind: MsgEntryDeleted,
		data: struct {
			record  models.UsageRecord
			deleted bool
		}{record, deleted},
		err: err,
	}
}
