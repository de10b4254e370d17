// Package ui implements an interactive history browser using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [HistoryView] : Browse the usage log newest first, with / to filter
//  2. [SiteInputView] : Enter the site for a new alias (g)
//  3. [ConfirmDeleteView] : Confirm removal of the selected entry (d, then y/n)
//
// The [Model] implements bubbletea's Init/Update/View pattern and receives results of store calls through
// the [Msg] union type, so every read and write runs as a [tea.Cmd] off the update loop.
//
// Keyboard navigation uses vim-style bindings (j/k, g, d, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
