package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Command factories for async operations

// tickCmd returns a command that sends a tick after a delay
func tickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// clearStatusCmd returns a command that clears status after a delay
func clearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
