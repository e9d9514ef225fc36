// Package cliui holds the terminal palette and small rendering helpers shared
// by the verity commands: action and status badges, aligned fields and marks.
//
// Everything is written through lipgloss.Fprint so colors are downsampled, or
// dropped entirely, when the writer is not a terminal.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	HeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	IDStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Badge colors by resolution action and by verification status.
var (
	actionColors = map[string]string{
		"INSERT":    "82",
		"CONFIRM":   "39",
		"UPDATE":    "214",
		"CONTESTED": "196",
		"SKIP":      "245",
	}
	statusColors = map[string]string{
		"PROVISIONAL": "214",
		"VERIFIED":    "82",
		"CONTESTED":   "196",
		"DEPRECATED":  "241",
	}
)

// Action renders a resolution action name as a bold badge. Unknown names
// render unstyled.
func Action(name string) string {
	return badge(actionColors, name, true)
}

// Status renders a verification status. Unknown statuses render muted.
func Status(name string) string {
	if _, ok := statusColors[strings.ToUpper(name)]; !ok {
		return MutedStyle.Render(name)
	}
	return badge(statusColors, name, false)
}

func badge(colors map[string]string, name string, bold bool) string {
	upper := strings.ToUpper(name)
	c, ok := colors[upper]
	if !ok {
		return name
	}
	return lipgloss.NewStyle().Bold(bold).Foreground(lipgloss.Color(c)).Render(upper)
}

// Field writes an aligned "key  value" line. Empty values are skipped.
func Field(w io.Writer, key, value string) {
	if value == "" {
		return
	}
	lipgloss.Fprintln(w, "  "+KeyStyle.Render(key)+value)
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
