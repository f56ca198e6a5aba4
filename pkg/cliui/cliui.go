// Package cliui provides shared terminal styles for relay CLI commands.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	KeyStyle   = lipgloss.NewStyle().Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	IDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	StateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
)

// Step runs fn and prints a ✓ or ✗ line with msg and the elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	start := time.Now()
	err := fn()
	fmt.Fprintf(w, "  %s %s %s\n",
		Mark(err),
		msg,
		DimStyle.Render(fmt.Sprintf("(%s)", FormatDuration(time.Since(start)))),
	)
	return err
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
