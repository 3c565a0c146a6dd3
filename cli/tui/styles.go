// Package tui provides Bubble Tea views for the msival CLI.
//
// TUI mode is opt-in (--tui) and read-only. Views render the same payloads
// as the json, yaml and table formats; nothing is shown only in the TUI.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/msival/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Shared styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(highlightColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// OutcomeStyle returns the style for a run outcome or item status.
func OutcomeStyle(status string) lipgloss.Style {
	switch status {
	case string(types.OutcomeSuccess), string(types.ItemValidated):
		return SuccessStyle
	case string(types.OutcomeValidationErrors), string(types.OutcomeCanceled):
		return WarningStyle
	case string(types.OutcomePreparationFailure), string(types.OutcomeFatal), string(types.ItemPreparationFailed):
		return ErrorStyle
	default:
		return ValueStyle
	}
}

// Severity returns the display label of an output: "error", "warning",
// or the ICE message type for messages.
func Severity(o *types.Output) string {
	if o.Kind == types.OutputMessage && o.Message != nil {
		return o.Message.Type.String()
	}
	return string(o.Kind)
}

// SeverityStyle returns the style for a Severity label.
func SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "error", "failure":
		return ErrorStyle
	case "warning":
		return WarningStyle
	case "information":
		return InfoStyle
	default:
		return ValueStyle
	}
}
