package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/msival/metrics"
)

// StatsModel shows the metrics of one run.
type StatsModel struct {
	snap     metrics.Snapshot
	quitting bool
}

// NewStatsModel creates the stats view. data must be a metrics.Snapshot or
// *metrics.Snapshot.
func NewStatsModel(data any) (*StatsModel, error) {
	switch s := data.(type) {
	case metrics.Snapshot:
		return &StatsModel{snap: s}, nil
	case *metrics.Snapshot:
		if s != nil {
			return &StatsModel{snap: *s}, nil
		}
	}
	return nil, fmt.Errorf("stats view requires a metrics snapshot, got %T", data)
}

// Init implements tea.Model.
func (m *StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *StatsModel) View() string {
	if m.quitting {
		return ""
	}
	return RenderStatsStatic(m.snap) + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

// RenderStatsStatic renders a snapshot as rows of stat boxes.
func RenderStatsStatic(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run " + s.RunID))
	b.WriteString("\n")

	rows := [][]string{
		{
			statBox("Items", s.ItemsStarted, highlightColor),
			statBox("Validated", s.ItemsValidated, successColor),
			statBox("Prep Failed", s.ItemsPreparationFailed, errorColor),
			statBox("Canceled", s.ItemsCanceled, warningColor),
		},
		{
			statBox("Actions", s.ActionsExecuted, highlightColor),
			statBox("Errors", s.ErrorsDelivered, errorColor),
			statBox("Warnings", s.WarningsDelivered, warningColor),
			statBox("Messages", s.MessagesDelivered, highlightColor),
		},
		{
			statBox("Suppressed", s.InformationSuppressed, mutedColor),
			statBox("Conflicts", s.ConflictsSuppressed, mutedColor),
			statBox("Persisted", s.OutputsPersisted, successColor),
			statBox("Dropped", s.OutputsDropped, warningColor),
		},
	}
	for _, row := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s %s   %s %s",
		LabelStyle.Render("Policy:"), ValueStyle.Render(s.Policy),
		LabelStyle.Render("Storage:"), ValueStyle.Render(s.StorageBackend))
	return b.String()
}

func statBox(label string, value int64, color lipgloss.Color) string {
	content := StatLabelStyle.Render(label) + "\n" +
		StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	return StatBoxStyle.BorderForeground(color).Render(content)
}
