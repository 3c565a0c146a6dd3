package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// View types with a TUI.
const (
	ViewInspectJournal = "inspect_journal"
	ViewStatsMetrics   = "stats_metrics"
)

// Run starts the TUI for viewType. Returns an error if the view type has
// no TUI or data has the wrong type.
func Run(viewType string, data any) error {
	model, err := newModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewInspectJournal:
		return NewJournalModel(data)
	case ViewStatsMetrics:
		return NewStatsModel(data)
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

// IsTUISupported reports whether viewType has a TUI.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews lists the view types with a TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspectJournal, ViewStatsMetrics}
}
