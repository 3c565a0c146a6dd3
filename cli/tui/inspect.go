package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/msival/journal"
	"github.com/justapithecus/msival/types"
)

// headerLines is the height reserved above the viewport.
const headerLines = 6

type keyMap struct {
	Quit       key.Binding
	ErrorsOnly key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	ErrorsOnly: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "toggle failures only"),
	),
}

// JournalModel is a scrollable view of a validation journal.
type JournalModel struct {
	journal    *journal.Journal
	viewport   viewport.Model
	errorsOnly bool
	ready      bool
	quitting   bool
}

// NewJournalModel creates the journal view. data must be a *journal.Journal.
func NewJournalModel(data any) (*JournalModel, error) {
	j, ok := data.(*journal.Journal)
	if !ok || j == nil {
		return nil, fmt.Errorf("inspect view requires a journal, got %T", data)
	}
	return &JournalModel{journal: j}, nil
}

// Init implements tea.Model.
func (m *JournalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *JournalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-headerLines, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.body())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.ErrorsOnly):
			m.errorsOnly = !m.errorsOnly
			m.viewport.SetContent(m.body())
			m.viewport.GotoTop()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *JournalModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}
	help := HelpStyle.Render("↑/↓ scroll • e failures only • q quit")
	return m.header() + "\n" + m.viewport.View() + "\n" + help
}

func (m *JournalModel) header() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Validation Journal"))
	b.WriteString("\n")

	s := m.journal.Summary
	if s == nil {
		b.WriteString(WarningStyle.Render("incomplete: no run summary recorded"))
		fmt.Fprintf(&b, "\n%s %d", LabelStyle.Render("Outputs:"), len(m.journal.Outputs))
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Run ID:"), ValueStyle.Render(s.RunID))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Outcome:"), OutcomeStyle(string(s.Outcome)).Render(string(s.Outcome)))
	fmt.Fprintf(&b, "%s %d items, %d outputs, %dms", LabelStyle.Render("Totals:"), len(s.Items), s.Outputs, s.DurationMs)
	return b.String()
}

// body renders one line per output, grouped under item headings.
func (m *JournalModel) body() string {
	var b strings.Builder
	item := ""
	shown := 0
	for _, o := range m.journal.Outputs {
		if m.errorsOnly && !o.IsFailure() {
			continue
		}
		if o.Item != item {
			item = o.Item
			fmt.Fprintf(&b, "\n%s\n", TitleStyle.UnsetMarginBottom().Render(item))
		}
		b.WriteString(OutputLine(o))
		b.WriteByte('\n')
		shown++
	}
	if shown == 0 {
		b.WriteString(MutedStyle.Render("(no outputs)"))
	}
	return b.String()
}

// OutputLine renders one output as a styled single line.
func OutputLine(o *types.Output) string {
	sev := Severity(o)
	label := SeverityStyle(sev).Render(fmt.Sprintf("%-11s", sev))
	action := o.Action
	if action == "" {
		action = "-"
	}
	text := o.Text()
	if o.Kind == types.OutputError && o.Error != nil && o.Error.TargetName != "" {
		text = fmt.Sprintf("%s [%s: %s]", text, o.Error.Category, o.Error.TargetName)
	}
	if o.Kind == types.OutputMessage && o.Message != nil && o.Message.Table != "" {
		text = fmt.Sprintf("%s [%s]", text, location(o.Message))
	}
	return fmt.Sprintf("%4d %s %-8s %s", o.Seq, label, action, text)
}

// location renders Table.Column(keys) for a message row reference.
func location(m *types.IceMessage) string {
	loc := m.Table
	if m.Column != "" {
		loc += "." + m.Column
	}
	if len(m.PrimaryKeys) > 0 {
		loc += "(" + strings.Join(m.PrimaryKeys, ", ") + ")"
	}
	return loc
}

// RenderJournalStatic renders the journal view without starting a program.
func RenderJournalStatic(j *journal.Journal) string {
	m := &JournalModel{journal: j}
	return m.header() + "\n" + m.body()
}
