// # cmd/gradual/ui.go
package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gradual/internal/app"
	"gradual/internal/diagnostics"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	isError     bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list    list.Model
	summary *app.RunSummary
}

func newModel(summary *app.RunSummary) model {
	items := make([]list.Item, 0, len(summary.Diagnostics))
	for _, d := range summary.Diagnostics {
		items = append(items, item{
			title:   fmt.Sprintf("%s:%s", d.Path, d.Range),
			desc:    fmt.Sprintf("[%s] %s", d.Rule, d.Message),
			isError: d.Severity == diagnostics.SeverityError,
		})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = titleStyle("gradual diagnostics")
	return model{list: l, summary: summary}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	errors, warnings := 0, 0
	for _, d := range m.summary.Diagnostics {
		switch d.Severity {
		case diagnostics.SeverityError:
			errors++
		case diagnostics.SeverityWarning:
			warnings++
		}
	}

	var status string
	switch {
	case errors > 0:
		status = errStyle.Render(fmt.Sprintf("%d errors", errors))
	case warnings > 0:
		status = warnStyle.Render(fmt.Sprintf("%d warnings", warnings))
	default:
		status = okStyle.Render("clean")
	}

	footer := statusStyle.Render(fmt.Sprintf(
		"%d modules · %d passes · %s", len(m.summary.Modules), m.summary.TotalPasses, m.summary.Duration))

	return docStyle.Render(m.list.View()) + "\n" + status + "  " + footer
}

func runUI(summary *app.RunSummary) error {
	p := tea.NewProgram(newModel(summary), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
