// Package tui provides terminal user interface components for arbor-ctl
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arbor-tools/arbor-ctl/internal/workspace"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionAttach
	ActionNew
	ActionDown
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action Action
	Row    *workspace.EnvironmentStatus
}

// checkoutItem implements list.Item for checkout display
type checkoutItem struct {
	row workspace.EnvironmentStatus
}

func (i checkoutItem) Title() string {
	c := i.row.Checkout
	return fmt.Sprintf("%s/%s @ %s", c.Owner, c.Repo, c.Branch)
}

func (i checkoutItem) Description() string {
	statusIcon := "●"
	switch i.row.Status {
	case "Running":
		statusIcon = "✓"
	case "Stopped":
		statusIcon = "○"
	case "-":
		statusIcon = "·"
	}

	envID := i.row.EnvID
	if envID == "" {
		envID = "no environment"
	}

	return fmt.Sprintf("%s %s | %s",
		statusIcon, envID, truncatePath(i.row.Checkout.Path, 40))
}

func (i checkoutItem) FilterValue() string {
	c := i.row.Checkout
	return c.Owner + "/" + c.Repo + "/" + c.Branch
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the checkout picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new checkout picker
func NewPicker(rows []workspace.EnvironmentStatus) Model {
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = checkoutItem{row: row}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "arbor-ctl - Select Checkout"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(checkoutItem); ok {
				m.result = PickerResult{
					Action: ActionAttach,
					Row:    &item.row,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "n":
			m.result = PickerResult{Action: ActionNew}
			m.quitting = true
			return m, tea.Quit

		case "d":
			if item, ok := m.list.SelectedItem().(checkoutItem); ok {
				m.result = PickerResult{
					Action: ActionDown,
					Row:    &item.row,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Attach  [n] New  [d] Down  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive checkout picker
func RunPicker(rows []workspace.EnvironmentStatus) (PickerResult, error) {
	if len(rows) == 0 {
		return PickerResult{Action: ActionNew}, nil
	}

	m := NewPicker(rows)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive fallback that just lists checkouts
func SimplePicker(rows []workspace.EnvironmentStatus) string {
	var sb strings.Builder

	sb.WriteString("arbor-ctl - Checkouts\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(rows) == 0 {
		sb.WriteString("No checkouts found.\n")
		sb.WriteString("Create one with: arbor-ctl up owner/repo\n")
		return sb.String()
	}

	for i, row := range rows {
		c := row.Checkout
		statusIcon := "·"
		switch row.Status {
		case "Running":
			statusIcon = "✓"
		case "Stopped":
			statusIcon = "○"
		}

		sb.WriteString(fmt.Sprintf("%d. %s %s/%s @ %s\n",
			i+1, statusIcon, c.Owner, c.Repo, c.Branch))
		sb.WriteString(fmt.Sprintf("   Env: %s | Checkout: %s\n\n",
			row.EnvID, truncatePath(c.Path, 40)))
	}

	return sb.String()
}
