package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionValidate
	ActionLoad
	ActionQuit
)

// Entry is one fixture shown by the picker.
type Entry struct {
	Dir      string
	Manifest *manifest.Manifest
	Valid    bool
	Errors   []string
	Warnings []string
}

// ID returns the fixture id, or the directory name when the manifest
// could not be read.
func (e *Entry) ID() string {
	if e.Manifest != nil && e.Manifest.FixtureID != "" {
		return e.Manifest.FixtureID
	}
	return filepath.Base(e.Dir)
}

// EntryFromResult builds an Entry from a validation result. The manifest is
// read directly for invalid fixtures so they can still be described.
func EntryFromResult(dir string, r *validator.ValidationResult) *Entry {
	e := &Entry{
		Dir:      dir,
		Manifest: r.Manifest,
		Valid:    r.Valid,
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
	if e.Manifest == nil {
		if m, err := manifest.Read(dir); err == nil {
			e.Manifest = m
		}
	}
	return e
}

// PickerResult holds the result of the picker
type PickerResult struct {
	Action    Action
	Fixture   *Entry
	Namespace string
}

// fixtureItem implements list.Item for fixture display
type fixtureItem struct {
	entry *Entry
}

func (i fixtureItem) Title() string {
	return i.entry.ID()
}

func (i fixtureItem) Description() string {
	statusIcon := "✓"
	if !i.entry.Valid {
		statusIcon = "✗"
	} else if len(i.entry.Warnings) > 0 {
		statusIcon = "⚠"
	}

	m := i.entry.Manifest
	if m == nil {
		return fmt.Sprintf("%s unreadable manifest | %s", statusIcon, truncatePath(i.entry.Dir, 30))
	}
	return fmt.Sprintf("%s %d tables | %d rows | v%s | %s",
		statusIcon,
		len(m.Tables),
		m.TotalRows(),
		m.Version,
		truncatePath(i.entry.Dir, 30),
	)
}

func (i fixtureItem) FilterValue() string {
	return i.entry.ID()
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

	promptLabelStyle = lipgloss.NewStyle().
				Bold(true).
				MarginBottom(1)
)

// Model is the bubbletea model for the fixture picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int

	// prompting is set while the target namespace is being entered
	prompting bool
	pending   *Entry
	nsInput   textinput.Model
}

// NewPicker creates a new fixture picker
func NewPicker(entries []*Entry) Model {
	items := buildGroupedItems(entries)

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = "fixture-ctl - Select Fixture"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	ni := textinput.New()
	ni.Placeholder = "TARGET_NAMESPACE"
	ni.CharLimit = 64
	ni.Width = 40

	return Model{
		list:    l,
		nsInput: ni,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.updatePrompt(msg)
	}

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
		case "enter", "v":
			if item, ok := m.list.SelectedItem().(fixtureItem); ok {
				m.result = PickerResult{
					Action:  ActionValidate,
					Fixture: item.entry,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "l":
			if item, ok := m.list.SelectedItem().(fixtureItem); ok && item.entry.Valid {
				m.prompting = true
				m.pending = item.entry
				if item.entry.Manifest != nil {
					m.nsInput.SetValue(item.entry.Manifest.Namespace)
				}
				m.nsInput.Focus()
				return m, textinput.Blink
			}
			return m, nil

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit

		case "down", "j", "up", "k":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			skipHeaders(&m.list, navigationDirection(msg))
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if isHeaderSelected(&m.list) {
		skipHeaders(&m.list, 1)
	}
	return m, cmd
}

func (m Model) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.prompting = false
			m.pending = nil
			m.nsInput.Blur()
			m.nsInput.SetValue("")
			return m, nil
		case tea.KeyEnter:
			ns := strings.TrimSpace(m.nsInput.Value())
			if ns == "" {
				return m, nil
			}
			m.result = PickerResult{
				Action:    ActionLoad,
				Fixture:   m.pending,
				Namespace: ns,
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.nsInput, cmd = m.nsInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.prompting {
		label := promptLabelStyle.Render(fmt.Sprintf("Load %s into namespace:", m.pending.ID()))
		help := helpStyle.Render("[enter] Load  [esc] Back")
		return label + "\n" + m.nsInput.View() + "\n" + help
	}

	help := helpStyle.Render("[enter] Validate  [l] Load  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive fixture picker
func RunPicker(entries []*Entry) (PickerResult, error) {
	if len(entries) == 0 {
		return PickerResult{Action: ActionNone}, nil
	}

	m := NewPicker(entries)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimpleList is a non-interactive listing of fixtures
func SimpleList(entries []*Entry) string {
	var sb strings.Builder

	sb.WriteString("fixture-ctl - Fixtures\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(entries) == 0 {
		sb.WriteString("No fixtures found.\n")
		sb.WriteString("Create one with: fixture-ctl create <namespace> <output-dir>\n")
		return sb.String()
	}

	for i, e := range entries {
		item := fixtureItem{entry: e}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title()))
		sb.WriteString(fmt.Sprintf("   %s\n", item.Description()))
		for _, msg := range e.Errors {
			sb.WriteString(fmt.Sprintf("   error: %s\n", msg))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
