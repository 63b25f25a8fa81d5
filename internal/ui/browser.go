package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"foreign/internal/elfsym"
)

type browserModel struct {
	library string
	loader  func() ([]elfsym.Symbol, error)

	spinner spinner.Model
	filter  textinput.Model

	symbols []elfsym.Symbol
	visible []elfsym.Symbol
	cursor  int
	offset  int

	width   int
	height  int
	loaded  bool
	loadErr error
}

type symbolsMsg struct {
	symbols []elfsym.Symbol
	err     error
}

// NewBrowserModel returns a Bubble Tea model that lists a library's
// exported symbols with incremental filtering. Loading happens off the UI
// loop through loader.
func NewBrowserModel(library string, loader func() ([]elfsym.Symbol, error)) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	filter := textinput.New()
	filter.Placeholder = "type to filter"
	filter.Prompt = "/ "
	filter.Focus()

	return &browserModel{
		library: library,
		loader:  loader,
		spinner: sp,
		filter:  filter,
		width:   80,
		height:  24,
	}
}

func (m *browserModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadSymbols())
}

func (m *browserModel) loadSymbols() tea.Cmd {
	return func() tea.Msg {
		syms, err := m.loader()
		return symbolsMsg{symbols: syms, err: err}
	}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case symbolsMsg:
		m.loaded = true
		m.symbols = msg.symbols
		m.loadErr = msg.err
		m.refilter()
		return m, nil
	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "ctrl+p":
			m.move(-1)
			return m, nil
		case "down", "ctrl+n":
			m.move(1)
			return m, nil
		case "pgup":
			m.move(-m.pageSize())
			return m, nil
		case "pgdown":
			m.move(m.pageSize())
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refilter()
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	var b strings.Builder
	header := m.library
	if !m.loaded {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	} else {
		header = fmt.Sprintf("%s (%d/%d)", header, len(m.visible), len(m.symbols))
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if m.loadErr != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		b.WriteString(errStyle.Render(m.loadErr.Error()))
		b.WriteString("\n")
		return b.String()
	}

	kindWidth := 8
	sizeWidth := 8
	nameWidth := m.width - kindWidth - sizeWidth - 6
	if nameWidth < 20 {
		nameWidth = 20
	}

	page := m.pageSize()
	end := m.offset + page
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.offset; i < end; i++ {
		s := m.visible[i]
		line := fmt.Sprintf("%-*s %-*s %*d",
			nameWidth, truncate(s.Name, nameWidth),
			kindWidth, s.Kind,
			sizeWidth, s.Size)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move · esc quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *browserModel) pageSize() int {
	// Header, filter line, blank, footer.
	page := m.height - 6
	if page < 1 {
		page = 1
	}
	return page
}

func (m *browserModel) move(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}

func (m *browserModel) refilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for _, s := range m.symbols {
		if needle == "" || strings.Contains(strings.ToLower(s.Name), needle) {
			m.visible = append(m.visible, s)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.offset = 0
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
