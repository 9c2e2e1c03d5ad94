package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	foreignStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err       error
	module    *il.Module
	report    *rewrite.Report
	filename  string
	types     []*il.TypeDef
	visible   []*il.TypeDef
	filter    textinput.Model
	selected  int
	method    int
	state     modelState
	doRewrite bool
}

type modelState int

const (
	stateSelectType modelState = iota
	stateFilter
	stateSelectMethod
	stateShowBody
)

func newInteractiveModel(filename string, doRewrite bool) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "type name"
	ti.Prompt = "/ "
	ti.Width = 40
	return &interactiveModel{
		filename:  filename,
		filter:    ti,
		state:     stateSelectType,
		doRewrite: doRewrite,
	}
}

type loadedMsg struct {
	err    error
	module *il.Module
	report *rewrite.Report
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	mod, report, err := loadModule(m.filename, m.doRewrite)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{module: mod, report: report}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			switch m.state {
			case stateSelectType:
				if m.selected > 0 {
					m.selected--
				}
			case stateSelectMethod:
				if m.method > 0 {
					m.method--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectType:
				if m.selected < len(m.visible)-1 {
					m.selected++
				}
			case stateSelectMethod:
				if t := m.current(); t != nil && m.method < len(t.Methods)-1 {
					m.method++
				}
			}

		case "/":
			if m.state == stateSelectType {
				m.state = stateFilter
				return m, m.filter.Focus()
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				if t := m.current(); t != nil && len(t.Methods) > 0 {
					m.method = 0
					m.state = stateSelectMethod
				}
			case stateSelectMethod:
				m.state = stateShowBody
			case stateShowBody:
				m.state = stateSelectMethod
			}

		case "esc":
			switch m.state {
			case stateSelectMethod:
				m.state = stateSelectType
			case stateShowBody:
				m.state = stateSelectMethod
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.module = msg.module
		m.report = msg.report
		m.types = msg.module.AllTypes()
		m.applyFilter()
	}

	return m, nil
}

func (m *interactiveModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.filter.Blur()
		m.state = stateSelectType
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *interactiveModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, t := range m.types {
		if query == "" || strings.Contains(strings.ToLower(t.FullName()), query) {
			m.visible = append(m.visible, t)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *interactiveModel) current() *il.TypeDef {
	if m.selected < len(m.visible) {
		return m.visible[m.selected]
	}
	return nil
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.module == nil {
		return "Loading module..."
	}

	st := newStyles(true)
	var b strings.Builder

	b.WriteString(titleStyle.Render("IL Inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.report != nil {
		writeReport(&b, st, m.report)
		b.WriteString("\n")
	}

	switch m.state {
	case stateSelectType, stateFilter:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, t := range m.visible {
			line := fmt.Sprintf("%s (%d methods)", t.FullName(), len(t.Methods))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + typeStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("enter apply • esc done"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • / filter • enter methods • q quit"))
		}

	case stateSelectMethod:
		t := m.current()
		b.WriteString(fmt.Sprintf("Methods of %s:\n\n", typeStyle.Render(t.FullName())))
		for i, md := range t.Methods {
			if i == m.method {
				b.WriteString(selectedStyle.Render("> " + md.Name + signature(md)))
			} else {
				b.WriteString("  " + formatMethod(st, md))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter body • esc back • q quit"))

	case stateShowBody:
		md := m.current().Methods[m.method]
		b.WriteString(fmt.Sprintf("Body of %s:\n\n", methodStyle.Render(md.FullName())))
		b.WriteString(formatBody(md))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func formatBody(md *il.MethodDef) string {
	if md.PInvoke != nil {
		return foreignStyle.Render("foreign import "+foreignTarget(md.PInvoke, md.Name)) + "\n"
	}
	if md.Body == nil {
		return helpStyle.Render("no body") + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  .maxstack %d\n", md.Body.MaxStack)
	for i, v := range md.Body.Variables {
		fmt.Fprintf(&b, "  .local V_%d %s\n", i, v.Type.FullName())
	}
	for i, in := range md.Body.Instructions {
		fmt.Fprintf(&b, "  IL_%04d %s\n", i, in)
	}
	return b.String()
}

func runInteractive(filename string, doRewrite bool) error {
	p := tea.NewProgram(newInteractiveModel(filename, doRewrite), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
