package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

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

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse SCHEMA [DATA]",
		Short: "Browse the types of a schema and the dump of a value document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("browse needs an interactive terminal; use types or dump instead")
			}
			var doc *schema.Document
			if len(args) == 2 {
				d, err := schema.ReadDocument(args[1])
				if err != nil {
					return err
				}
				doc = d
			}
			sess, err := a.openSession(cmd.Context(), args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.closeSession(sess)

			m, err := newBrowseModel(sess, doc, args[0])
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type browseState int

const (
	stateSelectType browseState = iota
	stateFilter
	stateShowType
)

type browseModel struct {
	sess     *session
	doc      *schema.Document
	filename string
	detail   string
	types    []typeSummary
	visible  []int
	filter   textinput.Model
	selected int
	state    browseState
}

func newBrowseModel(sess *session, doc *schema.Document, filename string) (*browseModel, error) {
	types, err := summarize(sess.schema)
	if err != nil {
		return nil, err
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "type name"
	ti.Width = 40

	m := &browseModel{
		sess:     sess,
		doc:      doc,
		filename: filename,
		types:    types,
		filter:   ti,
		state:    stateSelectType,
	}
	m.applyFilter()
	return m, nil
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
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

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateSelectType && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectType && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "/":
		if m.state == stateSelectType {
			m.state = stateFilter
			return m, m.filter.Focus()
		}

	case "enter":
		switch m.state {
		case stateSelectType:
			if t, ok := m.current(); ok {
				m.detail = m.describe(t)
				m.state = stateShowType
			}
		case stateShowType:
			m.state = stateSelectType
			m.detail = ""
		}

	case "esc":
		if m.state == stateShowType {
			m.state = stateSelectType
			m.detail = ""
		}
	}
	return m, nil
}

func (m *browseModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, t := range m.types {
		if strings.Contains(strings.ToLower(t.info.Name), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browseModel) current() (typeSummary, bool) {
	if m.selected >= len(m.visible) {
		return typeSummary{}, false
	}
	return m.types[m.visible[m.selected]], true
}

func (m *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("typedump"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No types.\n")
		}
		for i, idx := range m.visible {
			line := formatType(m.types[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("type to filter • enter/esc done"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter show • / filter • q quit"))
		}

	case stateShowType:
		b.WriteString(m.detail)
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func formatType(t typeSummary) string {
	kind := "variable"
	if t.fixed {
		kind = "fixed"
	}
	return fmt.Sprintf("%-24s %s size %d align %d %s",
		t.info.Name, typeStyle.Render(t.info.Class.String()), t.info.Size, t.align, kind)
}

// describe renders a type's layout and, when the document holds values of
// that type, their dump.
func (m *browseModel) describe(t typeSummary) string {
	var b strings.Builder
	s := m.sess.schema
	b.WriteString(nameStyle.Render(t.info.Name))
	b.WriteString(" ")
	b.WriteString(formatType(t))
	b.WriteString("\n\n")

	switch t.info.Class {
	case catalog.ClassCompound:
		fields, err := s.Registry.Fields(s.Container, t.info.ID)
		if err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v", err))
		}
		for _, f := range fields {
			dims := ""
			for _, d := range f.Dims {
				dims += fmt.Sprintf("[%d]", d)
			}
			fmt.Fprintf(&b, "  @%-6d %-16s %s\n", f.Offset, f.Name, typeStyle.Render(m.typeName(f.Type)+dims))
		}
	case catalog.ClassVlen:
		fmt.Fprintf(&b, "  sequence of %s\n", typeStyle.Render(m.typeName(t.info.Base)))
	case catalog.ClassEnum:
		fmt.Fprintf(&b, "  stored as %s\n", typeStyle.Render(m.typeName(t.info.Base)))
		members, err := s.Registry.Members(s.Container, t.info.ID)
		if err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v", err))
		}
		for _, mem := range members {
			fmt.Fprintf(&b, "  %s = %d\n", mem.Name, mem.Value)
		}
	}

	if m.doc != nil && m.doc.Type == t.info.Name {
		b.WriteString("\n")
		b.WriteString(m.dumpDocument())
	}
	return b.String()
}

// dumpDocument builds the document's instances, dumps them and reclaims
// them again.
func (m *browseModel) dumpDocument() string {
	v, err := m.sess.build(m.doc, "")
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	out, err := m.sess.dump(v)
	if rerr := m.sess.release(v); err == nil {
		err = rerr
	}
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	return fmt.Sprintf("%d instances:\n%s", v.count, resultStyle.Render(out))
}

func (m *browseModel) typeName(tid catalog.TypeID) string {
	if tid.IsAtomic() {
		return catalog.AtomicName(tid)
	}
	info, err := m.sess.schema.Registry.DescribeType(m.sess.schema.Container, tid)
	if err != nil {
		return fmt.Sprintf("type %d", tid)
	}
	return info.Name
}
