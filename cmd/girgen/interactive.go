package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gtkflux/gobject-runtime/gir"
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

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateSelectNamespace browserState = iota
	stateSelectType
	stateShowDetail
)

// typeEntry is one browsable type of a namespace with its pre-rendered
// detail pane.
type typeEntry struct {
	kind   string
	name   string
	detail string
}

type browserModel struct {
	namespaces []*gir.Namespace
	nsIdx      int

	all      []typeEntry // every entry of the selected namespace
	entries  []typeEntry // filtered view
	filter   textinput.Model
	selected int
	state    browserState
}

func newBrowserModel(repos []*gir.Repository) *browserModel {
	var nss []*gir.Namespace
	for _, repo := range repos {
		for i := range repo.Namespaces {
			nss = append(nss, &repo.Namespaces[i])
		}
	}
	sort.Slice(nss, func(i, j int) bool { return nss[i].Name < nss[j].Name })

	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/ "
	filter.Width = 32

	return &browserModel{namespaces: nss, filter: filter}
}

func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.selected < m.listLen()-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateSelectNamespace:
				if len(m.namespaces) == 0 {
					return m, nil
				}
				m.nsIdx = m.selected
				m.enterNamespace()
			case stateSelectType:
				if len(m.entries) > 0 {
					m.state = stateShowDetail
				}
			case stateShowDetail:
				m.state = stateSelectType
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateSelectType:
				m.state = stateSelectNamespace
				m.selected = m.nsIdx
			case stateShowDetail:
				m.state = stateSelectType
			}
			return m, nil

		case "q":
			// The filter owns plain keystrokes while selecting a type.
			if m.state != stateSelectType {
				return m, tea.Quit
			}
		}
	}

	if m.state == stateSelectType {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) listLen() int {
	if m.state == stateSelectNamespace {
		return len(m.namespaces)
	}
	return len(m.entries)
}

// enterNamespace builds the type list for the selected namespace and
// resets the filter.
func (m *browserModel) enterNamespace() {
	ns := m.namespaces[m.nsIdx]
	m.all = namespaceEntries(ns)
	m.filter.SetValue("")
	m.filter.Focus()
	m.applyFilter()
	m.selected = 0
	m.state = stateSelectType
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	if needle == "" {
		m.entries = m.all
	} else {
		m.entries = nil
		for _, e := range m.all {
			if strings.Contains(strings.ToLower(e.name), needle) {
				m.entries = append(m.entries, e)
			}
		}
	}
	if m.selected >= len(m.entries) {
		m.selected = 0
	}
}

func (m *browserModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("GIR Browser"))
	if m.state != stateSelectNamespace && m.nsIdx < len(m.namespaces) {
		ns := m.namespaces[m.nsIdx]
		b.WriteString(" " + ns.Name + " " + ns.Version)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectNamespace:
		if len(m.namespaces) == 0 {
			b.WriteString("No namespaces in the loaded GIR files.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a namespace:\n\n")
		for i, ns := range m.namespaces {
			line := fmt.Sprintf("%s %s", ns.Name, ns.Version)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectType:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, e := range m.entries {
			line := kindStyle.Render(fmt.Sprintf("%-9s", e.kind)) + " " + nameStyle.Render(e.name)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.entries) == 0 {
			b.WriteString(helpStyle.Render("  no matches"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter detail • esc namespaces"))

	case stateShowDetail:
		e := m.entries[m.selected]
		b.WriteString(kindStyle.Render(e.kind) + " " + nameStyle.Render(e.name) + "\n\n")
		b.WriteString(e.detail)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

// namespaceEntries renders every type of a namespace into browsable
// entries, sorted by name within each kind.
func namespaceEntries(ns *gir.Namespace) []typeEntry {
	var out []typeEntry
	for i := range ns.Classes {
		cl := &ns.Classes[i]
		out = append(out, typeEntry{kind: "class", name: cl.Name, detail: classDetail(cl)})
	}
	for i := range ns.Interfaces {
		in := &ns.Interfaces[i]
		out = append(out, typeEntry{kind: "interface", name: in.Name, detail: interfaceDetail(in)})
	}
	for i := range ns.Records {
		re := &ns.Records[i]
		out = append(out, typeEntry{kind: "record", name: re.Name, detail: recordDetail(re)})
	}
	for i := range ns.Enums {
		out = append(out, typeEntry{kind: "enum", name: ns.Enums[i].Name, detail: enumDetail(&ns.Enums[i])})
	}
	for i := range ns.Bitfields {
		out = append(out, typeEntry{kind: "bitfield", name: ns.Bitfields[i].Name, detail: enumDetail(&ns.Bitfields[i])})
	}
	for i := range ns.Callbacks {
		cb := &ns.Callbacks[i]
		out = append(out, typeEntry{kind: "callback", name: cb.Name,
			detail: "  " + cb.Name + "(" + paramList(cb.Parameters) + ")" + returnSuffix(cb.Return) + "\n"})
	}
	for i := range ns.Functions {
		f := &ns.Functions[i]
		out = append(out, typeEntry{kind: "function", name: f.Name, detail: "  " + functionLine(f) + "\n"})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func classDetail(cl *gir.Class) string {
	var b strings.Builder
	if cl.Parent != "" {
		fmt.Fprintf(&b, "parent: %s\n", typeStyle.Render(cl.Parent))
	}
	if len(cl.Implements) > 0 {
		var ifaces []string
		for _, im := range cl.Implements {
			ifaces = append(ifaces, im.Name)
		}
		fmt.Fprintf(&b, "implements: %s\n", typeStyle.Render(strings.Join(ifaces, ", ")))
	}
	section(&b, "constructors", len(cl.Constructors), func(i int) string { return functionLine(&cl.Constructors[i]) })
	section(&b, "methods", len(cl.Methods), func(i int) string { return methodLine(&cl.Methods[i]) })
	section(&b, "functions", len(cl.Functions), func(i int) string { return functionLine(&cl.Functions[i]) })
	section(&b, "signals", len(cl.Signals), func(i int) string { return signalLine(&cl.Signals[i]) })
	section(&b, "properties", len(cl.Properties), func(i int) string { return propertyLine(&cl.Properties[i]) })
	return b.String()
}

func interfaceDetail(in *gir.Interface) string {
	var b strings.Builder
	section(&b, "methods", len(in.Methods), func(i int) string { return methodLine(&in.Methods[i]) })
	section(&b, "signals", len(in.Signals), func(i int) string { return signalLine(&in.Signals[i]) })
	section(&b, "properties", len(in.Props), func(i int) string { return propertyLine(&in.Props[i]) })
	return b.String()
}

func recordDetail(re *gir.Record) string {
	var b strings.Builder
	if re.IsBoxed() {
		fmt.Fprintf(&b, "boxed: %s\n", typeStyle.Render(re.GetType))
	}
	section(&b, "fields", len(re.Fields), func(i int) string {
		f := &re.Fields[i]
		line := f.Name + ": " + typeStyle.Render(typeName(f.Type))
		if f.IsPrivate() {
			line += helpStyle.Render(" (private)")
		}
		return line
	})
	section(&b, "constructors", len(re.Ctors), func(i int) string { return functionLine(&re.Ctors[i]) })
	section(&b, "methods", len(re.Methods), func(i int) string { return methodLine(&re.Methods[i]) })
	return b.String()
}

func enumDetail(en *gir.Enumeration) string {
	var b strings.Builder
	section(&b, "members", len(en.Members), func(i int) string {
		return en.Members[i].Name + " = " + en.Members[i].Value
	})
	return b.String()
}

func section(b *strings.Builder, title string, n int, line func(int) string) {
	if n == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for i := 0; i < n; i++ {
		fmt.Fprintf(b, "  %s\n", line(i))
	}
}

func functionLine(f *gir.Function) string {
	line := nameStyle.Render(f.Name) + "(" + paramList(f.Parameters) + ")" + returnSuffix(f.Return)
	if f.CIdentifier != "" {
		line += helpStyle.Render("  [" + f.CIdentifier + "]")
	}
	return line
}

func methodLine(m *gir.Method) string {
	line := nameStyle.Render(m.Name) + "(" + paramList(m.Parameters) + ")" + returnSuffix(m.Return)
	if m.CanThrow() {
		line += kindStyle.Render(" throws")
	}
	if m.FinishFunc != "" {
		line += helpStyle.Render("  finish: " + m.FinishFunc)
	}
	return line
}

func signalLine(s *gir.Signal) string {
	return nameStyle.Render(s.Name) + "(" + paramList(s.Parameters) + ")" + returnSuffix(s.Return)
}

func propertyLine(p *gir.Property) string {
	line := nameStyle.Render(p.Name) + ": " + typeStyle.Render(typeName(p.Type))
	if p.IsWritable() {
		line += helpStyle.Render(" (writable)")
	}
	return line
}

func paramList(ps *gir.Parameters) string {
	if ps == nil {
		return ""
	}
	parts := make([]string, 0, len(ps.Params))
	for i := range ps.Params {
		p := &ps.Params[i]
		parts = append(parts, p.Name+": "+typeStyle.Render(typeName(p.Type)))
	}
	return strings.Join(parts, ", ")
}

func returnSuffix(r *gir.ReturnValue) string {
	if r == nil || r.Type == nil || r.Type.Name == "none" || r.Type.Name == "" {
		return ""
	}
	return " -> " + typeStyle.Render(r.Type.Name)
}

func typeName(t *gir.TypeRef) string {
	if t == nil || t.Name == "" {
		return "?"
	}
	return t.Name
}

func runInteractive(repos []*gir.Repository) error {
	p := tea.NewProgram(newBrowserModel(repos), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
