package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadStatus is the state of one profile in a load batch.
type LoadStatus uint8

const (
	LoadQueued LoadStatus = iota
	LoadReading
	LoadDone
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadQueued:
		return "queued"
	case LoadReading:
		return "loading"
	case LoadDone:
		return "done"
	case LoadFailed:
		return "error"
	default:
		return ""
	}
}

// LoadEvent reports progress on one profile path.
type LoadEvent struct {
	Path   string
	Status LoadStatus
	Sites  int
	Err    error
}

type loadModel struct {
	title   string
	events  <-chan LoadEvent
	spinner spinner.Model
	prog    progress.Model
	items   []loadItem
	index   map[string]int
	width   int
	done    bool
}

type loadItem struct {
	path   string
	status LoadStatus
	detail string
}

type eventMsg LoadEvent
type doneMsg struct{}

// NewLoadModel returns a Bubble Tea model that renders profile loading.
// The model quits once events is closed.
func NewLoadModel(title string, paths []string, events <-chan LoadEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]loadItem, 0, len(paths))
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		items = append(items, loadItem{path: p})
		index[p] = i
	}
	return &loadModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *loadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *loadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(LoadEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *loadModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-12-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status))
		line := fmt.Sprintf("  %s %s", status, truncate(item.path, nameWidth))
		if item.detail != "" {
			line += "  " + dimStyle.Render(item.detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *loadModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *loadModel) applyEvent(ev LoadEvent) tea.Cmd {
	idx, ok := m.index[ev.Path]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.status = ev.Status
	switch ev.Status {
	case LoadDone:
		item.detail = fmt.Sprintf("%d sites", ev.Sites)
	case LoadFailed:
		if ev.Err != nil {
			item.detail = ev.Err.Error()
		}
	}
	return m.prog.SetPercent(m.fraction())
}

func (m *loadModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch item.status {
		case LoadDone, LoadFailed:
			total += 1
		case LoadReading:
			total += 0.5
		}
	}
	return total / float64(len(m.items))
}

func styleStatus(status LoadStatus) lipgloss.Style {
	switch status {
	case LoadDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case LoadFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case LoadReading:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}
