// Package ui renders interactive terminal views of a generation run.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hookgen/internal/generator"
)

type progressModel struct {
	title      string
	events     <-chan generator.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []mixinItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type mixinItem struct {
	target  string
	status  string
	stage   generator.Stage
	elapsed time.Duration
}

type eventMsg generator.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-mixin
// progress of a run. Targets not announced up front are added when their
// first event arrives. The model quits when events is closed.
func NewProgressModel(title string, targets []string, events <-chan generator.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int, len(targets)),
		width:   80,
	}
	for _, target := range targets {
		m.item(target)
	}
	return m
}

func (m *progressModel) item(target string) int {
	if idx, ok := m.index[target]; ok {
		return idx
	}
	m.items = append(m.items, mixinItem{target: target, status: "queued"})
	m.index[target] = len(m.items) - 1
	return len(m.items) - 1
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(generator.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
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

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 12
	nameWidth := max(m.width-statusWidth-14, 20)
	for _, it := range m.items {
		status := styleStatus(it.status).Render(fmt.Sprintf("%12s", it.status))
		fmt.Fprintf(&b, "  %s %s", status, truncate(it.target, nameWidth))
		if it.elapsed > 0 {
			fmt.Fprintf(&b, "  %s", it.elapsed.Round(time.Microsecond))
		}
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

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev generator.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Item == "" {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx := m.item(ev.Item)
	if label != "" {
		m.items[idx].status = label
		m.items[idx].stage = ev.Stage
	}
	if ev.Elapsed > 0 {
		m.items[idx].elapsed = ev.Elapsed
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, it := range m.items {
		if it.status == "done" || it.status == "error" {
			total += 1.0
		} else {
			total += progressFromStage(it.stage)
		}
	}
	return total / float64(len(m.items))
}

func progressFromStage(stage generator.Stage) float64 {
	switch stage {
	case generator.StageLoad:
		return 0.1
	case generator.StageResolve:
		return 0.3
	case generator.StageSynthesize:
		return 0.6
	case generator.StageWrite:
		return 0.9
	default:
		return 0.0
	}
}

func statusLabel(stage generator.Stage, status generator.Status) string {
	switch status {
	case generator.StatusQueued:
		return "queued"
	case generator.StatusDone:
		return "done"
	case generator.StatusError:
		return "error"
	case generator.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage generator.Stage) string {
	switch stage {
	case generator.StageLoad:
		return "loading"
	case generator.StageResolve:
		return "resolving"
	case generator.StageSynthesize:
		return "generating"
	case generator.StageWrite:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "loading", "resolving", "generating", "writing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
