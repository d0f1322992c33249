// Package tuiview implements the live terminal view for an in-progress
// md run: a lipgloss stats panel plus asciigraph traces of temperature and
// total energy, ticked once per rendered frame the way viz.Model steps
// its physics model once per tick.
package tuiview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const historyCapacity = 600

var (
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(50)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// Frame is one reported point in the run — everything the view needs to
// draw a tick without reaching back into the Simulation.
type Frame struct {
	Step        int
	Time        float64
	Temperature float64
	Epot, Ekin, Etot float64
	Unstable    bool
	Done        bool
	Err         error
}

// StepFunc advances the run by one step and reports the resulting frame.
// The tuiview package owns no simulation state; it only drives StepFunc
// and renders what comes back.
type StepFunc func() Frame

type tickMsg time.Time

// Model is the bubbletea program state for a live md run.
type Model struct {
	step     StepFunc
	name     string
	running  bool
	maxTime  float64
	current  Frame
	tHistory []float64
	eHistory []float64
	quitting bool
}

// NewModel builds a live view driving step once per tick.
func NewModel(name string, maxTime float64, step StepFunc) Model {
	return Model{
		step:     step,
		name:     name,
		running:  true,
		maxTime:  maxTime,
		tHistory: make([]float64, 0, historyCapacity),
		eHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ":
			m.running = !m.running
		}
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		if m.running {
			f := m.step()
			m.current = f
			m.tHistory = append(m.tHistory, f.Temperature)
			m.eHistory = append(m.eHistory, f.Etot)
			if len(m.tHistory) > historyCapacity {
				m.tHistory = m.tHistory[1:]
				m.eHistory = m.eHistory[1:]
			}
			if f.Done || f.Err != nil {
				m.running = false
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.current.Done {
		status = "COMPLETE"
	}
	if m.current.Err != nil {
		status = "ERROR"
	}
	s.WriteString(status + "\n\n")

	if len(m.eHistory) > 1 {
		chart := asciigraph.Plot(m.eHistory, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("total energy (Hartree)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.tHistory) > 1 {
		chart := asciigraph.Plot(m.tHistory, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("temperature (K)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", m.current.Step)) + "\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f / %.2f fs", m.current.Time, m.maxTime)) + "\n")
	s.WriteString(labelStyle.Render("T") + valueStyle.Render(fmt.Sprintf("%.2f K", m.current.Temperature)) + "\n")
	s.WriteString(labelStyle.Render("Epot") + valueStyle.Render(fmt.Sprintf("%.6f Eh", m.current.Epot)) + "\n")
	s.WriteString(labelStyle.Render("Ekin") + valueStyle.Render(fmt.Sprintf("%.6f Eh", m.current.Ekin)) + "\n")
	s.WriteString(labelStyle.Render("Etot") + valueStyle.Render(fmt.Sprintf("%.6f Eh", m.current.Etot)) + "\n")

	if m.current.Unstable {
		s.WriteString(warnStyle.Render("\nT exceeds 100×T0 — run is unstable") + "\n")
	}
	if m.current.Err != nil {
		s.WriteString(warnStyle.Render(fmt.Sprintf("\n%v", m.current.Err)) + "\n")
	}

	s.WriteString(helpStyle.Render("space: pause/resume   q: quit"))
	return statsStyle.Render(s.String())
}
