package tui

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cactusdynamics/liveplot"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// frameMsg carries one presented frame from the render goroutine.
type frameMsg struct {
	info  liveplot.FrameInfo
	plots []liveplot.PanelPlot
}

// input is shared between the model, which records key presses, and the
// renderer, which reports them to the plotter.
type input struct {
	pauseToggles   atomic.Int32
	closeRequested atomic.Bool
}

type model struct {
	input *input
	ready chan struct{}
	fps   int

	frame  frameMsg
	axes   map[string]*axis
	bounds map[string]Bounds

	width, height int
}

func newModel(in *input, ready chan struct{}, fps int) model {
	return model{
		input:  in,
		ready:  ready,
		fps:    fps,
		axes:   make(map[string]*axis),
		bounds: make(map[string]Bounds),
		width:  defaultWidth,
		height: defaultHeight,
	}
}

func (m model) Init() tea.Cmd {
	ready := m.ready
	return func() tea.Msg {
		close(ready)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.input.closeRequested.Store(true)
			return m, nil
		}
		if isPause(msg) {
			m.input.pauseToggles.Add(1)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		m.frame = msg
		for _, pp := range msg.plots {
			key := plotKey(pp)
			a, ok := m.axes[key]
			if !ok {
				a = newAxis(m.fps)
				m.axes[key] = a
			}
			target, _ := DataBounds(pp.Plot.Lines)
			m.bounds[key] = a.update(target, pp.Plot.AutoFit)
		}
		return m, nil
	}

	return m, nil
}

func plotKey(pp liveplot.PanelPlot) string {
	return pp.Panel + "/" + pp.Plot.Title
}

func (m model) View() string {
	var sections []string
	sections = append(sections, m.header())

	plots := m.frame.plots
	if len(plots) == 0 {
		sections = append(sections, helpStyle.Render("waiting for data"))
	} else {
		panels := 0
		for i, pp := range plots {
			if i == 0 || plots[i-1].Panel != pp.Panel {
				panels++
			}
		}

		// Header, help and one title row per panel.
		available := m.height - 2 - panels
		plotHeight := max(available/len(plots), minPlotHeight+2)

		for i, pp := range plots {
			if i == 0 || plots[i-1].Panel != pp.Panel {
				sections = append(sections, panelStyle.Render(pp.Panel))
			}
			sections = append(sections, renderPlot(pp.Plot, m.bounds[plotKey(pp)], m.width, plotHeight))
		}
	}

	sections = append(sections, helpStyle.Render(helpText()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) header() string {
	status := runningStyle.Render("● running")
	if m.frame.info.Paused {
		status = pausedStyle.Render("❚❚ paused")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("liveplot"))
	b.WriteString("  ")
	b.WriteString(status)
	b.WriteString(helpStyle.Render(fmt.Sprintf("  frame %d", m.frame.info.Index)))
	return b.String()
}
