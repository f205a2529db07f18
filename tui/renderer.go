package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cactusdynamics/liveplot"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// Keyboard input. Nil disables input.
	Input io.Reader
	// Where the UI is drawn.
	Output io.Writer
	// Draw on the alternate screen so the terminal is restored on exit.
	AltScreen bool
	// Expected frame rate, used to step the axis easing.
	FPS int
}

func DefaultOptions() Options {
	return Options{
		Input:     os.Stdin,
		Output:    os.Stdout,
		AltScreen: true,
		FPS:       60,
	}
}

// Renderer draws plots in the terminal with Braille characters. The bubbletea
// program runs on its own goroutine; frames are handed to it as messages.
//
// Space toggles pause. q, esc and ctrl+c request close.
type Renderer struct {
	options Options

	program *tea.Program
	input   *input
	runDone chan error

	// Only touched by the render goroutine.
	pending frameMsg

	logger logrus.FieldLogger
}

func NewRenderer(options Options) *Renderer {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.FPS <= 0 {
		options.FPS = DefaultOptions().FPS
	}

	return &Renderer{
		options: options,
		logger:  logrus.WithField("tag", "TuiRenderer"),
	}
}

func (r *Renderer) Init() error {
	r.input = &input{}
	ready := make(chan struct{})

	programOptions := []tea.ProgramOption{
		tea.WithInput(r.options.Input),
		tea.WithOutput(r.options.Output),
	}
	if r.options.AltScreen {
		programOptions = append(programOptions, tea.WithAltScreen())
	}

	r.program = tea.NewProgram(newModel(r.input, ready, r.options.FPS), programOptions...)
	r.runDone = make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		// A program that exits on its own (signal, broken terminal) closes
		// the plotter.
		r.input.closeRequested.Store(true)
		r.runDone <- err
	}()

	select {
	case <-ready:
		r.logger.Debug("terminal program started")
		return nil
	case err := <-r.runDone:
		if err == nil {
			err = errors.New("exited before it was ready")
		}
		return fmt.Errorf("terminal program failed to start: %w", err)
	}
}

func (r *Renderer) PollEvents() liveplot.Events {
	toggles := r.input.pauseToggles.Swap(0)
	return liveplot.Events{
		TogglePause:    toggles%2 == 1,
		CloseRequested: r.input.closeRequested.Load(),
	}
}

func (r *Renderer) BeginFrame(info liveplot.FrameInfo) {
	r.pending = frameMsg{info: info}
}

func (r *Renderer) DrawPlot(panel string, plot liveplot.PlotFrame) {
	r.pending.plots = append(r.pending.plots, liveplot.PanelPlot{Panel: panel, Plot: plot})
}

func (r *Renderer) EndFrame() error {
	// Send returns immediately once the program has exited.
	r.program.Send(r.pending)
	return nil
}

func (r *Renderer) Shutdown() error {
	r.program.Quit()
	err := <-r.runDone
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
