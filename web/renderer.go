package web

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cactusdynamics/liveplot"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// Address to listen on. Port 0 picks a free port; see Renderer.URL.
	Addr string

	// Open the UI in the default browser once the server is listening.
	OpenBrowser bool

	// How long Shutdown waits for the HTTP server to drain.
	ShutdownTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Addr:            "127.0.0.1:5274",
		ShutdownTimeout: 2 * time.Second,
	}
}

// Renderer draws plots in browsers. Every presented frame is encoded and
// broadcast to the connected websocket clients, which draw it on a canvas.
// Browsers can toggle pause and close the plotter with control messages.
type Renderer struct {
	options Options

	broadcaster *FrameBroadcaster
	server      *HttpServer
	listener    net.Listener
	serveDone   chan error

	// Only touched by the render goroutine.
	pending     Layout
	pendingMsgs [][]byte

	layoutMu   sync.Mutex
	lastLayout Layout

	pauseToggles   atomic.Int32
	closeRequested atomic.Bool

	logger logrus.FieldLogger
}

func NewRenderer(options Options) *Renderer {
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = DefaultOptions().ShutdownTimeout
	}

	return &Renderer{
		options:     options,
		broadcaster: NewFrameBroadcaster(),
		logger:      logrus.WithField("tag", "WebRenderer"),
	}
}

func (r *Renderer) Init() error {
	listener, err := net.Listen("tcp", r.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.options.Addr, err)
	}

	r.listener = listener
	r.server = NewHttpServer(r.broadcaster, r.Layout, r.handleControl)
	r.serveDone = make(chan error, 1)

	go func() {
		r.serveDone <- r.server.Serve(listener)
	}()

	if r.options.OpenBrowser {
		openBrowser(r.URL())
	}

	return nil
}

// URL of the UI. Only valid after Init.
func (r *Renderer) URL() string {
	return "http://" + r.listener.Addr().String()
}

func (r *Renderer) Broadcaster() *FrameBroadcaster {
	return r.broadcaster
}

func (r *Renderer) handleControl(action string) {
	switch action {
	case ActionTogglePause:
		r.pauseToggles.Add(1)
	case ActionClose:
		r.closeRequested.Store(true)
	default:
		r.logger.WithField("action", action).Warn("unknown control action")
	}
}

func (r *Renderer) PollEvents() liveplot.Events {
	toggles := r.pauseToggles.Swap(0)
	return liveplot.Events{
		TogglePause:    toggles%2 == 1,
		CloseRequested: r.closeRequested.Load(),
	}
}

func (r *Renderer) BeginFrame(info liveplot.FrameInfo) {
	r.pending = Layout{Frame: info.Index, Paused: info.Paused}
	r.pendingMsgs = r.pendingMsgs[:0]
}

func (r *Renderer) DrawPlot(panel string, plot liveplot.PlotFrame) {
	id := uint32(len(r.pending.Plots))

	layout := PlotLayout{
		ID:      id,
		Panel:   panel,
		Title:   plot.Title,
		Kind:    plot.Kind.String(),
		XLabel:  plot.XLabel,
		YLabel:  plot.YLabel,
		AutoFit: plot.AutoFit,
		Legend:  plot.Legend,
	}

	for i, line := range plot.Lines {
		layout.SeriesLabels = append(layout.SeriesLabels, line.Label)

		n := line.Len()
		msg, err := EncodeMessage(newMessage(MessageTypePlot, PlotMessage{
			PlotID:      id,
			SeriesIndex: uint32(i),
			X:           line.X[:n],
			Y:           line.Y[:n],
		}))
		if err != nil {
			r.logger.WithError(err).WithField("plot", plot.Title).Warn("failed to encode plot line")
			continue
		}

		r.pendingMsgs = append(r.pendingMsgs, msg)
	}

	r.pending.Plots = append(r.pending.Plots, layout)
}

func (r *Renderer) EndFrame() error {
	layoutMsg, err := EncodeMessage(newMessage(MessageTypeLayout, r.pending))
	if err != nil {
		return err
	}

	frame := make(Frame, 0, len(r.pendingMsgs)+1)
	frame = append(frame, layoutMsg)
	frame = append(frame, r.pendingMsgs...)

	r.broadcaster.Publish(context.Background(), frame)

	r.layoutMu.Lock()
	r.lastLayout = r.pending
	r.layoutMu.Unlock()

	return nil
}

// Layout returns the layout of the last presented frame.
func (r *Renderer) Layout() Layout {
	r.layoutMu.Lock()
	defer r.layoutMu.Unlock()
	return r.lastLayout
}

func (r *Renderer) Shutdown() error {
	endMsg, err := EncodeMessage(newMessage(MessageTypeStreamEnd, StreamEndMessage{Msg: "plotter stopped"}))
	if err != nil {
		return err
	}
	r.broadcaster.End(endMsg)

	ctx, cancel := context.WithTimeout(context.Background(), r.options.ShutdownTimeout)
	defer cancel()

	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	return <-r.serveDone
}
