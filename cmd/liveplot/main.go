package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cactusdynamics/liveplot"
	"github.com/cactusdynamics/liveplot/tui"
	"github.com/cactusdynamics/liveplot/web"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Backend       string        `short:"b" long:"backend" choice:"tui" choice:"web" default:"tui" description:"where to draw the plots"`
	Addr          string        `long:"addr" default:"127.0.0.1:5274" description:"listen address of the web backend"`
	OpenBrowser   bool          `long:"open" description:"open the web backend in the default browser"`
	WindowSize    int           `short:"n" long:"window" default:"1000" description:"number of points kept per column"`
	XIndex        int           `short:"x" long:"x-index" default:"-1" description:"column holding x; negative uses the time of arrival"`
	XLabel        string        `long:"x-label" default:"x" description:"label of the x axis"`
	Columns       []string      `short:"c" long:"column" description:"name of a y column, repeat for every column"`
	Csv           bool          `long:"csv" description:"parse input as strict CSV instead of splitting on whitespace and commas"`
	StrictColumns bool          `long:"strict-columns" description:"skip rows whose column count differs from the named columns"`
	FrameInterval time.Duration `long:"frame-interval" default:"16ms" description:"time between rendered frames"`
	NoLock        bool          `long:"no-lock" description:"disable per-plot locking; only safe with a single producer"`
	LogLevel      string        `long:"log-level" default:"warn" description:"logrus log level"`
	LogFile       string        `long:"log-file" description:"write logs here instead of stderr"`
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	logFile, err := setupLogging(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := run(opts); err != nil {
		logrus.WithError(err).Error("liveplot failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func setupLogging(opts Options) (io.Closer, error) {
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)

	// The terminal backend owns the screen, so logs must go elsewhere.
	if opts.LogFile == "" {
		if opts.Backend == "tui" {
			logrus.SetOutput(io.Discard)
		}
		return nil, nil
	}

	f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	logrus.SetOutput(f)
	return f, nil
}

// Data arrives on stdin, so the terminal backend reads keys from the
// terminal itself.
var openTTY = func() (*os.File, error) {
	return os.Open("/dev/tty")
}

// newRenderer builds the selected backend. The returned closer, if not nil,
// releases what the backend was given and must be closed once the plotter
// has finalized.
func newRenderer(opts Options) (liveplot.Renderer, io.Closer, error) {
	switch opts.Backend {
	case "web":
		webOptions := web.DefaultOptions()
		webOptions.Addr = opts.Addr
		webOptions.OpenBrowser = opts.OpenBrowser
		return web.NewRenderer(webOptions), nil, nil
	case "tui":
		tty, err := openTTY()
		if err != nil {
			return nil, nil, fmt.Errorf("terminal backend needs a terminal: %w", err)
		}

		tuiOptions := tui.DefaultOptions()
		tuiOptions.Input = tty
		if opts.FrameInterval > 0 {
			tuiOptions.FPS = int(time.Second / opts.FrameInterval)
		}
		return tui.NewRenderer(tuiOptions), tty, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

func run(opts Options) error {
	renderer, input, err := newRenderer(opts)
	if err != nil {
		return err
	}
	if input != nil {
		defer input.Close()
	}

	plotterOptions := liveplot.DefaultOptions()
	plotterOptions.UseLocking = !opts.NoLock
	plotterOptions.FrameInterval = opts.FrameInterval

	plotter := liveplot.NewPlotter(renderer, plotterOptions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := plotter.Start(ctx); err != nil {
		return err
	}

	if w, ok := renderer.(*web.Renderer); ok {
		fmt.Fprintf(os.Stderr, "plotting at %s\n", w.URL())
	}

	var splitter liveplot.LineSplitter
	if opts.Csv {
		splitter = liveplot.NewCsvSplitter(os.Stdin)
	} else {
		splitter = liveplot.NewWhitespaceSplitter(os.Stdin)
	}

	rows := &liveplot.RowParser{
		Input:         splitter,
		XColumn:       opts.XIndex,
		Columns:       splitColumns(opts.Columns),
		StrictColumns: opts.StrictColumns,
	}

	feeder := liveplot.NewStreamFeeder(rows, plotter, opts.WindowSize, opts.XLabel)

	feedDone := make(chan error, 1)
	go func() {
		n, err := feeder.Run(ctx)
		logrus.WithField("rows", n).Info("feeder finished")
		feedDone <- err
	}()

	select {
	case err := <-feedDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			plotter.Stop()
			plotter.Wait()
			return err
		}
		// Keep the last view up until the user closes it.
		if err := plotter.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-plotter.Done():
		return nil
	}
}

// Columns may be given as one comma separated flag or repeated flags.
func splitColumns(columns []string) []string {
	var names []string
	for _, c := range columns {
		for _, name := range strings.Split(c, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
