package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cactusdynamics/liveplot"
	"github.com/cactusdynamics/liveplot/tui"
	"github.com/cactusdynamics/liveplot/web"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Backend     string        `short:"b" long:"backend" choice:"tui" choice:"web" default:"tui" description:"where to draw the plots"`
	Addr        string        `long:"addr" default:"127.0.0.1:5274" description:"listen address of the web backend"`
	OpenBrowser bool          `long:"open" description:"open the web backend in the default browser"`
	Period      time.Duration `short:"p" long:"period" default:"100ms" description:"time between updates"`
	Omega       float64       `long:"omega" default:"1" description:"angular speed of the circle and sine plots, in rad/s"`
	WindowSize  int           `short:"n" long:"window" default:"100" description:"points kept by the dynamic plots"`
	LogLevel    string        `long:"log-level" default:"info" description:"logrus log level"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logrus.SetLevel(level)

	var renderer liveplot.Renderer
	switch opts.Backend {
	case "web":
		webOptions := web.DefaultOptions()
		webOptions.Addr = opts.Addr
		webOptions.OpenBrowser = opts.OpenBrowser
		renderer = web.NewRenderer(webOptions)
	default:
		// The terminal backend owns the screen.
		logrus.SetOutput(io.Discard)
		renderer = tui.NewRenderer(tui.DefaultOptions())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plotter := liveplot.NewPlotter(renderer, liveplot.DefaultOptions())
	if err := plotter.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if w, ok := renderer.(*web.Renderer); ok {
		fmt.Fprintf(os.Stderr, "plotting at %s\n", w.URL())
	}

	if err := runDemo(ctx, plotter, opts); err != nil {
		logrus.WithError(err).Error("demo failed")
	}

	plotter.Stop()
	plotter.Wait()
}

type demoPlotter interface {
	IsRunning() bool
	UpsertStatic(name string, x []float64, ys [][]float64, xLabel string, seriesLabels []string) error
	UpsertStaticSingleSeries(name string, x []float64, y []float64, xLabel string, yLabel string) error
	AppendDynamic(name string, x, y float64, windowSize int, xLabel string, yLabel string) error
	AppendDynamicAutoX(name string, y float64, windowSize int, xLabel string, yLabel string) error
}

// runDemo updates every demo plot once per period while the plotter runs.
func runDemo(ctx context.Context, p demoPlotter, opts Options) error {
	ticker := time.NewTicker(opts.Period)
	defer ticker.Stop()

	start := time.Now()
	for p.IsRunning() {
		if err := updateDemo(p, time.Since(start).Seconds(), opts); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}

	return nil
}

func updateDemo(p demoPlotter, t float64, opts Options) error {
	err := p.UpsertStatic("Test",
		[]float64{1, 2, 3, 4, 5},
		[][]float64{{1, 2, 3, 4, 5}, {1, 4, 9, 16, 25}},
		"X", []string{"Y1", "Y2"})
	if err != nil {
		return err
	}

	if err := p.AppendDynamicAutoX("Random", float64(rand.Intn(100)), opts.WindowSize, "x", "y"); err != nil {
		return err
	}

	const radius = 0.5
	angle := opts.Omega * t
	if err := p.AppendDynamic("circle", radius*math.Cos(angle), radius*math.Sin(angle), opts.WindowSize, "x", "y"); err != nil {
		return err
	}

	x := make([]float64, 1000)
	y := make([]float64, 1000)
	for i := range x {
		x[i] = float64(i)
		y[i] = math.Sin(angle + float64(i)*0.01)
	}
	return p.UpsertStaticSingleSeries("sin", x, y, "X", "Y")
}
