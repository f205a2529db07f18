package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/cactusdynamics/liveplot/web"
	"nhooyr.io/websocket"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    *slog.Logger

	// Stop after this many frames. Zero reads until the stream ends.
	MaxFrames int
}

// WSReader reads frames from the liveplot web backend and outputs them as CSV
type WSReader struct {
	config    Config
	csvWriter *csv.Writer

	layout web.Layout
	frames int
}

// NewWSReader creates a new WS reader with the given configuration
func NewWSReader(config Config) *WSReader {
	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

// Connect establishes websocket connection and processes messages
func (w *WSReader) Connect(ctx context.Context) error {
	u, err := url.Parse(w.config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	w.config.Logger.Info("Connecting to websocket", "url", u.String())

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"frame", "plot", "series", "x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for {
		_, messageData, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("Connection closed normally")
				break
			}
			w.csvWriter.Flush()
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := w.processMessage(messageData); err != nil {
			if err == io.EOF {
				break
			}
			w.config.Logger.Error("Error processing message", "error", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

// processMessage processes a single websocket message. Returns io.EOF once
// reading should stop.
func (w *WSReader) processMessage(messageData []byte) error {
	msg, err := web.DecodeMessage(messageData)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch payload := msg.Payload.(type) {
	case web.Layout:
		// A layout starts the next frame, so the previous one is complete.
		if w.config.MaxFrames > 0 && w.frames >= w.config.MaxFrames {
			return io.EOF
		}
		w.layout = payload
		w.frames++
		w.config.Logger.Debug("Received layout", "frame", payload.Frame, "plots", len(payload.Plots), "paused", payload.Paused)

	case web.PlotMessage:
		return w.processPlotMessage(payload)

	case web.StreamEndMessage:
		if payload.Error {
			w.config.Logger.Error("Stream ended with error", "message", payload.Msg)
		} else {
			w.config.Logger.Info("Stream ended successfully", "message", payload.Msg)
		}
		return io.EOF

	default:
		w.config.Logger.Warn("Unknown message type", "type", fmt.Sprintf("0x%02x", msg.Header.Type))
	}

	return nil
}

// processPlotMessage writes one CSV row per point of the line
func (w *WSReader) processPlotMessage(plotMsg web.PlotMessage) error {
	if int(plotMsg.PlotID) >= len(w.layout.Plots) {
		return fmt.Errorf("plot %d is not in the current layout", plotMsg.PlotID)
	}

	plot := w.layout.Plots[plotMsg.PlotID]
	series := strconv.FormatUint(uint64(plotMsg.SeriesIndex), 10)
	if int(plotMsg.SeriesIndex) < len(plot.SeriesLabels) {
		series = plot.SeriesLabels[plotMsg.SeriesIndex]
	}
	frame := strconv.FormatUint(w.layout.Frame, 10)

	for i := 0; i < len(plotMsg.X); i++ {
		row := []string{
			frame,
			plot.Title,
			series,
			strconv.FormatFloat(plotMsg.X[i], 'g', -1, 64),
			strconv.FormatFloat(plotMsg.Y[i], 'g', -1, 64),
		}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

func main() {
	var serverURL = flag.String("url", "http://localhost:5274", "URL of the liveplot web backend")
	var maxFrames = flag.Int("frames", 0, "stop after this many frames (0 reads until the stream ends)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	config := Config{
		ServerURL: *serverURL,
		Output:    os.Stdout,
		Logger:    logger,
		MaxFrames: *maxFrames,
	}

	reader := NewWSReader(config)
	if err := reader.Connect(context.Background()); err != nil {
		config.Logger.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
}
