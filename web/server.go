package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const frameBufferSize = 4

type HttpServer struct {
	broadcaster *FrameBroadcaster
	layout      func() Layout
	onControl   func(action string)

	mux    *http.ServeMux
	server *http.Server
	logger logrus.FieldLogger
}

// Creates the HTTP server for the browser UI.
//
//   - broadcaster: source of frames for /ws.
//   - layout: returns the layout of the last presented frame, served on /layout.
//   - onControl: called with the action of every control message a browser sends.
func NewHttpServer(broadcaster *FrameBroadcaster, layout func() Layout, onControl func(action string)) *HttpServer {
	s := &HttpServer{
		broadcaster: broadcaster,
		layout:      layout,
		onControl:   onControl,
		mux:         http.NewServeMux(),
		logger:      logrus.WithField("tag", "HttpServer"),
	}

	subFS, err := fs.Sub(webuiFiles, "webui")
	if err != nil {
		panic(err)
	}

	s.mux.Handle("/", http.FileServer(http.FS(subFS)))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/layout", s.handleLayout)

	s.server = &http.Server{Handler: s.mux}

	return s
}

func (s *HttpServer) Handler() http.Handler {
	return s.mux
}

func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	logger := s.logger.WithField("client", uuid.NewString())
	logger.Info("client connected")

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	go s.readControls(ctx, cancel, c, logger)

	channel := make(chan Frame, frameBufferSize)
	s.broadcaster.Register(ctx, channel)
	defer s.broadcaster.Deregister(ctx, channel)

	for {
		select {
		case frame := <-channel:
			for _, msg := range frame {
				if err := c.Write(ctx, websocket.MessageBinary, msg); err != nil {
					logger.WithError(err).Warn("websocket write failed")
					return
				}
			}
		case <-s.broadcaster.Ended():
			if err := c.Write(ctx, websocket.MessageBinary, s.broadcaster.EndMessage()); err != nil {
				logger.WithError(err).Warn("failed to send stream end")
			}
			c.Close(websocket.StatusNormalClosure, "stream ended")
			return
		case <-ctx.Done():
			logger.Info("client closed connection or context canceled")
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// Reads control messages until the connection fails, then cancels the
// connection's context so the writer side exits too.
func (s *HttpServer) readControls(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, logger logrus.FieldLogger) {
	defer cancel()

	for {
		var msg ControlMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			logger.WithError(err).Debug("stopped reading control messages")
			return
		}

		logger.WithField("action", msg.Action).Info("control message")
		if s.onControl != nil {
			s.onControl(msg.Action)
		}
	}
}

func (s *HttpServer) handleLayout(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(s.layout())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

// Serve blocks until the server is shut down.
func (s *HttpServer) Serve(listener net.Listener) error {
	s.logger.Infof("starting HTTP server at http://%s", listener.Addr())
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
