package web

import (
	"context"
	"runtime/trace"
	"sync"

	"github.com/cactusdynamics/liveplot"
	"github.com/sirupsen/logrus"
)

// Frame is one presented frame, already encoded: a LAYOUT message followed by
// the PLOT messages.
type Frame [][]byte

// FrameBroadcaster fans frames out to websocket clients. It caches the most
// recent frame so a client that connects mid-stream sees the current view
// immediately instead of waiting for the next frame.
type FrameBroadcaster struct {
	mutex sync.Mutex

	// Channels of the open websockets. They should be buffered: a client
	// whose channel is full misses frames, which is harmless because every
	// frame is a complete snapshot.
	channels []chan<- Frame

	lastFrame Frame

	ended      chan struct{}
	endMessage []byte

	numFramesPublished uint64
	numFramesDropped   uint64

	logger logrus.FieldLogger
}

func NewFrameBroadcaster() *FrameBroadcaster {
	return &FrameBroadcaster{
		channels: make([]chan<- Frame, 0),
		ended:    make(chan struct{}),
		logger:   logrus.WithField("tag", "FrameBroadcaster"),
	}
}

// Register a channel for live frames. The cached frame, if any, is sent
// first under the same lock, so the client cannot miss a frame published
// in between.
func (b *FrameBroadcaster) Register(ctx context.Context, c chan<- Frame) {
	traceCtx, task := trace.NewTask(ctx, "RegisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", b.mutex.Lock)
	defer b.mutex.Unlock()

	if b.lastFrame != nil {
		b.send(c, b.lastFrame)
	}

	b.channels = append(b.channels, c)

	b.logger.WithField("channels", len(b.channels)).Info("registered channel")
}

// Deregister a channel. The channel must not be closed before this returns.
func (b *FrameBroadcaster) Deregister(ctx context.Context, c chan<- Frame) {
	traceCtx, task := trace.NewTask(ctx, "DeregisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", b.mutex.Lock)
	defer b.mutex.Unlock()

	b.channels = liveplot.Filter(b.channels, func(channel chan<- Frame) bool {
		return channel != c
	})

	b.logger.WithField("channels", len(b.channels)).Info("deregistered channel")
}

func (b *FrameBroadcaster) Publish(ctx context.Context, frame Frame) {
	traceCtx, task := trace.NewTask(ctx, "PublishFrame")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", b.mutex.Lock)
	defer b.mutex.Unlock()

	b.lastFrame = frame
	b.numFramesPublished++

	trace.WithRegion(traceCtx, "Broadcast", func() {
		for _, c := range b.channels {
			b.send(c, frame)
		}
	})
}

// Must be called with the mutex held.
func (b *FrameBroadcaster) send(c chan<- Frame, frame Frame) {
	select {
	case c <- frame:
	default:
		b.numFramesDropped++
		b.logger.WithField("dropped", b.numFramesDropped).Debug("client channel full, dropping frame")
	}
}

// End marks the stream as finished. Clients receive endMessage and are
// disconnected. Calling End more than once has no effect.
func (b *FrameBroadcaster) End(endMessage []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	select {
	case <-b.ended:
		return
	default:
	}

	b.endMessage = endMessage
	close(b.ended)

	b.logger.WithFields(logrus.Fields{
		"published": b.numFramesPublished,
		"dropped":   b.numFramesDropped,
	}).Info("frame stream ended")
}

// Ended is closed once End has been called.
func (b *FrameBroadcaster) Ended() <-chan struct{} {
	return b.ended
}

func (b *FrameBroadcaster) EndMessage() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.endMessage
}

func (b *FrameBroadcaster) LastFrame() Frame {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastFrame
}

func (b *FrameBroadcaster) NumChannels() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.channels)
}
