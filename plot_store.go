package liveplot

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Gate decides whether a mutation may proceed. Enter blocks while the plotter
// is paused and returns false if the mutation should be dropped.
type Gate interface {
	Enter() bool
}

type openGate struct{}

func (openGate) Enter() bool { return true }

// PlotStore is the registry of named plot buffers. Static and dynamic plots
// live in separate namespaces, so the same name may be used for one of each.
//
// The registry lock is only held to look up or insert a buffer. Payload
// writes and reads take the buffer's own lock, so producers updating
// different plots do not serialize on each other.
type PlotStore struct {
	gate       Gate
	useLocking bool

	mu           sync.RWMutex
	statics      map[string]*StaticBuffer
	staticOrder  []*StaticBuffer
	dynamics     map[string]*DynamicBuffer
	dynamicOrder []*DynamicBuffer

	logger logrus.FieldLogger
}

// Creates a new plot store. A nil gate lets every mutation through.
//
// If useLocking is false, the per-plot locks are never taken. This is only
// safe when producing and rendering happen on the same goroutine. The
// registry itself is always locked.
func NewPlotStore(gate Gate, useLocking bool) *PlotStore {
	if gate == nil {
		gate = openGate{}
	}

	return &PlotStore{
		gate:       gate,
		useLocking: useLocking,
		statics:    make(map[string]*StaticBuffer),
		dynamics:   make(map[string]*DynamicBuffer),
		logger:     logrus.WithField("tag", "PlotStore"),
	}
}

func (s *PlotStore) lock(mu *sync.Mutex) {
	if s.useLocking {
		mu.Lock()
	}
}

func (s *PlotStore) unlock(mu *sync.Mutex) {
	if s.useLocking {
		mu.Unlock()
	}
}

// Creates or replaces a static plot with one line per entry in ys.
//
// Labels are only set when the plot is created; later calls replace the
// numeric data only. If any series has a different length than x, a
// *DataShapeError naming the first offending series is returned, but the data
// is stored anyway.
func (s *PlotStore) UpsertStatic(name string, x []float64, ys [][]float64, xLabel string, seriesLabels []string) error {
	if len(seriesLabels) != len(ys) {
		return fmt.Errorf("plot %q: %w (%d labels, %d series)", name, ErrLabelCount, len(seriesLabels), len(ys))
	}

	if !s.gate.Enter() {
		return nil
	}

	buf, created := s.staticBuffer(name, xLabel, seriesLabels)
	if created {
		s.logger.WithField("plot", name).Info("creating new static plot")
	}

	x = slices.Clone(x)
	ys = cloneSeries(ys)

	s.lock(&buf.mu)
	buf.x = x
	buf.ys = ys
	s.unlock(&buf.mu)

	return checkShape(name, x, ys)
}

func (s *PlotStore) UpsertStaticSingleSeries(name string, x []float64, y []float64, xLabel string, yLabel string) error {
	return s.UpsertStatic(name, x, [][]float64{y}, xLabel, []string{yLabel})
}

func checkShape(name string, x []float64, ys [][]float64) error {
	for i, y := range ys {
		if len(y) != len(x) {
			return &DataShapeError{
				Plot:      name,
				Series:    i,
				XLen:      len(x),
				SeriesLen: len(y),
			}
		}
	}

	return nil
}

// Returns the named static buffer, creating it with the given labels if it
// does not exist yet. The existence check and the insert happen under the
// registry lock, so concurrent first writes to one name create one buffer
// and the first writer's labels win.
func (s *PlotStore) staticBuffer(name string, xLabel string, seriesLabels []string) (*StaticBuffer, bool) {
	s.mu.RLock()
	buf, ok := s.statics[name]
	s.mu.RUnlock()
	if ok {
		return buf, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, ok := s.statics[name]; ok {
		return buf, false
	}

	buf = &StaticBuffer{
		name:         name,
		xLabel:       xLabel,
		seriesLabels: slices.Clone(seriesLabels),
	}
	s.statics[name] = buf
	s.staticOrder = append(s.staticOrder, buf)

	return buf, true
}

// Appends (x, y) to a dynamic plot, keeping only the newest windowSize
// points. A different windowSize than the stored one resizes the window
// before appending, trimming the oldest points if it shrank.
func (s *PlotStore) AppendDynamic(name string, x, y float64, windowSize int, xLabel string, yLabel string) error {
	return s.appendDynamic(name, windowSize, xLabel, yLabel, func(*DynamicBuffer) float64 {
		return x
	}, y)
}

// Like AppendDynamic, but x is a per-plot counter starting at 0 and
// incremented on every call.
func (s *PlotStore) AppendDynamicAutoX(name string, y float64, windowSize int, xLabel string, yLabel string) error {
	return s.appendDynamic(name, windowSize, xLabel, yLabel, func(buf *DynamicBuffer) float64 {
		x := float64(buf.counter)
		buf.counter++
		return x
	}, y)
}

func (s *PlotStore) appendDynamic(name string, windowSize int, xLabel string, yLabel string, nextX func(*DynamicBuffer) float64, y float64) error {
	if windowSize < 1 {
		return fmt.Errorf("plot %q: %w (got %d)", name, ErrInvalidWindowSize, windowSize)
	}

	if !s.gate.Enter() {
		return nil
	}

	buf, created := s.dynamicBuffer(name, windowSize, xLabel, yLabel)
	if created {
		s.logger.WithFields(logrus.Fields{
			"plot":       name,
			"windowSize": windowSize,
		}).Info("creating new dynamic plot")
	}

	s.lock(&buf.mu)
	oldWindowSize := buf.windowSize()
	if oldWindowSize != windowSize {
		buf.resize(windowSize)
	}
	buf.add(nextX(buf), y)
	s.unlock(&buf.mu)

	if oldWindowSize != windowSize {
		s.logger.WithFields(logrus.Fields{
			"plot": name,
			"from": oldWindowSize,
			"to":   windowSize,
		}).Info("resizing dynamic plot window")
	}

	return nil
}

func (s *PlotStore) dynamicBuffer(name string, windowSize int, xLabel string, yLabel string) (*DynamicBuffer, bool) {
	s.mu.RLock()
	buf, ok := s.dynamics[name]
	s.mu.RUnlock()
	if ok {
		return buf, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, ok := s.dynamics[name]; ok {
		return buf, false
	}

	buf = newDynamicBuffer(name, windowSize, xLabel, yLabel)
	s.dynamics[name] = buf
	s.dynamicOrder = append(s.dynamicOrder, buf)

	return buf, true
}

func (s *PlotStore) StaticSnapshot(name string) (StaticSnapshot, bool) {
	s.mu.RLock()
	buf, ok := s.statics[name]
	s.mu.RUnlock()
	if !ok {
		return StaticSnapshot{}, false
	}

	s.lock(&buf.mu)
	defer s.unlock(&buf.mu)
	return buf.snapshot(), true
}

func (s *PlotStore) DynamicSnapshot(name string) (DynamicSnapshot, bool) {
	s.mu.RLock()
	buf, ok := s.dynamics[name]
	s.mu.RUnlock()
	if !ok {
		return DynamicSnapshot{}, false
	}

	s.lock(&buf.mu)
	defer s.unlock(&buf.mu)
	return buf.snapshot(), true
}

// Copies every static plot, in creation order. Each plot is locked only
// while it is copied.
func (s *PlotStore) StaticSnapshots() []StaticSnapshot {
	s.mu.RLock()
	bufs := slices.Clone(s.staticOrder)
	s.mu.RUnlock()

	snapshots := make([]StaticSnapshot, 0, len(bufs))
	for _, buf := range bufs {
		s.lock(&buf.mu)
		snapshots = append(snapshots, buf.snapshot())
		s.unlock(&buf.mu)
	}

	return snapshots
}

// Copies every dynamic plot, in creation order.
func (s *PlotStore) DynamicSnapshots() []DynamicSnapshot {
	s.mu.RLock()
	bufs := slices.Clone(s.dynamicOrder)
	s.mu.RUnlock()

	snapshots := make([]DynamicSnapshot, 0, len(bufs))
	for _, buf := range bufs {
		s.lock(&buf.mu)
		snapshots = append(snapshots, buf.snapshot())
		s.unlock(&buf.mu)
	}

	return snapshots
}

// Len returns the number of static and dynamic plots.
func (s *PlotStore) Len() (static int, dynamic int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.staticOrder), len(s.dynamicOrder)
}
