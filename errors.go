package liveplot

import (
	"errors"
	"fmt"
)

var (
	// Returned by Start when the renderer could not create its window or
	// graphics context. The backend's error is wrapped alongside it.
	ErrInitialization = errors.New("renderer initialization failed")

	ErrAlreadyStarted = errors.New("plotter already started")
	ErrFinalized      = errors.New("plotter finalized")

	// The number of series labels must match the number of y series.
	ErrLabelCount = errors.New("series label count does not match series count")

	ErrInvalidWindowSize = errors.New("window size must be at least 1")
)

// DataShapeError is returned when a static plot's y series does not have the
// same length as its x values. The data is still stored and will be drawn
// truncated to the shorter of the two, so this is a caller bug to fix rather
// than something to retry.
type DataShapeError struct {
	Plot      string
	Series    int
	XLen      int
	SeriesLen int
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("plot %q: x values and y series[%d] have different sizes (%d != %d)", e.Plot, e.Series, e.XLen, e.SeriesLen)
}
