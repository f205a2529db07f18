package liveplot

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

type DynamicAppender interface {
	AppendDynamic(name string, x, y float64, windowSize int, xLabel string, yLabel string) error
}

// StreamFeeder is a producer that reads rows of text and appends every
// column to its own dynamic plot, named after the column.
type StreamFeeder struct {
	Rows       *RowParser
	Target     DynamicAppender
	WindowSize int
	XLabel     string

	logger logrus.FieldLogger
}

func NewStreamFeeder(rows *RowParser, target DynamicAppender, windowSize int, xLabel string) *StreamFeeder {
	return &StreamFeeder{
		Rows:       rows,
		Target:     target,
		WindowSize: windowSize,
		XLabel:     xLabel,
		logger:     logrus.WithField("tag", "StreamFeeder"),
	}
}

// Run feeds rows until the input ends, ctx is done, or an append fails.
// Returns the number of rows fed. End of input is not an error.
func (f *StreamFeeder) Run(ctx context.Context) (int, error) {
	rowsFed := 0

	for {
		row, err := f.Rows.Next(ctx)
		if err == io.EOF {
			f.logger.WithField("rows", rowsFed).Info("input ended")
			return rowsFed, nil
		}
		if err != nil {
			return rowsFed, err
		}

		for i, y := range row.Ys {
			name := f.Rows.ColumnName(i)
			if err := f.Target.AppendDynamic(name, row.X, y, f.WindowSize, f.XLabel, name); err != nil {
				return rowsFed, err
			}
		}

		rowsFed++
	}
}
