package liveplot

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Text input is turned into plot data in two steps: a LineSplitter breaks the
// input into fields, then a RowParser converts the fields into a DataRow with
// one x and one y per column.

var errSkipRow = errors.New("skip row")

type LineSplitter interface {
	Split(context.Context) ([]string, error)
}

type DataRow struct {
	X  float64
	Ys []float64
}

// CsvSplitter reads strictly conforming CSV. Rows may have different field
// counts; the RowParser decides what to do with them.
type CsvSplitter struct {
	csvReader *csv.Reader
	lineNum   int
	logger    logrus.FieldLogger
}

func NewCsvSplitter(input io.Reader) *CsvSplitter {
	csvReader := csv.NewReader(input)
	csvReader.FieldsPerRecord = -1

	return &CsvSplitter{
		csvReader: csvReader,
		logger:    logrus.WithField("tag", "CsvSplitter"),
	}
}

func (s *CsvSplitter) Split(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := s.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	s.lineNum++

	var parseErr *csv.ParseError
	switch {
	case errors.As(err, &parseErr):
		s.logger.WithError(err).WithField("lineNum", s.lineNum).Debug("unable to parse CSV, skipping")
		return nil, errSkipRow
	case err != nil:
		s.logger.WithError(err).WithField("lineNum", s.lineNum).Error("unable to read CSV")
		return nil, err
	}

	return fields, nil
}

// Fields are separated by commas or runs of spaces and tabs.
var fieldSeparator = regexp.MustCompile("[ \t]+|,")

// WhitespaceSplitter splits lines on commas or any whitespace. It does not
// understand CSV quoting.
type WhitespaceSplitter struct {
	scanner *bufio.Scanner
	logger  logrus.FieldLogger
}

func NewWhitespaceSplitter(input io.Reader) *WhitespaceSplitter {
	return &WhitespaceSplitter{
		scanner: bufio.NewScanner(input),
		logger:  logrus.WithField("tag", "WhitespaceSplitter"),
	}
}

func (s *WhitespaceSplitter) Split(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			s.logger.WithError(err).Error("unable to read line")
			return nil, err
		}
		return nil, io.EOF
	}

	return Filter(fieldSeparator.Split(s.scanner.Text(), -1), func(field string) bool {
		return len(field) > 0
	}), nil
}

// Seconds since the unix epoch, with microsecond precision.
func NowX() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}

// RowParser converts split lines into DataRows. Lines with unparsable
// numbers are skipped with a warning.
type RowParser struct {
	Input LineSplitter

	// Column holding x. Negative means x comes from XSource instead, and
	// every column is a y value.
	XColumn int

	// Defaults to NowX.
	XSource func() float64

	// Names of the y columns.
	Columns []string

	// Skip rows whose y count differs from len(Columns).
	StrictColumns bool
}

// Next returns the next usable row, skipping bad ones. Returns io.EOF at
// the end of input.
func (p *RowParser) Next(ctx context.Context) (DataRow, error) {
	for {
		row, err := p.next(ctx)
		if err == errSkipRow {
			continue
		}

		return row, err
	}
}

func (p *RowParser) next(ctx context.Context) (DataRow, error) {
	fields, err := p.Input.Split(ctx)
	if err != nil {
		return DataRow{}, err
	}

	if len(fields) == 0 {
		return DataRow{}, errSkipRow
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":    "RowParser",
		"fields": fields,
	})

	row := DataRow{Ys: make([]float64, 0, len(fields))}
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			logger.Warn("cannot parse number, skipping row")
			return DataRow{}, errSkipRow
		}

		if i == p.XColumn {
			row.X = value
			continue
		}

		row.Ys = append(row.Ys, value)
	}

	if p.StrictColumns && len(row.Ys) != len(p.Columns) {
		logger.Warnf("expected %d columns but got %d, skipping row", len(p.Columns), len(row.Ys))
		return DataRow{}, errSkipRow
	}

	if p.XColumn < 0 {
		xSource := p.XSource
		if xSource == nil {
			xSource = NowX
		}
		row.X = xSource()
	}

	return row, nil
}

// ColumnName returns the configured name of y column i, or a generated one.
func (p *RowParser) ColumnName(i int) string {
	if i < len(p.Columns) {
		return p.Columns[i]
	}

	return "y" + strconv.Itoa(i)
}
