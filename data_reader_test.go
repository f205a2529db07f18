package liveplot

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// errReader simulates an io.Reader that returns an error on Read.
type errReader struct{ err error }

func (e *errReader) Read(p []byte) (int, error) { return 0, e.err }

func TestCsvSplitter(t *testing.T) {
	t.Run("Rows", func(t *testing.T) {
		ctx := context.Background()
		s := NewCsvSplitter(strings.NewReader("1,2,3\n4,5\n"))

		got, err := s.Split(ctx)
		if err != nil || !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
			t.Fatalf("first row = %v, %v", got, err)
		}

		// Rows with a different field count are still returned.
		got, err = s.Split(ctx)
		if err != nil || !reflect.DeepEqual(got, []string{"4", "5"}) {
			t.Fatalf("second row = %v, %v", got, err)
		}

		if _, err := s.Split(ctx); err != io.EOF {
			t.Fatalf("err = %v, want io.EOF", err)
		}
	})

	t.Run("ParseErrorSkipped", func(t *testing.T) {
		s := NewCsvSplitter(strings.NewReader("a,\"b"))
		if _, err := s.Split(context.Background()); err != errSkipRow {
			t.Fatalf("err = %v, want errSkipRow", err)
		}
	})

	t.Run("UnderlyingError", func(t *testing.T) {
		boom := errors.New("boom")
		s := NewCsvSplitter(&errReader{err: boom})
		if _, err := s.Split(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := NewCsvSplitter(strings.NewReader("1\n"))
		if _, err := s.Split(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestWhitespaceSplitter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "spaces", input: "1 2 3", want: []string{"1", "2", "3"}},
		{name: "tabs and runs", input: "1\t\t2   3", want: []string{"1", "2", "3"}},
		{name: "commas", input: "1,2,3", want: []string{"1", "2", "3"}},
		{name: "mixed with padding", input: "  1, 2\t3  ", want: []string{"1", "2", "3"}},
		{name: "empty line", input: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWhitespaceSplitter(strings.NewReader(tt.input + "\n"))
			got, err := s.Split(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}

	t.Run("EOF", func(t *testing.T) {
		s := NewWhitespaceSplitter(strings.NewReader(""))
		if _, err := s.Split(context.Background()); err != io.EOF {
			t.Fatalf("err = %v, want io.EOF", err)
		}
	})
}

func TestRowParser(t *testing.T) {
	t.Run("XColumn", func(t *testing.T) {
		p := &RowParser{
			Input:   NewWhitespaceSplitter(strings.NewReader("10 1 2\n11 3 4\n")),
			XColumn: 0,
		}

		row, err := p.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(row, DataRow{X: 10, Ys: []float64{1, 2}}) {
			t.Fatalf("row = %+v", row)
		}
	})

	t.Run("GeneratedX", func(t *testing.T) {
		x := 0.0
		p := &RowParser{
			Input:   NewWhitespaceSplitter(strings.NewReader("5\n6\n")),
			XColumn: -1,
			XSource: func() float64 { x++; return x },
		}

		for i, wantY := range []float64{5, 6} {
			row, err := p.Next(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if row.X != float64(i+1) || !reflect.DeepEqual(row.Ys, []float64{wantY}) {
				t.Fatalf("row %d = %+v", i, row)
			}
		}
	})

	t.Run("SkipsBadRows", func(t *testing.T) {
		input := "x y\n\n1 2\n1 2 3\n4 5\n"
		p := &RowParser{
			Input:         NewWhitespaceSplitter(strings.NewReader(input)),
			XColumn:       0,
			Columns:       []string{"a"},
			StrictColumns: true,
		}

		var rows []DataRow
		for {
			row, err := p.Next(context.Background())
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatal(err)
			}
			rows = append(rows, row)
		}

		want := []DataRow{
			{X: 1, Ys: []float64{2}},
			{X: 4, Ys: []float64{5}},
		}
		if !reflect.DeepEqual(rows, want) {
			t.Fatalf("rows = %+v, want %+v", rows, want)
		}
	})

	t.Run("ColumnName", func(t *testing.T) {
		p := &RowParser{Columns: []string{"temp"}}
		if got := p.ColumnName(0); got != "temp" {
			t.Fatalf("ColumnName(0) = %q", got)
		}
		if got := p.ColumnName(2); got != "y2" {
			t.Fatalf("ColumnName(2) = %q", got)
		}
	})
}
