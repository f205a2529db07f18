package liveplot

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type failingAppender struct{ err error }

func (a failingAppender) AppendDynamic(string, float64, float64, int, string, string) error {
	return a.err
}

func TestStreamFeeder(t *testing.T) {
	t.Run("OnePlotPerColumn", func(t *testing.T) {
		store := NewPlotStore(nil, true)
		rows := &RowParser{
			Input:   NewCsvSplitter(strings.NewReader("0,1,10\n1,2,20\n2,3,30\n")),
			XColumn: 0,
			Columns: []string{"a", "b"},
		}

		n, err := NewStreamFeeder(rows, store, 2, "t").Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if n != 3 {
			t.Fatalf("rows fed = %d, want 3", n)
		}

		a, _ := store.DynamicSnapshot("a")
		b, _ := store.DynamicSnapshot("b")
		if !reflect.DeepEqual(a.X, []float64{1, 2}) || !reflect.DeepEqual(a.Y, []float64{2, 3}) {
			t.Fatalf("a = %+v", a)
		}
		if !reflect.DeepEqual(b.Y, []float64{20, 30}) || b.YLabel != "b" || b.XLabel != "t" {
			t.Fatalf("b = %+v", b)
		}
	})

	t.Run("AppendErrorStops", func(t *testing.T) {
		boom := errors.New("boom")
		rows := &RowParser{
			Input:   NewWhitespaceSplitter(strings.NewReader("1\n2\n")),
			XColumn: -1,
		}

		n, err := NewStreamFeeder(rows, failingAppender{err: boom}, 10, "t").Run(context.Background())
		if !errors.Is(err, boom) || n != 0 {
			t.Fatalf("Run = %d, %v; want 0, boom", n, err)
		}
	})
}
