package reportcallback

import (
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-rights/report"
)

type sliceIterator struct {
	rows  []report.Row
	index int
}

func (it *sliceIterator) Next(ctx context.Context) (report.Row, error) {
	_ = ctx
	if it.index >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.index]
	it.index++
	return row, nil
}

func (it *sliceIterator) Close() error { return nil }

func TestSource_OpenCallsFunc(t *testing.T) {
	called := false
	source := NewSource(func(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
		_ = ctx
		if spec.Request.Dataset != "grants" {
			t.Fatalf("unexpected dataset: %q", spec.Request.Dataset)
		}
		called = true
		return &sliceIterator{rows: []report.Row{{"Falcon Run", "StreamCo"}}}, nil
	})

	it, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{Dataset: "grants"},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	row, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if row[0] != "Falcon Run" {
		t.Fatalf("expected row data")
	}
	if !called {
		t.Fatalf("expected callback to be invoked")
	}
}

func TestFuncIterator_NextNil(t *testing.T) {
	it := &FuncIterator{}
	if _, err := it.Next(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
