package reportcrud

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

type captureStreamer struct {
	spec  Spec
	iter  report.RowIterator
	calls int
}

func (s *captureStreamer) Stream(ctx context.Context, spec Spec) (report.RowIterator, error) {
	_ = ctx
	s.calls++
	s.spec = spec
	if s.iter != nil {
		return s.iter, nil
	}
	return &sliceIterator{rows: []report.Row{{"1"}}}, nil
}

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

type countingIterator struct {
	calls int
}

func (it *countingIterator) Next(ctx context.Context) (report.Row, error) {
	_ = ctx
	it.calls++
	return nil, io.EOF
}

func (it *countingIterator) Close() error { return nil }

func TestSource_UsesStableOrderingDefault(t *testing.T) {
	streamer := &captureStreamer{}
	source := NewSource(streamer, Config{PrimaryKey: "id"})

	_, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{Dataset: "contracts"},
		Columns: []report.Column{{Name: "id"}},
		Actor:   report.Actor{ID: "actor-1", Scope: report.Scope{TenantID: "tenant-1"}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(streamer.spec.Query.Sort) != 1 || streamer.spec.Query.Sort[0].Field != "id" {
		t.Fatalf("expected default sort by primary key")
	}
	if streamer.spec.Scope.TenantID != "tenant-1" {
		t.Fatalf("expected scope injection")
	}
}

func TestSource_PreservesSortsFromQuery(t *testing.T) {
	streamer := &captureStreamer{}
	source := NewSource(streamer, Config{PrimaryKey: "id"})

	query := Query{Sort: []Sort{{Field: "created_at", Desc: true}}}
	_, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{
			Dataset: "contracts",
			Query:   query,
		},
		Columns: []report.Column{{Name: "id"}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(streamer.spec.Query.Sort) != 1 || streamer.spec.Query.Sort[0].Field != "created_at" {
		t.Fatalf("expected sort to be preserved")
	}
}

func TestSource_DerivesFiltersFromRequest(t *testing.T) {
	streamer := &captureStreamer{}
	source := NewSource(streamer, Config{})

	_, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{
			Dataset: "contracts",
			Contracts: rights.ContractFilter{
				Licensee: "streamco",
				Media:    rights.MediaSVOD,
			},
		},
		Columns: []report.Column{{Name: "id"}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(streamer.spec.Query.Filters) != 2 {
		t.Fatalf("expected 2 derived filters, got %+v", streamer.spec.Query.Filters)
	}
	got := map[string]Filter{}
	for _, filter := range streamer.spec.Query.Filters {
		got[filter.Field] = filter
	}
	if filter := got["licensee"]; filter.Op != "ilike" || filter.Value != "streamco" {
		t.Fatalf("unexpected licensee filter: %+v", filter)
	}
	if filter := got["media"]; filter.Op != "eq" || filter.Value != string(rights.MediaSVOD) {
		t.Fatalf("unexpected media filter: %+v", filter)
	}
}

func TestSource_DoesNotPrefetchRows(t *testing.T) {
	iter := &countingIterator{}
	streamer := &captureStreamer{iter: iter}
	source := NewSource(streamer, Config{})

	_, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{Dataset: "contracts"},
		Columns: []report.Column{{Name: "id"}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if iter.calls != 0 {
		t.Fatalf("expected no Next calls during Open")
	}
}

type guardStub struct {
	order *[]string
}

func (g guardStub) AuthorizeReport(ctx context.Context, actor report.Actor, req report.ReportRequest, def report.ResolvedDefinition) error {
	_ = ctx
	_ = actor
	_ = req
	_ = def
	*g.order = append(*g.order, "guard")
	return nil
}

func (g guardStub) AuthorizeDownload(ctx context.Context, actor report.Actor, reportID string) error {
	_ = ctx
	_ = actor
	_ = reportID
	return nil
}

type orderStreamer struct {
	order *[]string
	iter  report.RowIterator
}

func (s orderStreamer) Stream(ctx context.Context, spec Spec) (report.RowIterator, error) {
	_ = ctx
	_ = spec
	*s.order = append(*s.order, "stream")
	return s.iter, nil
}

func TestRunner_GuardBeforeCrudStream(t *testing.T) {
	order := []string{}
	iter := &sliceIterator{rows: []report.Row{{"1"}}}
	streamer := orderStreamer{order: &order, iter: iter}

	runner := report.NewRunner()
	runner.Guard = guardStub{order: &order}
	if err := runner.Datasets.Register(report.ReportDefinition{
		Name:         "contracts",
		RowSourceKey: "crud",
		Schema: report.Schema{Columns: []report.Column{
			{Name: "id"},
		}},
	}); err != nil {
		t.Fatalf("register dataset: %v", err)
	}
	if err := runner.RowSources.Register("crud", func(req report.ReportRequest, def report.ResolvedDefinition) (report.RowSource, error) {
		_ = req
		_ = def
		return NewSource(streamer, Config{}), nil
	}); err != nil {
		t.Fatalf("register source: %v", err)
	}

	buf := &bytes.Buffer{}
	_, err := runner.Run(context.Background(), report.ReportRequest{
		Dataset: "contracts",
		Format:  report.FormatCSV,
		Output:  buf,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 2 || order[0] != "guard" || order[1] != "stream" {
		t.Fatalf("expected guard before stream, got %v", order)
	}
}
