package reportsql

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type captureExecutor struct {
	spec  QuerySpec
	calls int
	iter  report.RowIterator
}

func (e *captureExecutor) Query(ctx context.Context, spec QuerySpec) (report.RowIterator, error) {
	_ = ctx
	e.calls++
	e.spec = spec
	if e.iter != nil {
		return e.iter, nil
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

type grantParams struct {
	Licensee string
	TenantID string
}

func TestSource_BuildsAndInjectsScope(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{
		Name:  "grants",
		Query: "select * from contracts",
		Params: func(spec report.RowSourceSpec) (any, error) {
			return grantParams{Licensee: spec.Request.Contracts.Licensee}, nil
		},
		Validate: func(p any) error {
			if p == nil {
				return errors.New("params required")
			}
			return nil
		},
		ScopeInjector: func(scope report.Scope, p any) (any, error) {
			value := p.(grantParams)
			value.TenantID = scope.TenantID
			return value, nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	exec := &captureExecutor{}
	source := NewSource(reg, exec, "grants")

	_, err := source.Open(context.Background(), report.RowSourceSpec{
		Request: report.ReportRequest{Contracts: rights.ContractFilter{Licensee: "streamco"}},
		Actor:   report.Actor{ID: "actor-1", Scope: report.Scope{TenantID: "tenant-1"}},
		Columns: []report.Column{{Name: "id"}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected executor to be called")
	}
	got := exec.spec.Params.(grantParams)
	if got.TenantID != "tenant-1" {
		t.Fatalf("expected scope injection")
	}
	if got.Licensee != "streamco" {
		t.Fatalf("expected request filter in params, got %+v", got)
	}
}

func TestSource_InvalidParamsShortCircuits(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{
		Name:     "grants",
		Query:    "select * from contracts",
		Validate: func(any) error { return errors.New("invalid") },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	exec := &captureExecutor{}
	source := NewSource(reg, exec, "grants")

	_, err := source.Open(context.Background(), report.RowSourceSpec{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if exec.calls != 0 {
		t.Fatalf("expected executor not to be called")
	}
}

func TestSource_DoesNotPrefetchRows(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{
		Name:  "grants",
		Query: "select * from contracts",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	iter := &countingIterator{}
	exec := &captureExecutor{iter: iter}
	source := NewSource(reg, exec, "grants")

	_, err := source.Open(context.Background(), report.RowSourceSpec{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if iter.calls != 0 {
		t.Fatalf("expected no Next calls during Open")
	}
}

func TestBunExecutor_MapsColumnsByName(t *testing.T) {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "create table deals (id text, licensee text, fee integer)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "insert into deals values ('c-1', 'StreamCo', 250000), ('c-2', 'CinemaNet', 90000)"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	exec := NewBunExecutor(db)
	iter, err := exec.Query(ctx, QuerySpec{
		Query:  "select id, licensee, fee from deals where fee >= ? order by id",
		Params: []any{100000},
		Columns: []report.Column{
			{Name: "licensee"},
			{Name: "id"},
			{Name: "missing"},
		},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer iter.Close()

	row, err := iter.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(row) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(row))
	}
	if row[0] != "StreamCo" || row[1] != "c-1" {
		t.Fatalf("unexpected row order: %v", row)
	}
	if row[2] != nil {
		t.Fatalf("expected nil for unknown column, got %v", row[2])
	}

	if _, err := iter.Next(ctx); err != io.EOF {
		t.Fatalf("expected EOF after filtered rows, got %v", err)
	}
}
