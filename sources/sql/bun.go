package reportsql

import (
	"context"
	"io"
	"strings"

	"github.com/goliatone/go-rights/report"
	"github.com/uptrace/bun"
)

// BunExecutor runs named queries against a bun database handle.
type BunExecutor struct {
	DB *bun.DB
}

// NewBunExecutor creates an Executor backed by bun.
func NewBunExecutor(db *bun.DB) *BunExecutor {
	return &BunExecutor{DB: db}
}

// Query executes the named query and adapts the result set to a row iterator.
// Params of type []any bind as positional query arguments.
func (e *BunExecutor) Query(ctx context.Context, spec QuerySpec) (report.RowIterator, error) {
	if e == nil || e.DB == nil {
		return nil, report.NewError(report.KindValidation, "bun executor requires a database", nil)
	}
	if spec.Query == "" {
		return nil, report.NewError(report.KindValidation, "query string is required", nil)
	}

	var args []any
	switch value := spec.Params.(type) {
	case nil:
	case []any:
		args = value
	default:
		args = []any{value}
	}

	rows, err := e.DB.QueryContext(ctx, spec.Query, args...)
	if err != nil {
		return nil, report.NewError(report.KindInternal, "query execution failed", err)
	}
	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, report.NewError(report.KindInternal, "query columns unavailable", err)
	}

	// Map requested report columns onto result columns by name.
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[strings.ToLower(name)] = i
	}
	positions := make([]int, len(spec.Columns))
	for i, col := range spec.Columns {
		pos, ok := index[strings.ToLower(col.Name)]
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}
	if len(spec.Columns) == 0 {
		positions = make([]int, len(names))
		for i := range names {
			positions[i] = i
		}
	}

	return &bunIterator{rows: rows, width: len(names), positions: positions}, nil
}

type bunIterator struct {
	rows      sqlRows
	width     int
	positions []int
}

type sqlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func (it *bunIterator) Next(ctx context.Context) (report.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, report.NewError(report.KindInternal, "row scan failed", err)
		}
		return nil, io.EOF
	}

	raw := make([]any, it.width)
	dest := make([]any, it.width)
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := it.rows.Scan(dest...); err != nil {
		return nil, report.NewError(report.KindInternal, "row scan failed", err)
	}

	row := make(report.Row, len(it.positions))
	for i, pos := range it.positions {
		if pos < 0 || pos >= len(raw) {
			continue
		}
		value := raw[pos]
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		row[i] = value
	}
	return row, nil
}

func (it *bunIterator) Close() error { return it.rows.Close() }
