// Package reportcrud adapts datagrid-style streamers to report row sources.
package reportcrud

import (
	"context"
	"fmt"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// Filter describes a simple query filter.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Sort describes a sort directive.
type Sort struct {
	Field string
	Desc  bool
}

// Query captures datagrid query inputs.
type Query struct {
	Filters []Filter
	Search  string
	Sort    []Sort
	Cursor  string
	Limit   int
	Offset  int
}

// Spec captures row source inputs for a crud adapter.
type Spec struct {
	Query   Query
	Columns []string
	Actor   report.Actor
	Scope   report.Scope
}

// Streamer executes a query and returns a row iterator.
type Streamer interface {
	Stream(ctx context.Context, spec Spec) (report.RowIterator, error)
}

// Config configures default ordering.
type Config struct {
	PrimaryKey string
}

// Source adapts a datagrid streamer to a RowSource.
type Source struct {
	Streamer Streamer
	Config   Config
}

// NewSource creates a crud row source.
func NewSource(streamer Streamer, cfg Config) *Source {
	return &Source{Streamer: streamer, Config: cfg}
}

// Open builds a spec and delegates to the configured streamer.
func (s *Source) Open(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
	if s == nil || s.Streamer == nil {
		return nil, report.NewError(report.KindValidation, "crud streamer is required", nil)
	}

	query, err := decodeQuery(spec.Request.Query)
	if err != nil {
		return nil, err
	}
	if len(query.Filters) == 0 && query.Search == "" {
		query.Filters = filtersFromRequest(spec.Request)
	}

	columns := make([]string, 0, len(spec.Columns))
	for _, col := range spec.Columns {
		columns = append(columns, col.Name)
	}

	if len(query.Sort) == 0 {
		primaryKey := s.Config.PrimaryKey
		if primaryKey == "" {
			primaryKey = "id"
		}
		query.Sort = []Sort{{Field: primaryKey}}
	}

	return s.Streamer.Stream(ctx, Spec{
		Query:   query,
		Columns: columns,
		Actor:   spec.Actor,
		Scope:   spec.Actor.Scope,
	})
}

func decodeQuery(raw any) (Query, error) {
	if raw == nil {
		return Query{}, nil
	}
	switch value := raw.(type) {
	case Query:
		return value, nil
	case *Query:
		if value == nil {
			return Query{}, nil
		}
		return *value, nil
	default:
		return Query{}, report.NewError(report.KindValidation, fmt.Sprintf("unsupported query type %T", raw), nil)
	}
}

func filtersFromRequest(req report.ReportRequest) []Filter {
	filters := make([]Filter, 0, 4)
	filters = appendContractFilters(filters, req.Contracts)
	if req.Conflicts.Work != "" {
		filters = append(filters, Filter{Field: "work", Op: "eq", Value: req.Conflicts.Work})
	}
	if req.Conflicts.Kind != "" {
		filters = append(filters, Filter{Field: "kind", Op: "eq", Value: string(req.Conflicts.Kind)})
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func appendContractFilters(filters []Filter, filter rights.ContractFilter) []Filter {
	if filter.Licensee != "" {
		filters = append(filters, Filter{Field: "licensee", Op: "ilike", Value: filter.Licensee})
	}
	if filter.Work != "" {
		filters = append(filters, Filter{Field: "work", Op: "eq", Value: filter.Work})
	}
	if filter.Media != "" {
		filters = append(filters, Filter{Field: "media", Op: "eq", Value: string(filter.Media)})
	}
	if !filter.Since.IsZero() {
		filters = append(filters, Filter{Field: "created_at", Op: "gte", Value: filter.Since})
	}
	return filters
}
