package report

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-rights/rights"
)

// Dataset names registered by RegisterRightsDatasets.
const (
	DatasetContracts = "contracts"
	DatasetGrants    = "grants"
	DatasetConflicts = "conflicts"
	DatasetStories   = "stories"
)

// RegisterRightsDatasets wires the rights catalog into the runner as
// reportable datasets backed by the contract store.
func RegisterRightsDatasets(runner *Runner, store rights.ContractStore) error {
	if runner == nil || runner.Datasets == nil || runner.RowSources == nil {
		return NewError(KindInternal, "runner registries are not configured", nil)
	}
	if store == nil {
		return NewError(KindValidation, "contract store is required", nil)
	}

	defs := []ReportDefinition{
		{
			Name:            DatasetContracts,
			Resource:        "contracts",
			RowSourceKey:    "rights.contracts",
			DefaultFilename: "contracts_{{.Date}}",
			Schema: Schema{Columns: []Column{
				{Name: "id", Label: "Contract ID"},
				{Name: "title", Label: "Title"},
				{Name: "licensor", Label: "Licensor"},
				{Name: "licensee", Label: "Licensee"},
				{Name: "filename", Label: "Source File"},
				{Name: "signed_at", Label: "Signed", Type: "date"},
				{Name: "grants", Label: "Grants", Type: "int"},
				{Name: "created_at", Label: "Uploaded", Type: "datetime"},
			}},
		},
		{
			Name:            DatasetGrants,
			Resource:        "grants",
			RowSourceKey:    "rights.grants",
			DefaultFilename: "rights_grants_{{.Date}}",
			Schema: Schema{Columns: []Column{
				{Name: "id", Label: "Grant ID"},
				{Name: "contract_id", Label: "Contract"},
				{Name: "work", Label: "Work"},
				{Name: "licensee", Label: "Licensee"},
				{Name: "media", Label: "Media"},
				{Name: "territories", Label: "Territories", Type: "list"},
				{Name: "window_start", Label: "Start", Type: "date"},
				{Name: "window_end", Label: "End", Type: "date"},
				{Name: "exclusive", Label: "Exclusive", Type: "bool"},
				{Name: "holdbacks", Label: "Holdbacks", Type: "int"},
				{Name: "fee", Label: "Fee", Type: "money"},
				{Name: "currency", Label: "Currency"},
			}},
		},
		{
			Name:            DatasetConflicts,
			Resource:        "conflicts",
			RowSourceKey:    "rights.conflicts",
			DefaultFilename: "rights_conflicts_{{.Date}}",
			Schema: Schema{Columns: []Column{
				{Name: "id", Label: "Conflict ID"},
				{Name: "kind", Label: "Kind"},
				{Name: "severity", Label: "Severity"},
				{Name: "work", Label: "Work"},
				{Name: "media", Label: "Media"},
				{Name: "grant_id", Label: "Grant"},
				{Name: "other_id", Label: "Conflicting Grant"},
				{Name: "territories", Label: "Territories", Type: "list"},
				{Name: "window_start", Label: "From", Type: "date"},
				{Name: "window_end", Label: "To", Type: "date"},
				{Name: "detail", Label: "Detail"},
				{Name: "detected_at", Label: "Detected", Type: "datetime"},
			}},
		},
		{
			Name:            DatasetStories,
			Resource:        "stories",
			RowSourceKey:    "rights.stories",
			DefaultFilename: "user_stories_{{.Date}}",
			Schema: Schema{Columns: []Column{
				{Name: "id", Label: "Story ID"},
				{Name: "title", Label: "Title"},
				{Name: "body", Label: "Story"},
				{Name: "tags", Label: "Tags", Type: "list"},
				{Name: "source_id", Label: "Source"},
				{Name: "generated_at", Label: "Generated", Type: "datetime"},
			}},
		},
	}
	for _, def := range defs {
		if err := runner.Datasets.Register(def); err != nil {
			return err
		}
	}

	sources := map[string]RowSourceFactory{
		"rights.contracts": func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
			return contractSource{store: store}, nil
		},
		"rights.grants": func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
			return grantSource{store: store}, nil
		},
		"rights.conflicts": func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
			return conflictSource{store: store}, nil
		},
		"rights.stories": func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
			return storySource{store: store}, nil
		},
	}
	for key, factory := range sources {
		if err := runner.RowSources.Register(key, factory); err != nil {
			return err
		}
	}
	return nil
}

type contractSource struct {
	store rights.ContractStore
}

func (s contractSource) Open(ctx context.Context, spec RowSourceSpec) (RowIterator, error) {
	contracts, err := s.store.Contracts(ctx, spec.Request.Contracts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, projectRow(spec.Columns, map[string]any{
			"id":         c.ID,
			"title":      c.Title,
			"licensor":   c.Licensor,
			"licensee":   c.Licensee,
			"filename":   c.Filename,
			"signed_at":  nilIfZero(c.SignedAt),
			"grants":     len(c.Grants),
			"created_at": c.CreatedAt,
		}))
	}
	return &sliceIterator{rows: rows}, nil
}

type grantSource struct {
	store rights.ContractStore
}

func (s grantSource) Open(ctx context.Context, spec RowSourceSpec) (RowIterator, error) {
	grants, err := s.store.Grants(ctx, spec.Request.Contracts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, projectRow(spec.Columns, map[string]any{
			"id":           g.ID,
			"contract_id":  g.ContractID,
			"work":         g.Work,
			"licensee":     g.Licensee,
			"media":        string(g.Media),
			"territories":  g.Territories,
			"window_start": g.Window.Start,
			"window_end":   nilIfZero(g.Window.End),
			"exclusive":    g.Exclusive,
			"holdbacks":    len(g.Holdbacks),
			"fee":          g.FeeCents,
			"currency":     g.Currency,
		}))
	}
	return &sliceIterator{rows: rows}, nil
}

type conflictSource struct {
	store rights.ContractStore
}

func (s conflictSource) Open(ctx context.Context, spec RowSourceSpec) (RowIterator, error) {
	conflicts, err := s.store.Conflicts(ctx, spec.Request.Conflicts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, projectRow(spec.Columns, map[string]any{
			"id":           c.ID,
			"kind":         string(c.Kind),
			"severity":     string(c.Severity),
			"work":         c.Work,
			"media":        string(c.Media),
			"grant_id":     c.GrantID,
			"other_id":     c.OtherID,
			"territories":  c.Territories,
			"window_start": c.Window.Start,
			"window_end":   nilIfZero(c.Window.End),
			"detail":       c.Detail,
			"detected_at":  c.DetectedAt,
		}))
	}
	return &sliceIterator{rows: rows}, nil
}

type storySource struct {
	store rights.ContractStore
}

func (s storySource) Open(ctx context.Context, spec RowSourceSpec) (RowIterator, error) {
	contracts, err := s.store.Contracts(ctx, spec.Request.Contracts)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.store.Conflicts(ctx, spec.Request.Conflicts)
	if err != nil {
		return nil, err
	}
	stories := rights.GenerateStories(contracts, conflicts, time.Now())

	rows := make([]Row, 0, len(stories))
	for _, st := range stories {
		rows = append(rows, projectRow(spec.Columns, map[string]any{
			"id":           st.ID,
			"title":        st.Title,
			"body":         st.Body,
			"tags":         st.Tags,
			"source_id":    st.SourceID,
			"generated_at": st.GeneratedAt,
		}))
	}
	return &sliceIterator{rows: rows}, nil
}

func projectRow(columns []Column, values map[string]any) Row {
	row := make(Row, len(columns))
	for i, col := range columns {
		row[i] = values[col.Name]
	}
	return row
}

func nilIfZero(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

type sliceIterator struct {
	rows []Row
	pos  int
}

func (it *sliceIterator) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *sliceIterator) Close() error {
	return nil
}
