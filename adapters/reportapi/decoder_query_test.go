package reportapi

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/goliatone/go-rights/report"
	reportcrud "github.com/goliatone/go-rights/sources/crud"
)

type stubQueryRequest struct {
	parsed *url.URL
}

func (s stubQueryRequest) Context() context.Context { return context.Background() }
func (s stubQueryRequest) Method() string           { return "GET" }
func (s stubQueryRequest) Path() string             { return "/admin/reports" }
func (s stubQueryRequest) URL() *url.URL            { return s.parsed }
func (s stubQueryRequest) Header(string) string     { return "" }
func (s stubQueryRequest) Query(name string) string {
	if s.parsed == nil {
		return ""
	}
	return s.parsed.Query().Get(name)
}
func (s stubQueryRequest) Body() io.ReadCloser { return nil }

func TestQueryRequestDecoder_Mapping(t *testing.T) {
	raw := "/admin/reports?dataset=grants&format=xls&delivery=sync&columns=id,work&search=falcon&order=-work&status__eq=active&limit=25&offset=50"
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	decoder := QueryRequestDecoder{}
	req, err := decoder.Decode(stubQueryRequest{parsed: parsed})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Dataset != "grants" {
		t.Fatalf("expected dataset grants, got %q", req.Dataset)
	}
	if req.Format != report.FormatXLSX {
		t.Fatalf("expected xlsx, got %q", req.Format)
	}
	if req.Delivery != report.DeliverySync {
		t.Fatalf("expected sync delivery, got %q", req.Delivery)
	}
	if len(req.Columns) != 2 || req.Columns[0] != "id" || req.Columns[1] != "work" {
		t.Fatalf("expected columns, got %v", req.Columns)
	}
	query, ok := req.Query.(*reportcrud.Query)
	if !ok || query == nil {
		t.Fatalf("expected crud query, got %T", req.Query)
	}
	if query.Search != "falcon" {
		t.Fatalf("expected search falcon, got %q", query.Search)
	}
	if query.Limit != 25 || query.Offset != 50 {
		t.Fatalf("expected limit/offset, got %d/%d", query.Limit, query.Offset)
	}
	if len(query.Sort) != 1 || query.Sort[0].Field != "work" || !query.Sort[0].Desc {
		t.Fatalf("expected sort by work desc, got %+v", query.Sort)
	}
	if len(query.Filters) != 1 || query.Filters[0].Field != "status" || query.Filters[0].Op != "eq" || query.Filters[0].Value != "active" {
		t.Fatalf("expected status filter, got %+v", query.Filters)
	}
}

func TestQueryRequestDecoder_DefaultFormat(t *testing.T) {
	raw := "/admin/reports?dataset=grants"
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	decoder := QueryRequestDecoder{}
	req, err := decoder.Decode(stubQueryRequest{parsed: parsed})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Format != report.FormatCSV {
		t.Fatalf("expected csv default, got %q", req.Format)
	}
}

func TestQueryRequestDecoder_RightsFilters(t *testing.T) {
	raw := "/admin/reports?dataset=contracts&licensee=streamco&media=svod&since=2025-01-01T00:00:00Z&kind=overlap&severity=warning"
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	decoder := QueryRequestDecoder{}
	req, err := decoder.Decode(stubQueryRequest{parsed: parsed})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Contracts.Licensee != "streamco" {
		t.Fatalf("expected licensee streamco, got %q", req.Contracts.Licensee)
	}
	if string(req.Contracts.Media) != "svod" {
		t.Fatalf("expected svod media, got %q", req.Contracts.Media)
	}
	if req.Contracts.Since.IsZero() {
		t.Fatalf("expected since timestamp")
	}
	if string(req.Conflicts.Kind) != "overlap" || string(req.Conflicts.Severity) != "warning" {
		t.Fatalf("unexpected conflict filter: %+v", req.Conflicts)
	}
	if req.Query != nil {
		t.Fatalf("expected reserved keys stripped, got %v", req.Query)
	}
}

func TestQueryRequestDecoder_ResolvesResource(t *testing.T) {
	registry := report.NewDatasetRegistry()
	if err := registry.Register(report.ReportDefinition{
		Name:         "grants",
		Resource:     "rights_grants",
		RowSourceKey: "grants",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	raw := "/admin/reports?resource=rights_grants"
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	decoder := QueryRequestDecoder{Resolver: NewDatasetResolver(registry)}
	req, err := decoder.Decode(stubQueryRequest{parsed: parsed})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Dataset != "grants" {
		t.Fatalf("expected dataset grants, got %q", req.Dataset)
	}
}
