package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-rights/rights"
)

func seedStore(t *testing.T) *rights.MemoryContractStore {
	t.Helper()
	store := rights.NewMemoryContractStore()
	start, _ := time.Parse("2006-01-02", "2024-01-01")
	end, _ := time.Parse("2006-01-02", "2025-01-01")

	contract := rights.Contract{
		ID:        "c1",
		Title:     "Alpha License Agreement",
		Licensor:  "Studio",
		Licensee:  "StreamCo",
		Filename:  "alpha.pdf",
		CreatedAt: start,
		Grants: []rights.RightsGrant{
			{
				ID: "c1/g1", ContractID: "c1", Work: "Alpha", Licensee: "StreamCo",
				Media: rights.MediaSVOD, Territories: []string{"us"},
				Window: rights.Window{Start: start, End: end}, Exclusive: true,
				FeeCents: 250000, Currency: "USD",
			},
			{
				ID: "c1/g2", ContractID: "c1", Work: "Alpha", Licensee: "AdTV",
				Media: rights.MediaAVOD, Territories: []string{rights.TerritoryWorldwide},
				Window: rights.Window{Start: start},
			},
		},
	}
	if err := store.SaveContract(context.Background(), contract); err != nil {
		t.Fatalf("seed: %v", err)
	}
	conflicts := rights.DetectConflicts(contract.Grants, start)
	if err := store.ReplaceConflicts(context.Background(), conflicts); err != nil {
		t.Fatalf("seed conflicts: %v", err)
	}
	return store
}

func testRunner(t *testing.T, store rights.ContractStore) *Runner {
	t.Helper()
	runner := NewRunner()
	runner.Tracker = NewMemoryTracker()
	if err := RegisterRightsDatasets(runner, store); err != nil {
		t.Fatalf("RegisterRightsDatasets: %v", err)
	}
	return runner
}

func TestRunnerGrantsCSV(t *testing.T) {
	runner := testRunner(t, seedStore(t))

	var buf bytes.Buffer
	result, err := runner.Run(context.Background(), ReportRequest{
		Dataset:  DatasetGrants,
		Format:   FormatCSV,
		Delivery: DeliverySync,
		Output:   &buf,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 2 {
		t.Errorf("rows = %d, want 2", result.Rows)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Grant ID,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "StreamCo") {
		t.Errorf("missing grant data:\n%s", out)
	}
	if !strings.Contains(out, "2500.00") {
		t.Errorf("fee should render as a decimal amount:\n%s", out)
	}

	record, err := runner.Tracker.Status(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.State != StateCompleted || record.Counts.Processed != 2 {
		t.Errorf("record = %+v", record)
	}
}

func TestRunnerConflictsJSON(t *testing.T) {
	runner := testRunner(t, seedStore(t))

	var buf bytes.Buffer
	result, err := runner.Run(context.Background(), ReportRequest{
		Dataset:  DatasetConflicts,
		Format:   FormatJSON,
		Delivery: DeliverySync,
		Output:   &buf,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows == 0 {
		t.Fatal("seeded catalog should have conflicts")
	}
	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.HasSuffix(out, "]") {
		t.Errorf("not a JSON array:\n%s", out)
	}
	if !strings.Contains(out, "exclusivity_overlap") {
		t.Errorf("missing conflict kind:\n%s", out)
	}
}

func TestRunnerStoriesNDJSON(t *testing.T) {
	runner := testRunner(t, seedStore(t))

	var buf bytes.Buffer
	result, err := runner.Run(context.Background(), ReportRequest{
		Dataset:  DatasetStories,
		Format:   FormatNDJSON,
		Delivery: DeliverySync,
		Output:   &buf,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if int64(len(lines)) != result.Rows {
		t.Errorf("ndjson lines = %d, rows = %d", len(lines), result.Rows)
	}
	if !strings.Contains(buf.String(), "As a rights manager") {
		t.Error("stories should carry the user-story frame")
	}
}

func TestRunnerMaxRowsPolicy(t *testing.T) {
	store := seedStore(t)
	runner := NewRunner()
	def := ReportDefinition{
		Name:         "grants_capped",
		RowSourceKey: "rights.grants.capped",
		Schema: Schema{Columns: []Column{
			{Name: "id"},
			{Name: "contract_id"},
			{Name: "work"},
			{Name: "licensee"},
			{Name: "media"},
			{Name: "territories", Type: "list"},
			{Name: "window_start", Type: "date"},
			{Name: "window_end", Type: "date"},
			{Name: "exclusive", Type: "bool"},
			{Name: "holdbacks", Type: "int"},
			{Name: "fee", Type: "money"},
			{Name: "currency"},
		}},
		Policy: ReportPolicy{MaxRows: 1},
	}
	if err := runner.Datasets.Register(def); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := runner.RowSources.Register("rights.grants.capped", func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
		return grantSource{store: store}, nil
	})
	if err != nil {
		t.Fatalf("register source: %v", err)
	}

	var buf bytes.Buffer
	_, err = runner.Run(context.Background(), ReportRequest{
		Dataset:  "grants_capped",
		Format:   FormatCSV,
		Delivery: DeliverySync,
		Output:   &buf,
	})
	if err == nil {
		t.Fatal("expected max-rows error")
	}
	if mapped := AsGoError(err); mapped.TextCode != "validation" {
		t.Fatalf("expected validation error, got %q", mapped.TextCode)
	}
}

func TestRunnerRedaction(t *testing.T) {
	store := seedStore(t)
	runner := NewRunner()
	def := ReportDefinition{
		Name:         "grants_redacted",
		RowSourceKey: "rights.grants.redacted",
		Schema: Schema{Columns: []Column{
			{Name: "work"},
			{Name: "licensee"},
		}},
		Policy: ReportPolicy{RedactColumns: []string{"licensee"}},
	}
	if err := runner.Datasets.Register(def); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := runner.RowSources.Register("rights.grants.redacted", func(req ReportRequest, def ResolvedDefinition) (RowSource, error) {
		return grantSource{store: store}, nil
	})
	if err != nil {
		t.Fatalf("register source: %v", err)
	}

	var buf bytes.Buffer
	if _, err := runner.Run(context.Background(), ReportRequest{
		Dataset:  "grants_redacted",
		Format:   FormatCSV,
		Delivery: DeliverySync,
		Output:   &buf,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(buf.String(), "StreamCo") {
		t.Errorf("licensee should be redacted:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "[redacted]") {
		t.Errorf("redaction marker missing:\n%s", buf.String())
	}
}

func TestRunnerXLSX(t *testing.T) {
	runner := testRunner(t, seedStore(t))

	var buf bytes.Buffer
	result, err := runner.Run(context.Background(), ReportRequest{
		Dataset:  DatasetGrants,
		Format:   FormatXLSX,
		Delivery: DeliverySync,
		Output:   &buf,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Bytes == 0 || buf.Len() == 0 {
		t.Fatal("empty workbook output")
	}
	// XLSX files are zip archives.
	if buf.Bytes()[0] != 'P' || buf.Bytes()[1] != 'K' {
		t.Errorf("output does not look like a workbook: % x", buf.Bytes()[:4])
	}
}
