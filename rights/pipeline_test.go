package rights

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubParser struct {
	text string
	err  error
}

func (p stubParser) Parse(ctx context.Context, filename string, content []byte) (Document, error) {
	_ = ctx
	if p.err != nil {
		return Document{}, p.err
	}
	return Document{Filename: filename, SourceType: "txt", Text: p.text}, nil
}

type stubExtractor struct {
	extraction Extraction
	err        error
	calls      int
}

func (e *stubExtractor) Extract(ctx context.Context, doc Document) (Extraction, error) {
	_ = ctx
	_ = doc
	e.calls++
	if e.err != nil {
		return Extraction{}, e.err
	}
	return e.extraction, nil
}

func testExtraction(t *testing.T) Extraction {
	return Extraction{
		Title:    "Alpha License Agreement",
		Licensor: "Studio",
		Licensee: "StreamCo",
		Grants: []RightsGrant{{
			Work:        "Alpha",
			Licensee:    "StreamCo",
			Media:       "svod",
			Territories: []string{"us"},
			Window:      Window{Start: day(t, "2024-01-01"), End: day(t, "2025-01-01")},
			Exclusive:   true,
		}},
	}
}

func testPipeline(t *testing.T, extractor Extractor) (*Pipeline, *MemoryContractStore, *MemoryIngestTracker) {
	store := NewMemoryContractStore()
	tracker := NewMemoryIngestTracker()
	p := &Pipeline{
		Parser:    stubParser{text: "CONTRACT TEXT"},
		Extractor: extractor,
		Store:     store,
		Tracker:   tracker,
		Now:       func() time.Time { return day(t, "2024-06-01") },
	}
	return p, store, tracker
}

func TestPipelineRun(t *testing.T) {
	extractor := &stubExtractor{extraction: testExtraction(t)}
	p, store, tracker := testPipeline(t, extractor)

	result, err := p.Run(context.Background(), Actor{ID: "u1"}, IngestRequest{
		Filename: "alpha.pdf",
		Content:  []byte("%PDF-"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ContractID == "" {
		t.Fatal("missing contract ID")
	}
	if len(result.Contract.Grants) != 1 {
		t.Fatalf("grants = %d", len(result.Contract.Grants))
	}
	if result.Contract.Grants[0].ContractID != result.ContractID {
		t.Error("grant not linked to contract")
	}

	record, err := tracker.Status(context.Background(), result.IngestID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.State != StateCompleted {
		t.Errorf("state = %s, want completed", record.State)
	}
	if record.Counts.Grants != 1 {
		t.Errorf("grant count = %d", record.Counts.Grants)
	}
	if record.ContractID != result.ContractID {
		t.Errorf("tracker contract ID = %q", record.ContractID)
	}

	stored, err := store.Contract(context.Background(), result.ContractID)
	if err != nil {
		t.Fatalf("stored contract: %v", err)
	}
	if stored.Title != "Alpha License Agreement" {
		t.Errorf("title = %q", stored.Title)
	}
}

func TestPipelineRunConflictDetection(t *testing.T) {
	extractor := &stubExtractor{extraction: testExtraction(t)}
	p, store, _ := testPipeline(t, extractor)

	ctx := context.Background()
	actor := Actor{ID: "u1"}
	if _, err := p.Run(ctx, actor, IngestRequest{Filename: "a.pdf", Content: []byte("x")}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := p.Run(ctx, actor, IngestRequest{Filename: "b.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(result.Conflicts) == 0 {
		t.Fatal("duplicate exclusive grants should produce a conflict")
	}

	conflicts, err := store.Conflicts(ctx, ConflictFilter{})
	if err != nil {
		t.Fatalf("Conflicts: %v", err)
	}
	if len(conflicts) != len(result.Conflicts) {
		t.Errorf("stored %d conflicts, result had %d", len(conflicts), len(result.Conflicts))
	}
}

func TestPipelineRunExtractionFailure(t *testing.T) {
	extractor := &stubExtractor{err: NewError(KindExtraction, "model returned garbage", nil)}
	p, _, tracker := testPipeline(t, extractor)

	_, err := p.Run(context.Background(), Actor{ID: "u1"}, IngestRequest{
		Filename: "bad.pdf",
		Content:  []byte("x"),
	})
	if KindFromError(err) != KindExtraction {
		t.Fatalf("expected extraction kind, got %v", err)
	}

	records, _ := tracker.List(context.Background(), IngestFilter{State: StateFailed})
	if len(records) != 1 {
		t.Fatalf("expected a failed record, got %d", len(records))
	}
	if !strings.Contains(records[0].Error, "garbage") {
		t.Errorf("record error = %q", records[0].Error)
	}
}

func TestPipelineRunEmptyDocument(t *testing.T) {
	p, _, _ := testPipeline(t, &stubExtractor{})
	p.Parser = stubParser{text: ""}

	_, err := p.Run(context.Background(), Actor{}, IngestRequest{Filename: "empty.pdf", Content: []byte("x")})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation kind for empty text, got %v", err)
	}
}

func TestPipelineRunSizeGuard(t *testing.T) {
	p, _, _ := testPipeline(t, &stubExtractor{extraction: testExtraction(t)})
	p.MaxDocumentBytes = 4

	_, err := p.Run(context.Background(), Actor{}, IngestRequest{Filename: "big.pdf", Content: []byte("too large")})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestPipelineRunIdempotency(t *testing.T) {
	extractor := &stubExtractor{extraction: testExtraction(t)}
	p, _, _ := testPipeline(t, extractor)

	ctx := context.Background()
	actor := Actor{ID: "u1"}
	req := IngestRequest{Filename: "a.pdf", Content: []byte("x"), IdempotencyKey: "key-1"}

	first, err := p.Run(ctx, actor, req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.IngestID != "key-1" {
		t.Errorf("ingest ID = %q, want the idempotency key", first.IngestID)
	}

	second, err := p.Run(ctx, actor, req)
	if err != nil {
		t.Fatalf("replay of a completed ingest should reuse the record: %v", err)
	}
	if second.IngestID != first.IngestID {
		t.Errorf("replay ingest ID = %q, want %q", second.IngestID, first.IngestID)
	}
	if second.ContractID != first.ContractID {
		t.Errorf("replay contract ID = %q, want %q", second.ContractID, first.ContractID)
	}
	if second.Contract.ID != first.ContractID {
		t.Errorf("replay should return the stored contract, got %+v", second.Contract)
	}
	if extractor.calls != 1 {
		t.Errorf("extractor ran %d times, want 1", extractor.calls)
	}
}

type denyGuard struct{}

func (denyGuard) AuthorizeIngest(ctx context.Context, actor Actor, filename string) error {
	return errors.New("nope")
}
func (denyGuard) AuthorizeRead(ctx context.Context, actor Actor, contractID string) error {
	return errors.New("nope")
}

func TestPipelineRunGuard(t *testing.T) {
	p, _, _ := testPipeline(t, &stubExtractor{extraction: testExtraction(t)})
	p.Guard = denyGuard{}

	_, err := p.Run(context.Background(), Actor{}, IngestRequest{Filename: "a.pdf", Content: []byte("x")})
	if KindFromError(err) != KindAuthz {
		t.Fatalf("expected authz kind, got %v", err)
	}
}
