package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-rights/rights"
)

type stubCompleter struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	_ = ctx
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.response, s.err
}

const sampleResponse = `{
  "title": "Alpha License Agreement",
  "licensor": "Studio Pictures",
  "licensee": "StreamCo",
  "signed_at": "2024-01-15",
  "grants": [
    {
      "work": "Alpha",
      "licensee": "StreamCo",
      "media": "SVOD",
      "territories": ["US", "CA"],
      "start": "2024-02-01",
      "end": "2026-02-01",
      "exclusive": true,
      "fee": 2500.50,
      "currency": "usd",
      "holdbacks": [
        {"media": "avod", "territories": ["us"], "start": "2024-02-01", "end": "2025-02-01", "reason": "premium window"}
      ]
    },
    {
      "work": "Alpha",
      "licensee": "",
      "media": "avod",
      "territories": "worldwide",
      "start": "2026-03-01",
      "end": "",
      "exclusive": false,
      "fee": 0,
      "currency": ""
    }
  ]
}`

func TestExtract(t *testing.T) {
	client := &stubCompleter{response: sampleResponse}
	doc := rights.Document{Filename: "alpha.pdf", Text: "Full contract text."}

	extraction, err := Extractor{Client: client}.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extraction.Title != "Alpha License Agreement" || extraction.Licensee != "StreamCo" {
		t.Errorf("header = %+v", extraction)
	}
	if extraction.SignedAt.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("signed_at = %v", extraction.SignedAt)
	}
	if len(extraction.Grants) != 2 {
		t.Fatalf("grants = %d", len(extraction.Grants))
	}

	first := extraction.Grants[0]
	if first.Media != rights.MediaType("SVOD") {
		t.Errorf("media passed through raw, got %q", first.Media)
	}
	if !first.Exclusive || first.FeeCents != 250050 {
		t.Errorf("grant = %+v", first)
	}
	if len(first.Holdbacks) != 1 || first.Holdbacks[0].Reason != "premium window" {
		t.Errorf("holdbacks = %+v", first.Holdbacks)
	}

	second := extraction.Grants[1]
	if len(second.Territories) != 1 || second.Territories[0] != "worldwide" {
		t.Errorf("scalar territory should become a list: %v", second.Territories)
	}
	if !second.Window.End.IsZero() {
		t.Errorf("open-ended window, got end %v", second.Window.End)
	}

	if !strings.Contains(client.lastUser, "Full contract text.") {
		t.Error("prompt should include the document text")
	}
}

func TestExtractCodeFencedResponse(t *testing.T) {
	client := &stubCompleter{response: "Here you go:\n```json\n" + sampleResponse + "\n```\nLet me know!"}
	extraction, err := Extractor{Client: client}.Extract(context.Background(), rights.Document{Filename: "a.pdf", Text: "text"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(extraction.Grants) != 2 {
		t.Errorf("grants = %d", len(extraction.Grants))
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	client := &stubCompleter{response: "I could not find any rights in this document."}
	_, err := Extractor{Client: client}.Extract(context.Background(), rights.Document{Filename: "a.pdf", Text: "text"})
	if rights.KindFromError(err) != rights.KindExtraction {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractTruncatesLongDocuments(t *testing.T) {
	client := &stubCompleter{response: sampleResponse}
	doc := rights.Document{Filename: "a.pdf", Text: strings.Repeat("x", 100)}

	extraction, err := Extractor{Client: client, MaxPromptChars: 50}.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(extraction.Warnings) != 1 || !strings.Contains(extraction.Warnings[0], "truncated") {
		t.Errorf("warnings = %v", extraction.Warnings)
	}
	if strings.Contains(client.lastUser, strings.Repeat("x", 51)) {
		t.Error("prompt should be truncated")
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := Extractor{Client: &stubCompleter{}}.Extract(context.Background(), rights.Document{Filename: "a.pdf"})
	if rights.KindFromError(err) != rights.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoryRewriter(t *testing.T) {
	now := time.Now()
	stories := []rights.Story{
		{ID: "story:grant:g1", Body: "original one", GeneratedAt: now},
		{ID: "story:grant:g2", Body: "original two", GeneratedAt: now},
	}
	client := &stubCompleter{response: `[
		{"id": "story:grant:g1", "body": "polished one"},
		{"id": "story:grant:g2", "body": "polished two"}
	]`}

	out, err := StoryRewriter{Client: client}.Rewrite(context.Background(), stories)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out[0].Body != "polished one" || out[1].Body != "polished two" {
		t.Errorf("bodies = %q, %q", out[0].Body, out[1].Body)
	}
	if stories[0].Body != "original one" {
		t.Error("input stories should not be mutated")
	}
}

func TestStoryRewriterPartialResponse(t *testing.T) {
	stories := []rights.Story{
		{ID: "a", Body: "one"},
		{ID: "b", Body: "two"},
	}
	client := &stubCompleter{response: `[{"id": "b", "body": "rewritten"}]`}

	out, err := StoryRewriter{Client: client}.Rewrite(context.Background(), stories)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out[0].Body != "one" || out[1].Body != "rewritten" {
		t.Errorf("bodies = %q, %q", out[0].Body, out[1].Body)
	}
}
