package storefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

type captureSigner struct {
	input SignedURLInput
}

func (s *captureSigner) SignURL(input SignedURLInput) (string, error) {
	s.input = input
	return fmt.Sprintf("%s/%s?expires=%d", input.BaseURL, input.Key, input.ExpiresAt.Unix()), nil
}

func TestStorePutOpenDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	ref, err := store.Put(context.Background(), "reports/rpt-1.csv", bytes.NewBufferString("hello"), report.ArtifactMeta{
		ContentType: "text/csv",
		Filename:    "grants_20240601.csv",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Meta.Size != 5 {
		t.Fatalf("expected size 5, got %d", ref.Meta.Size)
	}
	if ref.Meta.CreatedAt.IsZero() {
		t.Fatal("expected created_at set")
	}

	reader, meta, err := store.Open(context.Background(), "reports/rpt-1.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected payload, got %q", string(data))
	}
	if meta.Filename != "grants_20240601.csv" {
		t.Fatalf("expected filename, got %q", meta.Filename)
	}

	if err := store.Delete(context.Background(), "reports/rpt-1.csv"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "reports/rpt-1.csv"); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestStoreKeyEscapesRoot(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Put(context.Background(), "../outside.csv", bytes.NewBufferString("x"), report.ArtifactMeta{})
	if err != nil {
		return
	}
	// Cleaned keys must stay under root even with dot segments.
	if _, _, err := store.Open(context.Background(), "../outside.csv"); err != nil {
		t.Fatalf("cleaned key should round-trip: %v", err)
	}
}

func TestStoreSignedURLNotConfigured(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.SignedURL(context.Background(), "reports/rpt-1.csv", time.Minute)
	if rights.KindFromError(err) != rights.KindNotImpl {
		t.Fatalf("expected not implemented error, got %v", err)
	}
}

func TestStoreSignedURL(t *testing.T) {
	store := NewStore(t.TempDir())
	store.BaseURL = "https://example.test/reports"
	signer := &captureSigner{}
	store.Signer = signer
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	url, err := store.SignedURL(context.Background(), "reports/rpt-1.csv", 5*time.Minute)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	expected := "https://example.test/reports/reports/rpt-1.csv?expires=1704110700"
	if url != expected {
		t.Fatalf("unexpected url: %q", url)
	}
	if signer.input.Key != "reports/rpt-1.csv" {
		t.Fatalf("unexpected signer key: %q", signer.input.Key)
	}
}

func TestStoreSweepExpired(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	put := func(key string, expires time.Time) {
		t.Helper()
		_, err := store.Put(context.Background(), key, bytes.NewBufferString("data"), report.ArtifactMeta{
			ExpiresAt: expires,
		})
		if err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	put("reports/expired.csv", now.Add(-time.Hour))
	put("reports/live.csv", now.Add(time.Hour))
	put("reports/forever.csv", time.Time{})

	removed, err := store.SweepExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(removed) != 1 || removed[0] != "reports/expired.csv" {
		t.Fatalf("removed = %v", removed)
	}
	if _, _, err := store.Open(context.Background(), "reports/live.csv"); err != nil {
		t.Fatalf("live artifact should survive: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "reports/expired.csv"); err == nil {
		t.Fatal("expired artifact should be removed")
	}
}
