package storebun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-rights/report"
)

func TestReportTracker_StartStatusList(t *testing.T) {
	ctx := context.Background()
	tracker := NewReportTracker(newTestDB(t))

	recordID, err := tracker.Start(ctx, report.ReportRecord{
		Dataset: "grants",
		Format:  report.FormatCSV,
		RequestedBy: report.Actor{
			ID:    "user-1",
			Roles: []string{"admin"},
			Scope: report.Scope{TenantID: "t1", WorkspaceID: "w1"},
		},
		Scope: report.Scope{TenantID: "t1", WorkspaceID: "w1"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if recordID == "" {
		t.Fatalf("expected record id")
	}

	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Dataset != "grants" {
		t.Fatalf("expected dataset, got %q", got.Dataset)
	}
	if got.State != report.StateQueued {
		t.Fatalf("expected queued, got %s", got.State)
	}
	if got.RequestedBy.ID != "user-1" || len(got.RequestedBy.Roles) != 1 {
		t.Fatalf("expected actor round-trip, got %+v", got.RequestedBy)
	}

	list, err := tracker.List(ctx, report.ProgressFilter{Dataset: "grants"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
}

func TestReportTracker_StateTransitions(t *testing.T) {
	ctx := context.Background()
	tracker := NewReportTracker(newTestDB(t))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.Now = func() time.Time { return now }

	recordID, err := tracker.Start(ctx, report.ReportRecord{
		ID:      "rpt-1",
		Dataset: "conflicts",
		Format:  report.FormatJSON,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := tracker.SetState(ctx, recordID, report.StateRunning, nil); err != nil {
		t.Fatalf("set running: %v", err)
	}
	if err := tracker.Advance(ctx, recordID, report.ProgressDelta{Rows: 3, Bytes: 50}, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := tracker.Complete(ctx, recordID, map[string]any{"rows": int64(5), "bytes": int64(120)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != report.StateCompleted {
		t.Fatalf("expected completed, got %s", got.State)
	}
	if got.Counts.Processed != 5 {
		t.Fatalf("expected meta rows to win, got %d", got.Counts.Processed)
	}
	if got.BytesWritten != 120 {
		t.Fatalf("expected meta bytes to win, got %d", got.BytesWritten)
	}
	if !got.StartedAt.Equal(now) || !got.CompletedAt.Equal(now) {
		t.Fatalf("expected timestamps set, got %+v", got)
	}
}

func TestReportTracker_FailNotFound(t *testing.T) {
	ctx := context.Background()
	tracker := NewReportTracker(newTestDB(t))

	recordID, err := tracker.Start(ctx, report.ReportRecord{ID: "rpt-1", Dataset: "grants", Format: report.FormatCSV})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Fail(ctx, recordID, errors.New("render blew up"), nil); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != report.StateFailed {
		t.Fatalf("expected failed, got %s", got.State)
	}

	if err := tracker.Fail(ctx, "missing", errors.New("x"), nil); report.KindFromError(err) != report.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := tracker.Status(ctx, "missing"); report.KindFromError(err) != report.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReportTracker_ArtifactUpdateDelete(t *testing.T) {
	ctx := context.Background()
	tracker := NewReportTracker(newTestDB(t))
	expires := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	recordID, err := tracker.Start(ctx, report.ReportRecord{ID: "rpt-1", Dataset: "grants", Format: report.FormatCSV})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := tracker.SetArtifact(ctx, recordID, report.ArtifactRef{
		Key: "reports/rpt-1.csv",
		Meta: report.ArtifactMeta{
			Filename:    "grants.csv",
			ContentType: "text/csv",
			ExpiresAt:   expires,
		},
	}); err != nil {
		t.Fatalf("set artifact: %v", err)
	}

	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Artifact.Key != "reports/rpt-1.csv" {
		t.Fatalf("expected artifact key, got %q", got.Artifact.Key)
	}
	if got.Artifact.Meta.Filename != "grants.csv" {
		t.Fatalf("expected artifact meta, got %+v", got.Artifact.Meta)
	}
	if !got.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expires_at from artifact, got %v", got.ExpiresAt)
	}

	got.State = report.StateDeleted
	if err := tracker.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if updated.State != report.StateDeleted {
		t.Fatalf("expected deleted state, got %s", updated.State)
	}

	if err := tracker.Delete(ctx, recordID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tracker.Status(ctx, recordID); report.KindFromError(err) != report.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestReportTracker_ListFilters(t *testing.T) {
	ctx := context.Background()
	tracker := NewReportTracker(newTestDB(t))
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := []report.ReportRecord{
		{ID: "rpt-1", Dataset: "grants", Format: report.FormatCSV, State: report.StateCompleted, CreatedAt: base},
		{ID: "rpt-2", Dataset: "conflicts", Format: report.FormatCSV, State: report.StateFailed, CreatedAt: base.Add(time.Hour)},
		{ID: "rpt-3", Dataset: "grants", Format: report.FormatPDF, State: report.StateCompleted, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, record := range seed {
		if _, err := tracker.Start(ctx, record); err != nil {
			t.Fatalf("start %s: %v", record.ID, err)
		}
	}

	all, err := tracker.List(ctx, report.ProgressFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "rpt-3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	grants, err := tracker.List(ctx, report.ProgressFilter{Dataset: "grants", State: report.StateCompleted})
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 records, got %d", len(grants))
	}

	window, err := tracker.List(ctx, report.ProgressFilter{Since: base.Add(time.Hour), Until: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window) != 1 || window[0].ID != "rpt-2" {
		t.Fatalf("expected rpt-2, got %+v", window)
	}
}
