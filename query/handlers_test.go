package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

type denyGuard struct {
	downloadCalls int
}

func (g *denyGuard) AuthorizeReport(ctx context.Context, actor report.Actor, req report.ReportRequest, def report.ResolvedDefinition) error {
	_ = ctx
	_ = actor
	_ = req
	_ = def
	return errors.New("deny")
}

func (g *denyGuard) AuthorizeDownload(ctx context.Context, actor report.Actor, reportID string) error {
	_ = ctx
	_ = actor
	_ = reportID
	g.downloadCalls++
	return errors.New("deny")
}

func TestReportStatusHandler_GuardBlocks(t *testing.T) {
	tracker := report.NewMemoryTracker()
	_, err := tracker.Start(context.Background(), report.ReportRecord{
		ID:      "rpt-1",
		Dataset: "grants",
		Format:  report.FormatCSV,
	})
	if err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	guard := &denyGuard{}
	service := report.NewService(report.ServiceConfig{
		Runner:  report.NewRunner(),
		Guard:   guard,
		Tracker: tracker,
	})

	handler := NewReportStatusHandler(service)
	_, err = handler.Query(context.Background(), ReportStatus{
		Actor:    report.Actor{ID: "actor-1"},
		ReportID: "rpt-1",
	})
	if err == nil {
		t.Fatalf("expected guard error")
	}
	if guard.downloadCalls == 0 {
		t.Fatalf("expected download guard to be called")
	}
}

func seedRightsService(t *testing.T) rights.Service {
	t.Helper()
	store := rights.NewMemoryContractStore()
	contract := rights.Contract{
		ID:       "c-1",
		Title:    "License for Falcon Run",
		Licensee: "StreamCo",
		Grants: []rights.RightsGrant{
			{
				ID:          "c-1-g1",
				ContractID:  "c-1",
				Work:        "Falcon Run",
				Licensee:    "StreamCo",
				Media:       rights.MediaSVOD,
				Territories: []string{"US"},
				Window: rights.Window{
					Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
				},
				Exclusive: true,
			},
		},
		CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.SaveContract(context.Background(), contract); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return rights.NewService(rights.ServiceConfig{
		Store:   store,
		Tracker: rights.NewMemoryIngestTracker(),
	})
}

func TestDashboardHandler(t *testing.T) {
	handler := NewDashboardHandler(seedRightsService(t))
	snap, err := handler.Query(context.Background(), Dashboard{Actor: rights.Actor{ID: "actor-1"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if snap.Contracts != 1 || snap.Grants != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestGrantListHandler_Filters(t *testing.T) {
	handler := NewGrantListHandler(seedRightsService(t))
	grants, err := handler.Query(context.Background(), GrantList{
		Actor:  rights.Actor{ID: "actor-1"},
		Filter: rights.ContractFilter{Work: "falcon run"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(grants) != 1 || grants[0].ID != "c-1-g1" {
		t.Fatalf("unexpected grants: %+v", grants)
	}

	none, err := handler.Query(context.Background(), GrantList{
		Actor:  rights.Actor{ID: "actor-1"},
		Filter: rights.ContractFilter{Work: "missing"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no grants, got %+v", none)
	}
}

func TestStoryListHandler(t *testing.T) {
	handler := NewStoryListHandler(seedRightsService(t))
	stories, err := handler.Query(context.Background(), StoryList{Actor: rights.Actor{ID: "actor-1"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(stories) == 0 {
		t.Fatalf("expected generated stories")
	}
}

func TestHandlersRequireService(t *testing.T) {
	if _, err := (&DashboardHandler{}).Query(context.Background(), Dashboard{Actor: rights.Actor{ID: "a"}}); err == nil {
		t.Fatalf("expected service required error")
	}
	if _, err := (&ReportStatusHandler{}).Query(context.Background(), ReportStatus{Actor: report.Actor{ID: "a"}, ReportID: "rpt-1"}); err == nil {
		t.Fatalf("expected service required error")
	}
}
