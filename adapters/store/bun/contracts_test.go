package storebun

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-rights/rights"
)

func sampleContract(id, work, licensee string) rights.Contract {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return rights.Contract{
		ID:         id,
		Title:      "License for " + work,
		Licensor:   "Alpha Studios",
		Licensee:   licensee,
		Filename:   id + ".pdf",
		SourceType: "pdf",
		Grants: []rights.RightsGrant{
			{
				ID:          id + "-g1",
				ContractID:  id,
				Work:        work,
				Licensee:    licensee,
				Media:       rights.MediaSVOD,
				Territories: []string{"US", "CA"},
				Window: rights.Window{
					Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				},
				Exclusive: true,
				FeeCents:  250000,
				Currency:  "USD",
			},
		},
		UploadedBy: rights.Actor{ID: "user-1", Roles: []string{"admin"}},
		Scope:      rights.Scope{TenantID: "t1"},
		CreatedAt:  created,
	}
}

func TestContractStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	contract := sampleContract("c-1", "Falcon Run", "StreamCo")
	if err := store.SaveContract(ctx, contract); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Contract(ctx, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "License for Falcon Run" {
		t.Fatalf("expected title, got %q", got.Title)
	}
	if len(got.Grants) != 1 || got.Grants[0].ID != "c-1-g1" {
		t.Fatalf("expected inline grants, got %+v", got.Grants)
	}
	if got.Grants[0].Media != rights.MediaSVOD {
		t.Fatalf("expected svod grant, got %s", got.Grants[0].Media)
	}
	if got.UploadedBy.ID != "user-1" {
		t.Fatalf("expected uploader, got %q", got.UploadedBy.ID)
	}

	if _, err := store.Contract(ctx, "missing"); rights.KindFromError(err) != rights.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContractStore_SaveUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	contract := sampleContract("c-1", "Falcon Run", "StreamCo")
	if err := store.SaveContract(ctx, contract); err != nil {
		t.Fatalf("save: %v", err)
	}
	contract.Title = "Amended License"
	contract.Grants = append(contract.Grants, rights.RightsGrant{
		ID:         "c-1-g2",
		ContractID: "c-1",
		Work:       "Falcon Run",
		Licensee:   "StreamCo",
		Media:      rights.MediaAVOD,
	})
	if err := store.SaveContract(ctx, contract); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := store.Contract(ctx, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Amended License" {
		t.Fatalf("expected amended title, got %q", got.Title)
	}
	if len(got.Grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(got.Grants))
	}

	all, err := store.Contracts(ctx, rights.ContractFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert should not duplicate, got %d contracts", len(all))
	}
}

func TestContractStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	first := sampleContract("c-1", "Falcon Run", "StreamCo")
	second := sampleContract("c-2", "Night Harbor", "CableOne")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	for _, c := range []rights.Contract{first, second} {
		if err := store.SaveContract(ctx, c); err != nil {
			t.Fatalf("save %s: %v", c.ID, err)
		}
	}

	all, err := store.Contracts(ctx, rights.ContractFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c-2" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	byLicensee, err := store.Contracts(ctx, rights.ContractFilter{Licensee: "streamco"})
	if err != nil {
		t.Fatalf("list licensee: %v", err)
	}
	if len(byLicensee) != 1 || byLicensee[0].ID != "c-1" {
		t.Fatalf("expected c-1, got %+v", byLicensee)
	}

	since, err := store.Contracts(ctx, rights.ContractFilter{Since: second.CreatedAt})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 1 || since[0].ID != "c-2" {
		t.Fatalf("expected c-2, got %+v", since)
	}
}

func TestContractStore_Grants(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	first := sampleContract("c-1", "Falcon Run", "StreamCo")
	second := sampleContract("c-2", "Falcon Run", "CableOne")
	second.Grants[0].Media = rights.MediaPayTV
	for _, c := range []rights.Contract{first, second} {
		if err := store.SaveContract(ctx, c); err != nil {
			t.Fatalf("save %s: %v", c.ID, err)
		}
	}

	grants, err := store.Grants(ctx, rights.ContractFilter{Work: "falcon run"})
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}

	svod, err := store.Grants(ctx, rights.ContractFilter{Media: rights.MediaSVOD})
	if err != nil {
		t.Fatalf("grants by media: %v", err)
	}
	if len(svod) != 1 || svod[0].ID != "c-1-g1" {
		t.Fatalf("expected svod grant, got %+v", svod)
	}
}

func TestContractStore_DeleteRemovesConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	contract := sampleContract("c-1", "Falcon Run", "StreamCo")
	if err := store.SaveContract(ctx, contract); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := sampleContract("c-2", "Night Harbor", "CableOne")
	if err := store.SaveContract(ctx, other); err != nil {
		t.Fatalf("save: %v", err)
	}
	conflicts := []rights.Conflict{
		{ID: "cf-1", Kind: rights.ConflictExclusivity, Severity: rights.SeverityHigh, Work: "Falcon Run", GrantID: "c-1-g1", OtherID: "c-2-g1"},
		{ID: "cf-2", Kind: rights.ConflictDuplicate, Severity: rights.SeverityLow, Work: "Night Harbor", GrantID: "c-2-g1", OtherID: "x"},
	}
	if err := store.ReplaceConflicts(ctx, conflicts); err != nil {
		t.Fatalf("replace conflicts: %v", err)
	}

	if err := store.DeleteContract(ctx, "c-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Contract(ctx, "c-1"); rights.KindFromError(err) != rights.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	remaining, err := store.Conflicts(ctx, rights.ConflictFilter{})
	if err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "cf-2" {
		t.Fatalf("expected only cf-2 to survive, got %+v", remaining)
	}

	if err := store.DeleteContract(ctx, "missing"); rights.KindFromError(err) != rights.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContractStore_ConflictFilters(t *testing.T) {
	ctx := context.Background()
	store := NewContractStore(newTestDB(t))

	window := rights.Window{
		Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	conflicts := []rights.Conflict{
		{ID: "cf-1", Kind: rights.ConflictExclusivity, Severity: rights.SeverityHigh, Work: "Falcon Run", Media: rights.MediaSVOD, Territories: []string{"US"}, Window: window},
		{ID: "cf-2", Kind: rights.ConflictHoldback, Severity: rights.SeverityMedium, Work: "Falcon Run", Media: rights.MediaTheatrical},
		{ID: "cf-3", Kind: rights.ConflictExclusivity, Severity: rights.SeverityHigh, Work: "Night Harbor", Media: rights.MediaSVOD},
	}
	if err := store.ReplaceConflicts(ctx, conflicts); err != nil {
		t.Fatalf("replace conflicts: %v", err)
	}

	byWork, err := store.Conflicts(ctx, rights.ConflictFilter{Work: "FALCON RUN"})
	if err != nil {
		t.Fatalf("conflicts by work: %v", err)
	}
	if len(byWork) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(byWork))
	}

	byKind, err := store.Conflicts(ctx, rights.ConflictFilter{Kind: rights.ConflictHoldback})
	if err != nil {
		t.Fatalf("conflicts by kind: %v", err)
	}
	if len(byKind) != 1 || byKind[0].ID != "cf-2" {
		t.Fatalf("expected cf-2, got %+v", byKind)
	}

	got := byWork[0]
	if got.ID != "cf-1" || len(got.Territories) != 1 || got.Territories[0] != "US" {
		t.Fatalf("expected territories round-trip, got %+v", got)
	}
	if !got.Window.Start.Equal(window.Start) || !got.Window.End.IsZero() {
		t.Fatalf("expected open-ended window, got %+v", got.Window)
	}

	if err := store.ReplaceConflicts(ctx, nil); err != nil {
		t.Fatalf("clear conflicts: %v", err)
	}
	empty, err := store.Conflicts(ctx, rights.ConflictFilter{})
	if err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty set, got %+v", empty)
	}
}
