package rights

import (
	"testing"
	"time"
)

func TestBuildKPIs(t *testing.T) {
	now := day(t, "2024-06-01")
	contracts := []Contract{
		{
			ID: "c1",
			Grants: []RightsGrant{
				grant("g1", "Alpha", MediaSVOD, []string{"us"}, day(t, "2024-01-01"), day(t, "2024-07-15"), true),
				grant("g2", "Beta", MediaTheatrical, []string{"uk"}, day(t, "2024-01-01"), day(t, "2026-01-01"), false),
			},
		},
		{
			ID: "c2",
			Grants: []RightsGrant{
				grant("g3", "Alpha", MediaAVOD, []string{"us", "uk"}, day(t, "2024-01-01"), time.Time{}, false),
			},
		},
	}
	conflicts := []Conflict{
		{ID: "x1", Severity: SeverityHigh},
		{ID: "x2", Severity: SeverityLow},
	}

	snap := BuildKPIs(contracts, conflicts, now, 90)

	if snap.Contracts != 2 || snap.Grants != 3 {
		t.Errorf("contracts/grants = %d/%d", snap.Contracts, snap.Grants)
	}
	if snap.Works != 2 {
		t.Errorf("works = %d, want 2", snap.Works)
	}
	if snap.ExclusiveGrants != 1 {
		t.Errorf("exclusive = %d, want 1", snap.ExclusiveGrants)
	}
	if snap.ExclusiveShare < 0.33 || snap.ExclusiveShare > 0.34 {
		t.Errorf("exclusive share = %f", snap.ExclusiveShare)
	}
	if snap.OpenConflicts != 2 || snap.ConflictsByLevel[SeverityHigh] != 1 {
		t.Errorf("conflicts = %d, byLevel = %v", snap.OpenConflicts, snap.ConflictsByLevel)
	}
	if snap.ExpiringSoon != 1 {
		t.Errorf("expiring soon = %d, want 1 (g1 ends within 90 days)", snap.ExpiringSoon)
	}
	if len(snap.Territories) != 2 {
		t.Errorf("territories = %v", snap.Territories)
	}
	if snap.MediaBreakdown[MediaSVOD] != 1 || snap.MediaBreakdown[MediaAVOD] != 1 {
		t.Errorf("media breakdown = %v", snap.MediaBreakdown)
	}
}

func TestBuildKPIsEmpty(t *testing.T) {
	snap := BuildKPIs(nil, nil, day(t, "2024-06-01"), 0)
	if snap.Grants != 0 || snap.ExclusiveShare != 0 {
		t.Errorf("empty catalog should produce zero KPIs: %+v", snap)
	}
	if snap.ExpiringDays != 90 {
		t.Errorf("expiring days default = %d, want 90", snap.ExpiringDays)
	}
}
