package rights

import (
	"sort"
	"time"
)

// KPISnapshot summarizes the catalog for the dashboard.
type KPISnapshot struct {
	GeneratedAt      time.Time         `json:"generated_at"`
	Contracts        int               `json:"contracts"`
	Grants           int               `json:"grants"`
	Works            int               `json:"works"`
	Licensees        int               `json:"licensees"`
	ExclusiveGrants  int               `json:"exclusive_grants"`
	ExclusiveShare   float64           `json:"exclusive_share"`
	OpenConflicts    int               `json:"open_conflicts"`
	ConflictsByLevel map[Severity]int  `json:"conflicts_by_level"`
	MediaBreakdown   map[MediaType]int `json:"media_breakdown"`
	Territories      []string          `json:"territories"`
	ExpiringSoon     int               `json:"expiring_soon"`
	ExpiringDays     int               `json:"expiring_days"`
}

// BuildKPIs aggregates dashboard figures from contracts and conflicts.
// expiringDays controls the look-ahead for the expiring-windows count;
// zero defaults to 90 days.
func BuildKPIs(contracts []Contract, conflicts []Conflict, now time.Time, expiringDays int) KPISnapshot {
	if expiringDays <= 0 {
		expiringDays = 90
	}
	horizon := now.AddDate(0, 0, expiringDays)

	snap := KPISnapshot{
		GeneratedAt:      now,
		Contracts:        len(contracts),
		ConflictsByLevel: map[Severity]int{},
		MediaBreakdown:   map[MediaType]int{},
		ExpiringDays:     expiringDays,
	}

	works := map[string]bool{}
	licensees := map[string]bool{}
	territories := map[string]bool{}

	for _, c := range contracts {
		for _, g := range c.Grants {
			snap.Grants++
			works[g.Work] = true
			licensees[g.Licensee] = true
			snap.MediaBreakdown[g.Media]++
			if g.Exclusive {
				snap.ExclusiveGrants++
			}
			for _, t := range g.Territories {
				territories[t] = true
			}
			if !g.Window.End.IsZero() && g.Window.End.After(now) && g.Window.End.Before(horizon) {
				snap.ExpiringSoon++
			}
		}
	}

	snap.Works = len(works)
	snap.Licensees = len(licensees)
	if snap.Grants > 0 {
		snap.ExclusiveShare = float64(snap.ExclusiveGrants) / float64(snap.Grants)
	}

	snap.OpenConflicts = len(conflicts)
	for _, c := range conflicts {
		snap.ConflictsByLevel[c.Severity]++
	}

	snap.Territories = make([]string, 0, len(territories))
	for t := range territories {
		snap.Territories = append(snap.Territories, t)
	}
	sort.Strings(snap.Territories)

	return snap
}
