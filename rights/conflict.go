package rights

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DetectConflicts runs pairwise analysis over the supplied grants and
// returns every conflict found. Each grant pair is reported at most
// once. Grants are grouped by work title before comparison; grants on
// different works never conflict.
func DetectConflicts(grants []RightsGrant, now time.Time) []Conflict {
	byWork := map[string][]RightsGrant{}
	for _, g := range grants {
		key := strings.ToLower(g.Work)
		byWork[key] = append(byWork[key], g)
	}

	works := make([]string, 0, len(byWork))
	for w := range byWork {
		works = append(works, w)
	}
	sort.Strings(works)

	var conflicts []Conflict
	for _, w := range works {
		group := byWork[w]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				conflicts = append(conflicts, comparePair(group[i], group[j], now)...)
			}
		}
	}
	return dedupeConflicts(conflicts)
}

// dedupeConflicts keeps the first conflict per ID so callers can treat
// the ID as unique.
func dedupeConflicts(conflicts []Conflict) []Conflict {
	seen := make(map[string]bool, len(conflicts))
	out := conflicts[:0]
	for _, c := range conflicts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func comparePair(a, b RightsGrant, now time.Time) []Conflict {
	var out []Conflict

	if mediaOverlaps(a.Media, b.Media) &&
		TerritoriesIntersect(a.Territories, b.Territories) &&
		a.Window.Overlaps(b.Window) {

		shared := SharedTerritories(a.Territories, b.Territories)
		window := windowIntersection(a.Window, b.Window)

		switch {
		case a.Exclusive && b.Exclusive:
			out = append(out, newConflict(ConflictExclusivity, SeverityHigh, a, b, shared, window,
				fmt.Sprintf("exclusive grants to %s and %s overlap", a.Licensee, b.Licensee), now))
		case a.Exclusive || b.Exclusive:
			out = append(out, newConflict(ConflictExclusivity, SeverityMedium, a, b, shared, window,
				"exclusive grant overlaps a non-exclusive grant", now))
		case sameDeal(a, b):
			out = append(out, newConflict(ConflictDuplicate, SeverityLow, a, b, shared, window,
				fmt.Sprintf("duplicate non-exclusive deal with %s", a.Licensee), now))
		}
	}

	out = append(out, holdbackViolations(a, b, now)...)
	out = append(out, holdbackViolations(b, a, now)...)
	return out
}

// holdbackViolations checks other's grant against holder's holdbacks.
func holdbackViolations(holder, other RightsGrant, now time.Time) []Conflict {
	var out []Conflict
	for _, hb := range holder.Holdbacks {
		if !mediaOverlaps(hb.Media, other.Media) {
			continue
		}
		if !TerritoriesIntersect(hb.Territories, other.Territories) {
			continue
		}
		if !hb.Window.Overlaps(other.Window) {
			continue
		}
		shared := SharedTerritories(hb.Territories, other.Territories)
		window := windowIntersection(hb.Window, other.Window)
		detail := fmt.Sprintf("%s holdback held by %s violated by %s grant to %s",
			hb.Media, holder.Licensee, other.Media, other.Licensee)
		if hb.Reason != "" {
			detail += " (" + hb.Reason + ")"
		}
		conflict := newConflict(ConflictHoldback, SeverityHigh, holder, other, shared, window, detail, now)
		conflict.ID = fmt.Sprintf("%s:%s:%s:%s", ConflictHoldback, holder.ID, other.ID, hb.Media)
		conflict.Media = hb.Media
		out = append(out, conflict)
	}
	return out
}

func newConflict(kind ConflictKind, sev Severity, a, b RightsGrant, territories []string, window Window, detail string, now time.Time) Conflict {
	return Conflict{
		ID:          fmt.Sprintf("%s:%s:%s", kind, a.ID, b.ID),
		Kind:        kind,
		Severity:    sev,
		Work:        a.Work,
		Media:       a.Media,
		GrantID:     a.ID,
		OtherID:     b.ID,
		Territories: territories,
		Window:      window,
		Detail:      detail,
		DetectedAt:  now,
	}
}

func mediaOverlaps(a, b MediaType) bool {
	if a == MediaAll || b == MediaAll {
		return true
	}
	return a == b
}

func windowIntersection(a, b Window) Window {
	out := Window{Start: a.Start}
	if b.Start.After(out.Start) {
		out.Start = b.Start
	}
	switch {
	case a.End.IsZero():
		out.End = b.End
	case b.End.IsZero():
		out.End = a.End
	case a.End.Before(b.End):
		out.End = a.End
	default:
		out.End = b.End
	}
	return out
}

func sameDeal(a, b RightsGrant) bool {
	return strings.EqualFold(a.Licensee, b.Licensee) && a.Media == b.Media
}
