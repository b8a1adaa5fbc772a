package rights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Story is a generated user story for the backlog export.
type Story struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StoryWriter optionally rewrites generated stories, e.g. through an
// LLM. The deterministic generator is always the starting point.
type StoryWriter interface {
	Rewrite(ctx context.Context, stories []Story) ([]Story, error)
}

// GenerateStories produces deterministic user stories from grants and
// conflicts. Output order is stable.
func GenerateStories(contracts []Contract, conflicts []Conflict, now time.Time) []Story {
	var stories []Story

	grants := []RightsGrant{}
	for _, c := range contracts {
		grants = append(grants, c.Grants...)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].ID < grants[j].ID })

	for _, g := range grants {
		excl := "non-exclusive"
		if g.Exclusive {
			excl = "exclusive"
		}
		window := g.Window.Start.Format("2006-01-02")
		if g.Window.End.IsZero() {
			window += " onward"
		} else {
			window += " to " + g.Window.End.Format("2006-01-02")
		}
		stories = append(stories, Story{
			ID:    "story:grant:" + g.ID,
			Title: fmt.Sprintf("Track %s %s rights for %q", excl, g.Media, g.Work),
			Body: fmt.Sprintf(
				"As a rights manager, I want the %s %s license for %q held by %s (%s, %s) surfaced on the availability calendar so that sales avoids double-booking the title.",
				excl, g.Media, g.Work, g.Licensee, strings.Join(g.Territories, ", "), window),
			Tags:        []string{"grant", string(g.Media)},
			SourceID:    g.ID,
			GeneratedAt: now,
		})
		for _, hb := range g.Holdbacks {
			stories = append(stories, Story{
				ID:    fmt.Sprintf("story:holdback:%s:%s", g.ID, hb.Media),
				Title: fmt.Sprintf("Enforce %s holdback on %q", hb.Media, g.Work),
				Body: fmt.Sprintf(
					"As a rights manager, I want new %s deals for %q blocked while the holdback held by %s is active so that we stay contract-compliant.",
					hb.Media, g.Work, g.Licensee),
				Tags:        []string{"holdback", string(hb.Media)},
				SourceID:    g.ID,
				GeneratedAt: now,
			})
		}
	}

	sorted := append([]Conflict(nil), conflicts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, c := range sorted {
		stories = append(stories, Story{
			ID:    "story:conflict:" + c.ID,
			Title: fmt.Sprintf("Resolve %s %s conflict on %q", c.Severity, c.Kind, c.Work),
			Body: fmt.Sprintf(
				"As a rights manager, I want the %s conflict between grants %s and %s on %q resolved (%s) so that the catalog is cleared for licensing.",
				c.Severity, c.GrantID, c.OtherID, c.Work, c.Detail),
			Tags:        []string{"conflict", string(c.Kind), string(c.Severity)},
			SourceID:    c.ID,
			GeneratedAt: now,
		})
	}

	return stories
}
