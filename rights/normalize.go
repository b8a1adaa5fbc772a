package rights

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var mediaAliases = map[string]MediaType{
	"theatrical":    MediaTheatrical,
	"cinema":        MediaTheatrical,
	"theatres":      MediaTheatrical,
	"svod":          MediaSVOD,
	"subscription":  MediaSVOD,
	"streaming":     MediaSVOD,
	"avod":          MediaAVOD,
	"ad-supported":  MediaAVOD,
	"tvod":          MediaTVOD,
	"transactional": MediaTVOD,
	"est":           MediaTVOD,
	"free tv":       MediaFreeTV,
	"free_tv":       MediaFreeTV,
	"broadcast":     MediaFreeTV,
	"pay tv":        MediaPayTV,
	"pay_tv":        MediaPayTV,
	"home video":    MediaHomeVideo,
	"home_video":    MediaHomeVideo,
	"dvd":           MediaHomeVideo,
	"all":           MediaAll,
	"all media":     MediaAll,
	"all rights":    MediaAll,
}

// CanonicalMedia maps a free-form media label to a MediaType.
func CanonicalMedia(raw string) (MediaType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", NewError(KindValidation, "media type is required", nil)
	}
	if media, ok := mediaAliases[key]; ok {
		return media, nil
	}
	return "", NewError(KindValidation, fmt.Sprintf("unknown media type %q", raw), nil)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate parses dates in the layouts extraction payloads tend to use.
// Empty input returns a zero time with no error.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, NewError(KindValidation, fmt.Sprintf("unparseable date %q", raw), nil)
}

// NormalizeTerritories trims, lowercases, and dedupes a territory list.
// A list containing "worldwide" collapses to just the wildcard.
func NormalizeTerritories(raw []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if t == TerritoryWorldwide || t == "world" || t == "global" {
			return []string{TerritoryWorldwide}
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TerritoriesIntersect reports whether two territory lists share a
// territory. The worldwide wildcard matches everything, and an empty
// list is treated as worldwide.
func TerritoriesIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, t := range a {
		if t == TerritoryWorldwide {
			return true
		}
	}
	set := map[string]bool{}
	for _, t := range b {
		if t == TerritoryWorldwide {
			return true
		}
		set[t] = true
	}
	for _, t := range a {
		if set[t] {
			return true
		}
	}
	return false
}

// SharedTerritories returns the territories two lists have in common.
// If either side is worldwide the other side's list is returned.
func SharedTerritories(a, b []string) []string {
	if len(a) == 0 || hasWorldwide(a) {
		if len(b) == 0 || hasWorldwide(b) {
			return []string{TerritoryWorldwide}
		}
		return append([]string(nil), b...)
	}
	if len(b) == 0 || hasWorldwide(b) {
		return append([]string(nil), a...)
	}
	set := map[string]bool{}
	for _, t := range b {
		set[t] = true
	}
	out := []string{}
	for _, t := range a {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}

func hasWorldwide(list []string) bool {
	for _, t := range list {
		if t == TerritoryWorldwide {
			return true
		}
	}
	return false
}

// NormalizeGrant validates and canonicalizes a single grant in place.
func NormalizeGrant(g *RightsGrant) error {
	if g == nil {
		return NewError(KindValidation, "grant is nil", nil)
	}
	g.Work = strings.TrimSpace(g.Work)
	if g.Work == "" {
		return NewError(KindValidation, "grant work title is required", nil)
	}
	g.Licensee = strings.TrimSpace(g.Licensee)
	if g.Licensee == "" {
		return NewError(KindValidation, fmt.Sprintf("grant for %q has no licensee", g.Work), nil)
	}

	media, err := CanonicalMedia(string(g.Media))
	if err != nil {
		return err
	}
	g.Media = media

	g.Territories = NormalizeTerritories(g.Territories)
	if len(g.Territories) == 0 {
		g.Territories = []string{TerritoryWorldwide}
	}

	if g.Window.Start.IsZero() {
		return NewError(KindValidation, fmt.Sprintf("grant for %q has no start date", g.Work), nil)
	}
	if !g.Window.End.IsZero() && !g.Window.End.After(g.Window.Start) {
		return NewError(KindValidation, fmt.Sprintf("grant for %q ends before it starts", g.Work), nil)
	}

	for i := range g.Holdbacks {
		hb := &g.Holdbacks[i]
		if string(hb.Media) != "" {
			media, err := CanonicalMedia(string(hb.Media))
			if err != nil {
				return err
			}
			hb.Media = media
		} else {
			hb.Media = MediaAll
		}
		hb.Territories = NormalizeTerritories(hb.Territories)
		if hb.Window.Start.IsZero() {
			hb.Window.Start = g.Window.Start
		}
	}

	g.Currency = strings.ToUpper(strings.TrimSpace(g.Currency))
	return nil
}

// NormalizeExtraction canonicalizes an extraction payload, returning
// warnings for grants that were dropped.
func NormalizeExtraction(ex *Extraction) error {
	if ex == nil {
		return NewError(KindValidation, "extraction is nil", nil)
	}
	ex.Title = strings.TrimSpace(ex.Title)
	ex.Licensor = strings.TrimSpace(ex.Licensor)
	ex.Licensee = strings.TrimSpace(ex.Licensee)

	if len(ex.Grants) == 0 {
		return NewError(KindExtraction, "extraction produced no grants", nil)
	}

	kept := make([]RightsGrant, 0, len(ex.Grants))
	for i := range ex.Grants {
		g := ex.Grants[i]
		if g.Licensee == "" {
			g.Licensee = ex.Licensee
		}
		if err := NormalizeGrant(&g); err != nil {
			ex.Warnings = append(ex.Warnings, fmt.Sprintf("grant %d dropped: %v", i+1, err))
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		return NewError(KindExtraction, "no usable grants after normalization", nil)
	}
	ex.Grants = kept
	return nil
}
