package rights

import (
	"testing"
	"time"
)

func TestCanonicalMedia(t *testing.T) {
	cases := []struct {
		in      string
		want    MediaType
		wantErr bool
	}{
		{"SVOD", MediaSVOD, false},
		{"  streaming ", MediaSVOD, false},
		{"Theatrical", MediaTheatrical, false},
		{"Free TV", MediaFreeTV, false},
		{"all media", MediaAll, false},
		{"", "", true},
		{"hologram", "", true},
	}
	for _, tc := range cases {
		got, err := CanonicalMedia(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("CanonicalMedia(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("CanonicalMedia(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalMedia(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-06-01", "2024-06-01", false},
		{"06/15/2024", "2024-06-15", false},
		{"January 2, 2025", "2025-01-02", false},
		{"", "0001-01-01", false},
		{"not a date", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tc.in, err)
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestNormalizeTerritories(t *testing.T) {
	got := NormalizeTerritories([]string{" US ", "uk", "US", ""})
	if len(got) != 2 || got[0] != "uk" || got[1] != "us" {
		t.Fatalf("unexpected territories: %v", got)
	}

	got = NormalizeTerritories([]string{"us", "Worldwide", "uk"})
	if len(got) != 1 || got[0] != TerritoryWorldwide {
		t.Fatalf("worldwide should collapse the list, got %v", got)
	}
}

func TestTerritoriesIntersect(t *testing.T) {
	cases := []struct {
		a, b []string
		want bool
	}{
		{[]string{"us"}, []string{"us", "uk"}, true},
		{[]string{"us"}, []string{"uk"}, false},
		{[]string{TerritoryWorldwide}, []string{"jp"}, true},
		{nil, []string{"fr"}, true},
		{[]string{"de"}, nil, true},
	}
	for _, tc := range cases {
		if got := TerritoriesIntersect(tc.a, tc.b); got != tc.want {
			t.Errorf("TerritoriesIntersect(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestWindowOverlaps(t *testing.T) {
	day := func(s string) time.Time {
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad day %q", s)
		}
		return ts
	}

	a := Window{Start: day("2024-01-01"), End: day("2024-06-01")}
	b := Window{Start: day("2024-05-01"), End: day("2024-12-01")}
	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("expected overlap")
	}

	c := Window{Start: day("2024-06-01"), End: day("2024-09-01")}
	if a.Overlaps(c) {
		t.Error("half-open windows should not overlap at the boundary")
	}

	open := Window{Start: day("2020-01-01")}
	future := Window{Start: day("2030-01-01"), End: day("2031-01-01")}
	if !open.Overlaps(future) {
		t.Error("open-ended window should overlap any later window")
	}
}

func TestNormalizeGrant(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2024-01-01")
	g := RightsGrant{
		Work:        "  The Voyage ",
		Licensee:    "StreamCo",
		Media:       "Streaming",
		Territories: []string{"US", "us", " UK "},
		Window:      Window{Start: start},
		Currency:    "usd",
	}
	if err := NormalizeGrant(&g); err != nil {
		t.Fatalf("NormalizeGrant: %v", err)
	}
	if g.Work != "The Voyage" {
		t.Errorf("work not trimmed: %q", g.Work)
	}
	if g.Media != MediaSVOD {
		t.Errorf("media = %q, want svod", g.Media)
	}
	if len(g.Territories) != 2 {
		t.Errorf("territories = %v", g.Territories)
	}
	if g.Currency != "USD" {
		t.Errorf("currency = %q", g.Currency)
	}

	bad := RightsGrant{Licensee: "X", Media: "svod", Window: Window{Start: start}}
	if err := NormalizeGrant(&bad); err == nil {
		t.Error("expected error for missing work")
	}
	if KindFromError(NormalizeGrant(&bad)) != KindValidation {
		t.Error("expected validation kind")
	}
}

func TestNormalizeExtraction(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2024-01-01")
	ex := Extraction{
		Licensee: "StreamCo",
		Grants: []RightsGrant{
			{Work: "Good", Media: "svod", Window: Window{Start: start}},
			{Work: "", Media: "svod", Window: Window{Start: start}},
		},
	}
	if err := NormalizeExtraction(&ex); err != nil {
		t.Fatalf("NormalizeExtraction: %v", err)
	}
	if len(ex.Grants) != 1 {
		t.Fatalf("expected 1 kept grant, got %d", len(ex.Grants))
	}
	if ex.Grants[0].Licensee != "StreamCo" {
		t.Errorf("contract-level licensee should backfill grants, got %q", ex.Grants[0].Licensee)
	}
	if len(ex.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", ex.Warnings)
	}

	empty := Extraction{}
	err := NormalizeExtraction(&empty)
	if KindFromError(err) != KindExtraction {
		t.Errorf("expected extraction kind, got %v", err)
	}
}
