package report

import (
	"testing"
)

func TestFormatTextValueMoney(t *testing.T) {
	formatter := formatContext{}
	col := Column{Name: "fee", Type: "money"}

	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"cents", int64(250000), "2500.00"},
		{"zero", int64(0), "0.00"},
		{"int", 99, "0.99"},
		{"sub-dollar", int64(5), "0.05"},
	}
	for _, tc := range cases {
		got, err := formatter.formatTextValue(col, tc.value)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}

	if _, err := formatter.formatTextValue(col, "not money"); err == nil {
		t.Error("expected an error for a non-numeric amount")
	}
}

func TestFormatTextValueList(t *testing.T) {
	formatter := formatContext{}
	col := Column{Name: "territories", Type: "list"}

	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"multiple", []string{"us", "ca", "mx"}, "us; ca; mx"},
		{"single", []string{"worldwide"}, "worldwide"},
		{"empty", []string{}, ""},
		{"plain string", "us", "us"},
	}
	for _, tc := range cases {
		got, err := formatter.formatTextValue(col, tc.value)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}

	if _, err := formatter.formatTextValue(col, 42); err == nil {
		t.Error("expected an error for a non-list value")
	}
}
