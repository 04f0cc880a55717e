// internal/filter/filter_test.go
package filter_test

import (
	"testing"

	"github.com/eventhub-tools/ehreader/internal/filter"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		name    string
		message string
		filters []string
		want    bool
	}{
		{"exact match lowercase", "Hello World", []string{"hello"}, true},
		{"exact match uppercase", "Hello World", []string{"HELLO"}, true},
		{"partial match in middle", "Hello World", []string{"ell"}, true},
		{"no match", "Hello World", []string{"xyz"}, false},
		{"second filter matches", "Hello World", []string{"xyz", "hello"}, true},
		{"filter longer than message", "Hello World", []string{"Hello World Extra"}, false},
		{"empty message", "", []string{"hello"}, false},
		{"empty filter list", "Hello World", nil, false},
		{"empty filter matches anything", "Hello", []string{""}, true},
		{"unicode case-insensitive", "Café München", []string{"CAFÉ"}, true},
		{"multiline", "Line1\nLine2\nLine3", []string{"line2"}, true},
		{"error message scenario", "error: disk full", []string{"error"}, true},
		{"status ok scenario", "status ok", []string{"error"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := filter.Matches(tc.message, tc.filters); got != tc.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tc.message, tc.filters, got, tc.want)
			}
		})
	}
}
