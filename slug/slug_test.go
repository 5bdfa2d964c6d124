package slug

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple title", "City Council Approves Budget", "city_council_approves_budget"},
		{"punctuation stripped", "Markets up 3.5%! Here's why...", "markets_up_3_5_here_s_why"},
		{"accents transliterated", "Élection présidentielle à Paris", "election_presidentielle_a_paris"},
		{"hyphens become underscores", "covid-19-update", "covid_19_update"},
		{"repeated separators collapse", "a  --  b", "a_b"},
		{"empty", "", ""},
		{"only symbols", "!!! ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Generate(long)
	if len(got) > 200 {
		t.Errorf("slug length = %d, want <= 200", len(got))
	}
	if strings.HasSuffix(got, "_") {
		t.Errorf("slug ends with separator: %q", got)
	}
}

func TestGenerateWithFallback(t *testing.T) {
	if got := GenerateWithFallback("???", "untitled article"); got != "untitled_article" {
		t.Errorf("GenerateWithFallback = %q", got)
	}
	if got := GenerateWithFallback("Real Title", "untitled"); got != "real_title" {
		t.Errorf("GenerateWithFallback = %q", got)
	}
}
