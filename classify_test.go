package harvest

import "testing"

func TestClassifyLink(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		anchor string
		want   bool
	}{
		{"article path", "https://news.example/article/city-council-vote", "", true},
		{"story path", "https://news.example/story/flood-warning", "", true},
		{"dated path", "https://news.example/2024/06/mayor-resigns", "", true},
		{"hyphenated slug", "https://news.example/local-team-wins-title-again", "", true},
		{"descriptive anchor on neutral url", "https://news.example/x9k2", "Mayor announces new downtown transit plan", true},
		{"tag listing", "https://news.example/tag/politics", "", false},
		{"category listing", "https://news.example/category/world", "", false},
		{"latest listing", "https://news.example/news/latest", "", false},
		{"paginated", "https://news.example/world?page=3", "", false},
		{"page path", "https://news.example/page/2", "", false},
		{"login", "https://news.example/login", "", false},
		{"short anchor neutral url", "https://news.example/x9k2", "More", false},
		{"listing wins over article", "https://news.example/article/archive/2020", "", false},
		{"malformed url", "://not-a-url", "Some anchor text here please", false},
		{"non-http scheme", "ftp://news.example/article/thing", "", false},
		{"bare root", "https://news.example/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLink(tt.url, tt.anchor); got != tt.want {
				t.Errorf("ClassifyLink(%q, %q) = %v, want %v", tt.url, tt.anchor, got, tt.want)
			}
		})
	}
}

func TestMatchesListingPathPagination(t *testing.T) {
	if !matchesListingPath("https://news.example/world?page=7") {
		t.Error("query pagination should read as listing")
	}
	if matchesListingPath("https://news.example/article/pages-of-history") {
		t.Error("'pages' inside a slug is not pagination")
	}
}
