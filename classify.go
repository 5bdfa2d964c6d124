package harvest

import (
	"net/url"
	"regexp"
	"strings"
)

// Path fragments that suggest a URL points at an individual article.
var articlePathPatterns = []string{
	"/article/", "/articles/",
	"/story/", "/stories/",
	"/news/",
	"/post/", "/posts/",
	"/blog/",
	"/feature/", "/features/",
	"/opinion/", "/analysis/",
	"/report/",
}

// Path fragments that suggest a listing or navigation page. These take
// precedence over the article patterns: a wasted fetch costs far more than
// a skipped link that will be rediscovered elsewhere.
var listingPathPatterns = []string{
	"/tag/", "/tags/",
	"/category/", "/categories/",
	"/topic/", "/topics/",
	"/section/", "/sections/",
	"/author/", "/authors/",
	"/archive/", "/archives/",
	"/search", "/sitemap",
	"/latest", "/trending", "/popular",
	"/index.", "/feed", "/rss",
	"/about", "/contact", "/privacy", "/terms",
	"/subscribe", "/newsletter",
	"/login", "/signin", "/signup", "/register", "/account",
}

// dated article paths like /2024/06/some-slug
var datedPathRe = regexp.MustCompile(`/(19|20)\d{2}/\d{1,2}/[^/]+`)

// paginated listing paths like /page/3 or ?page=3
var pagedPathRe = regexp.MustCompile(`/page/\d+|[?&]page=\d+`)

// ClassifyLink decides whether a discovered link is worth fetching as an
// article candidate. It is a cheap prefilter in front of the full
// fetch+extract+score cycle and produces no score of its own. Malformed
// URLs are treated as not-likely rather than returned as errors.
func ClassifyLink(rawURL, anchorText string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	lower := strings.ToLower(u.Path)
	full := strings.ToLower(rawURL)

	// Listing signals win when both match.
	if pagedPathRe.MatchString(full) {
		return false
	}
	for _, p := range listingPathPatterns {
		// The listing check runs first, so "/news/" marks an article but
		// "/news/latest" still rejects on the "/latest" fragment.
		if strings.Contains(lower, p) {
			return false
		}
	}

	for _, p := range articlePathPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	if datedPathRe.MatchString(lower) {
		return true
	}

	// A long hyphenated final path segment usually names a story slug.
	segs := strings.Split(strings.Trim(lower, "/"), "/")
	if len(segs) > 0 {
		last := segs[len(segs)-1]
		if strings.Count(last, "-") >= 3 {
			return true
		}
	}

	// Long descriptive anchor text on an otherwise neutral URL is a weak
	// article hint; short anchors ("Home", "More") are navigation.
	if len(strings.Fields(anchorText)) >= 5 {
		return true
	}

	return false
}

// matchesArticlePath reports whether the URL path carries an article-like
// pattern. The scorer reuses the classifier's pattern set as one signal
// among several.
func matchesArticlePath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	lower := strings.ToLower(u.Path)
	for _, p := range articlePathPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return datedPathRe.MatchString(lower)
}

// matchesListingPath reports whether the URL path carries a listing-like
// pattern.
func matchesListingPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	lower := strings.ToLower(u.Path)
	if pagedPathRe.MatchString(strings.ToLower(rawURL)) {
		return true
	}
	for _, p := range listingPathPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
