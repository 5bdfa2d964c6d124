package harvest

import (
	"regexp"
	"strings"

	"github.com/zombar/newsharvest/models"
)

// Title phrasings that name a section or aggregation page rather than a
// story.
var listingTitlePhrases = []string{
	"latest news",
	"top stories",
	"breaking news",
	"most read",
	"most popular",
	"more stories",
	"all articles",
	"news archive",
	"in the news",
	"photo gallery",
	"home page",
	"page not found",
}

var listItemLineRe = regexp.MustCompile(`^\s*(?:[-*•·–]|\d{1,3}[.)])\s+`)

// Scorer computes article authenticity verdicts. It is a pure function of
// its inputs; all magnitudes come from the ScoreConfig it was built with.
type Scorer struct {
	cfg ScoreConfig
}

// NewScorer creates a Scorer with the given tuning.
func NewScorer(cfg ScoreConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates extracted content against its URL and returns a verdict
// with one recorded reason per contributing signal. The total is clamped to
// [0,100] and IsArticle is derived from the accept threshold alone.
func (s *Scorer) Score(extracted models.ExtractedContent, rawURL string) models.ArticleVerdict {
	var total float64
	var reasons []models.Reason

	add := func(signal string, points float64) {
		if points == 0 {
			return
		}
		total += points
		reasons = append(reasons, models.Reason{Signal: signal, Points: points})
	}

	// URL pattern signal. The classifier's pattern sets reappear here as
	// one soft signal among several, not a hard gate.
	if matchesArticlePath(rawURL) {
		add("url_article_pattern", s.cfg.URLArticleBonus)
	}
	if matchesListingPath(rawURL) {
		add("url_listing_pattern", -s.cfg.URLListingPenalty)
	}

	// Title signal.
	titleLower := strings.ToLower(strings.TrimSpace(extracted.Title))
	for _, phrase := range listingTitlePhrases {
		if strings.Contains(titleLower, phrase) {
			add("title_listing_phrase", -s.cfg.TitlePenalty)
			break
		}
	}

	// Length signal: monotonic with diminishing returns so raw word count
	// alone can never dominate the verdict.
	add("word_count", s.lengthBonus(extracted.WordCount))

	// Structural signal: listing pages are mostly items, not prose.
	if frac := listMarkupFraction(extracted.BodyText); frac > 0 {
		add("list_markup_density", -frac*s.cfg.ListDensityPenaltyMax)
	}

	// Metadata signal: editorial content usually names an author and a
	// publication date; index pages usually carry neither.
	if strings.TrimSpace(extracted.Author) != "" {
		add("author_present", s.cfg.AuthorBonus)
	}
	if strings.TrimSpace(extracted.PublishedDate) != "" {
		add("date_present", s.cfg.DateBonus)
	}

	score := clamp(total, 0, 100)
	return models.ArticleVerdict{
		Score:     score,
		IsArticle: score >= s.cfg.AcceptThreshold,
		Reasons:   reasons,
	}
}

func (s *Scorer) lengthBonus(wordCount int) float64 {
	min := s.cfg.LengthMinWords
	sat := s.cfg.LengthSaturationWords
	if wordCount <= min {
		return 0
	}
	if wordCount >= sat {
		return s.cfg.LengthBonusMax
	}
	return s.cfg.LengthBonusMax * float64(wordCount-min) / float64(sat-min)
}

// listMarkupFraction returns the fraction of non-empty body lines that look
// like bullet or numbered list items.
func listMarkupFraction(body string) float64 {
	lines := strings.Split(body, "\n")
	var total, listy int
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if listItemLineRe.MatchString(line) {
			listy++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(listy) / float64(total)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
