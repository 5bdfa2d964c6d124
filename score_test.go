package harvest

import (
	"strings"
	"testing"

	"github.com/zombar/newsharvest/models"
)

func TestScoreRejectsListingPage(t *testing.T) {
	s := NewScorer(DefaultConfig().Score)

	verdict := s.Score(models.ExtractedContent{
		Title:     "Latest News",
		BodyText:  strings.Repeat("headline ", 40),
		WordCount: 40,
	}, "https://news.example/news/latest")

	if verdict.IsArticle {
		t.Errorf("listing page accepted: %+v", verdict)
	}
	if verdict.Score != 0 {
		// URL listing penalty and title penalty outweigh the article-path
		// bonus; the negative total clamps to zero.
		t.Errorf("Score = %v, want 0 after clamping", verdict.Score)
	}
	if len(verdict.Reasons) == 0 {
		t.Error("verdict should record contributing reasons")
	}
}

func TestScoreAcceptsRealArticle(t *testing.T) {
	s := NewScorer(DefaultConfig().Score)

	verdict := s.Score(models.ExtractedContent{
		Title:         "Council approves downtown transit plan",
		BodyText:      strings.Repeat("word ", 650),
		Author:        "Ana Reyes",
		PublishedDate: "2024-06-12",
		WordCount:     650,
	}, "https://news.example/article/city-council-vote")

	if !verdict.IsArticle {
		t.Fatalf("article rejected: %+v", verdict)
	}
	if verdict.Score < 50 || verdict.Score > 60 {
		t.Errorf("Score = %v, want url bonus + length + author + date in (50,60)", verdict.Score)
	}
}

func TestScoreClampedToRange(t *testing.T) {
	s := NewScorer(DefaultConfig().Score)

	inputs := []struct {
		content models.ExtractedContent
		url     string
	}{
		{models.ExtractedContent{}, "https://news.example/tag/x?page=9"},
		{models.ExtractedContent{
			Title:         "A Story",
			BodyText:      strings.Repeat("w ", 5000),
			Author:        "A",
			PublishedDate: "2024-01-01",
			WordCount:     5000,
		}, "https://news.example/article/2024/01/big-long-story-slug-here"},
	}
	for _, in := range inputs {
		v := s.Score(in.content, in.url)
		if v.Score < 0 || v.Score > 100 {
			t.Errorf("Score = %v out of [0,100] for %s", v.Score, in.url)
		}
	}
}

func TestScoreLengthBonusSaturates(t *testing.T) {
	s := NewScorer(DefaultConfig().Score)

	at := func(words int) float64 {
		return s.Score(models.ExtractedContent{
			BodyText:  strings.Repeat("w ", words),
			WordCount: words,
		}, "https://news.example/plain").Score
	}

	if at(100) != 0 {
		t.Errorf("score at 100 words = %v, want 0 (below length minimum)", at(100))
	}
	if at(1200) != at(5000) {
		t.Errorf("length bonus should saturate: %v != %v", at(1200), at(5000))
	}
	if !(at(600) > at(300)) {
		t.Errorf("length bonus should be monotonic: %v <= %v", at(600), at(300))
	}
}

func TestScoreListDensityPenalty(t *testing.T) {
	s := NewScorer(DefaultConfig().Score)

	prose := models.ExtractedContent{
		BodyText:  strings.Repeat("This is a normal sentence of prose text.\n", 20),
		WordCount: 160,
	}
	listy := models.ExtractedContent{
		BodyText:  strings.Repeat("- headline item linking elsewhere on the site\n", 20),
		WordCount: 160,
	}

	proseScore := s.Score(prose, "https://news.example/plain").Score
	listScore := s.Score(listy, "https://news.example/plain").Score
	if !(listScore < proseScore) {
		t.Errorf("list markup should lower score: list=%v prose=%v", listScore, proseScore)
	}
}

func TestListMarkupFraction(t *testing.T) {
	body := "- one\n- two\nplain prose line\n\n1. numbered\n"
	got := listMarkupFraction(body)
	if got != 0.75 {
		t.Errorf("listMarkupFraction = %v, want 0.75", got)
	}
	if listMarkupFraction("") != 0 {
		t.Error("empty body should have zero fraction")
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("  a  b\nc\t"); got != 3 {
		t.Errorf("CountWords = %d, want 3", got)
	}
}
