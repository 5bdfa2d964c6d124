package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/zombar/newsharvest/models"
)

type stubStrategy struct {
	name    string
	content models.ExtractedContent
	hints   ImageHints
	err     error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(_ *models.FetchedPage) (Result, error) {
	if s.err != nil {
		return Result{Hints: s.hints}, s.err
	}
	return Result{Content: s.content, Hints: s.hints}, nil
}

func bodyOfWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " ")
}

func TestChainAcceptsFirstSufficientResult(t *testing.T) {
	failing := &stubStrategy{name: "first", err: errors.New("parse failure")}
	short := &stubStrategy{name: "second", content: models.ExtractedContent{Title: "ok", BodyText: bodyOfWords(60)}}
	long := &stubStrategy{name: "third", content: models.ExtractedContent{Title: "long", BodyText: bodyOfWords(500)}}

	chain := NewChain(50, failing, short, long)
	content, _, err := chain.Extract(&models.FetchedPage{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if content.ExtractionMethod != "second" {
		t.Errorf("accepted strategy = %q, want %q", content.ExtractionMethod, "second")
	}
	if content.WordCount != 60 {
		t.Errorf("WordCount = %d, want 60", content.WordCount)
	}
}

func TestChainSkipsBelowThreshold(t *testing.T) {
	short := &stubStrategy{name: "first", content: models.ExtractedContent{BodyText: bodyOfWords(30)}}
	long := &stubStrategy{name: "second", content: models.ExtractedContent{BodyText: bodyOfWords(120)}}

	chain := NewChain(50, short, long)
	content, _, err := chain.Extract(&models.FetchedPage{URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if content.ExtractionMethod != "second" {
		t.Errorf("accepted strategy = %q, want %q", content.ExtractionMethod, "second")
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(50,
		&stubStrategy{name: "first", err: errors.New("boom")},
		&stubStrategy{name: "second", content: models.ExtractedContent{BodyText: bodyOfWords(10)}},
	)
	_, _, err := chain.Extract(&models.FetchedPage{URL: "https://example.com/c"})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestChainMergesHintsFromFailedStrategies(t *testing.T) {
	chain := NewChain(50,
		&stubStrategy{
			name:  "first",
			err:   errors.New("boom"),
			hints: ImageHints{StructuredMetadataImage: "https://example.com/meta.jpg"},
		},
		&stubStrategy{
			name:    "second",
			content: models.ExtractedContent{BodyText: bodyOfWords(80)},
			hints:   ImageHints{FallbackLibraryImage: "https://example.com/top.jpg"},
		},
	)
	_, hints, err := chain.Extract(&models.FetchedPage{URL: "https://example.com/d"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if hints.StructuredMetadataImage != "https://example.com/meta.jpg" {
		t.Errorf("StructuredMetadataImage = %q", hints.StructuredMetadataImage)
	}
	if hints.FallbackLibraryImage != "https://example.com/top.jpg" {
		t.Errorf("FallbackLibraryImage = %q", hints.FallbackLibraryImage)
	}
}

func TestGenericStrategyExtractsParagraphs(t *testing.T) {
	html := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:image" content="https://example.com/og.jpg">
		<meta name="description" content="A generic page.">
	</head><body>
		<h1>Council Approves Budget</h1>
		<article>
			<p>The city council approved the annual budget on Tuesday evening.</p>
			<p>Officials said the spending plan prioritizes road maintenance work.</p>
			<p>Opposition members criticized cuts to the public library system.</p>
		</article>
	</body></html>`

	res, err := NewGenericStrategy().Extract(&models.FetchedPage{
		URL:  "https://example.com/news/budget",
		HTML: html,
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Content.Title != "Council Approves Budget" {
		t.Errorf("Title = %q", res.Content.Title)
	}
	if !strings.Contains(res.Content.BodyText, "road maintenance") {
		t.Errorf("BodyText missing paragraph text: %q", res.Content.BodyText)
	}
	if res.Hints.StructuredMetadataImage != "https://example.com/og.jpg" {
		t.Errorf("StructuredMetadataImage = %q", res.Hints.StructuredMetadataImage)
	}
	if res.Content.Description != "A generic page." {
		t.Errorf("Description = %q", res.Content.Description)
	}
}

func TestGenericStrategyNoContent(t *testing.T) {
	res, err := NewGenericStrategy().Extract(&models.FetchedPage{
		URL:  "https://example.com/empty",
		HTML: "<html><body><div>nav</div></body></html>",
	})
	if err == nil {
		t.Fatalf("expected error, got content %+v", res.Content)
	}
}
