package harvest

import (
	"testing"

	"github.com/zombar/newsharvest/extract"
	"github.com/zombar/newsharvest/models"
)

func TestSelectImagePrefersTrustedSourceOverChrome(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	page := &models.FetchedPage{
		URL: "https://news.example/article/flood-warning",
		HTML: `<html><head>
			<meta property="og:image" content="/img/small-thumb.jpg">
			<meta property="og:image:width" content="120">
			<meta property="og:image:height" content="80">
		</head><body>
			<img src="/static/site-logo.png" width="400" height="300">
			<img src="/media/flood-aerial-view.jpg" width="800" height="600">
		</body></html>`,
	}
	hints := extract.ImageHints{
		StructuredMetadataImage: "https://cdn.example/featured/flood.jpg",
	}

	got := p.SelectImage(page, hints)
	if got == nil {
		t.Fatal("expected a selected image")
	}
	if got.URL != "https://cdn.example/featured/flood.jpg" {
		t.Errorf("selected %q, want the structured metadata image", got.URL)
	}
	if got.Source != models.SourceStructuredMetadata {
		t.Errorf("Source = %v", got.Source)
	}
}

func TestSelectImageNilWhenNothingSurvives(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	page := &models.FetchedPage{
		URL:  "https://news.example/article/dry-page",
		HTML: `<html><body><p>no imagery</p></body></html>`,
	}
	if got := p.SelectImage(page, extract.ImageHints{}); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestScoreCandidateChromeNeverOutscoresEqual(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	// For every source, a chrome-tokened URL must never outscore an
	// otherwise identical clean URL.
	sources := []models.ImageSource{
		models.SourceStructuredMetadata,
		models.SourceFallbackLibrary,
		models.SourceOpenGraph,
		models.SourceTwitterCard,
		models.SourceInlineImg,
	}
	for _, src := range sources {
		clean := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/photo.jpg", Source: src})
		chrome := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/logo.jpg", Source: src})
		if chrome >= clean {
			t.Errorf("source %v: chrome %v >= clean %v", src, chrome, clean)
		}
	}

	// Even with a hero token the chrome penalty dominates any source bonus.
	worstClean := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/photo.jpg", Source: models.SourceInlineImg})
	bestChrome := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/featured-logo.jpg", Source: models.SourceStructuredMetadata})
	if bestChrome >= worstClean {
		t.Errorf("best chrome %v >= worst clean %v", bestChrome, worstClean)
	}
}

func TestScoreCandidateHeroBonus(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)
	plain := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/a.jpg", Source: models.SourceOpenGraph})
	hero := p.ScoreCandidate(models.ImageCandidate{URL: "https://x/hero-a.jpg", Source: models.SourceOpenGraph})
	if hero != plain+p.cfg.HeroTokenBonus {
		t.Errorf("hero = %v, plain = %v", hero, plain)
	}
}

func TestValidateDimensionRules(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	in := []models.ImageCandidate{
		{URL: "https://x/known-good.jpg", Width: 800, Height: 600},
		{URL: "https://x/too-small.jpg", Width: 120, Height: 80},
		{URL: "https://x/unknown-dims.jpg"},
		{URL: "https://x/narrow.jpg", Width: 150, Height: 400},
	}
	kept := p.Validate(in)
	if len(kept) != 2 {
		t.Fatalf("kept %d candidates: %+v", len(kept), kept)
	}
	if kept[0].URL != "https://x/known-good.jpg" || kept[1].URL != "https://x/unknown-dims.jpg" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestSelectTieBreaksTowardTrustedSource(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	got := p.Select([]models.ImageCandidate{
		{URL: "https://x/b.jpg", Source: models.SourceTwitterCard, Score: 60},
		{URL: "https://x/a.jpg", Source: models.SourceOpenGraph, Score: 60},
	})
	if got == nil || got.Source != models.SourceOpenGraph {
		t.Errorf("Select = %+v, want the open graph candidate", got)
	}
}

func TestGatherInlineRequiresQuorum(t *testing.T) {
	p := NewImagePipeline(DefaultConfig().Image)

	// One qualifying inline image is below the quorum; candidates from
	// inline tags only appear when the body looks media-rich.
	page := &models.FetchedPage{
		URL: "https://news.example/article/one",
		HTML: `<html><body>
			<img src="/media/solo.jpg" width="800" height="600">
			<img src="/media/tiny.jpg" width="50" height="50">
		</body></html>`,
	}
	if got := p.Gather(page, extract.ImageHints{}); len(got) != 0 {
		t.Errorf("Gather = %+v, want none", got)
	}

	page.HTML = `<html><body>
		<img src="/media/one.jpg" width="800" height="600">
		<img src="/media/two.jpg" width="640" height="480">
	</body></html>`
	got := p.Gather(page, extract.ImageHints{})
	if len(got) != 2 {
		t.Fatalf("Gather = %+v, want 2 inline candidates", got)
	}
	if got[0].URL != "https://news.example/media/one.jpg" {
		t.Errorf("inline src not resolved: %q", got[0].URL)
	}
}
