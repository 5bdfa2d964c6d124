package harvest

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zombar/newsharvest/extract"
	"github.com/zombar/newsharvest/models"
)

// URL tokens suggesting a featured/hero image.
var heroTokens = []string{"featured", "hero", "cover"}

// URL tokens suggesting page chrome rather than editorial imagery. The
// penalty for these must stay larger than any source bonus so chrome can
// never win on provenance alone.
var chromeTokens = []string{
	"logo",
	"icon",
	"avatar",
	"banner",
	"sprite",
	"pixel",
	"tracking",
	"spacer",
	"placeholder",
	"blank",
	"transparent",
	"advert",
	"ad-banner",
	"promo",
	"spinner",
	"loader",
	"button",
	"favicon",
	"1x1",
}

// ImagePipeline gathers, scores, validates and selects hero image
// candidates for an article page.
type ImagePipeline struct {
	cfg ImageConfig
}

// NewImagePipeline creates an ImagePipeline with the given tuning.
func NewImagePipeline(cfg ImageConfig) *ImagePipeline {
	return &ImagePipeline{cfg: cfg}
}

// SelectImage runs the full gather/score/validate/select sequence and
// returns the best surviving candidate, or nil when no candidate survives.
// A nil result is an expected outcome, not an error.
func (p *ImagePipeline) SelectImage(page *models.FetchedPage, hints extract.ImageHints) *models.ImageCandidate {
	candidates := p.Gather(page, hints)
	for i := range candidates {
		candidates[i].Score = p.ScoreCandidate(candidates[i])
	}
	candidates = p.Validate(candidates)
	return p.Select(candidates)
}

// Gather collects candidates from every available source independently.
// No source short-circuits the others: the best image is not always found
// by the same source across sites.
func (p *ImagePipeline) Gather(page *models.FetchedPage, hints extract.ImageHints) []models.ImageCandidate {
	var out []models.ImageCandidate

	if hints.StructuredMetadataImage != "" {
		out = append(out, models.ImageCandidate{
			URL:    hints.StructuredMetadataImage,
			Source: models.SourceStructuredMetadata,
		})
	}
	if hints.FallbackLibraryImage != "" {
		out = append(out, models.ImageCandidate{
			URL:    hints.FallbackLibraryImage,
			Source: models.SourceFallbackLibrary,
		})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return out
	}
	base, _ := url.Parse(page.URL)

	if og := p.gatherMetaImage(doc, base, `meta[property="og:image"]`, models.SourceOpenGraph); og != nil {
		og.Width = metaPixels(doc, `meta[property="og:image:width"]`)
		og.Height = metaPixels(doc, `meta[property="og:image:height"]`)
		out = append(out, *og)
	}
	if tw := p.gatherMetaImage(doc, base, `meta[name="twitter:image"], meta[property="twitter:image"]`, models.SourceTwitterCard); tw != nil {
		out = append(out, *tw)
	}

	out = append(out, p.gatherInline(doc, base)...)
	return out
}

func (p *ImagePipeline) gatherMetaImage(doc *goquery.Document, base *url.URL, selector string, source models.ImageSource) *models.ImageCandidate {
	content := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
	if content == "" {
		return nil
	}
	resolved := resolveRef(base, content)
	if resolved == "" {
		return nil
	}
	return &models.ImageCandidate{URL: resolved, Source: source}
}

// gatherInline collects <img> tags with declared dimensions above the size
// heuristic. Inline tags are the noisiest source, so they only join the
// pool when enough of them qualify to suggest a media-rich article body.
func (p *ImagePipeline) gatherInline(doc *goquery.Document, base *url.URL) []models.ImageCandidate {
	var inline []models.ImageCandidate
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(inline) >= p.cfg.MaxInlineCandidates {
			return false
		}
		w := attrPixels(sel, "width")
		h := attrPixels(sel, "height")
		if w < p.cfg.MinWidth || h < p.cfg.MinHeight {
			return true
		}
		src := resolveRef(base, strings.TrimSpace(sel.AttrOr("src", "")))
		if src == "" {
			return true
		}
		inline = append(inline, models.ImageCandidate{
			URL:    src,
			Source: models.SourceInlineImg,
			Width:  w,
			Height: h,
		})
		return true
	})
	if len(inline) < p.cfg.MinInlineCandidates {
		return nil
	}
	return inline
}

// ScoreCandidate assigns a clamped 0-100 score from source priority and URL
// token evidence. Chrome tokens subtract more than any source bonus can
// add: excluding chrome is a hard goal, not a tie-break.
func (p *ImagePipeline) ScoreCandidate(c models.ImageCandidate) float64 {
	score := p.cfg.BaseScore

	switch c.Source {
	case models.SourceStructuredMetadata:
		score += p.cfg.StructuredMetadataBonus
	case models.SourceFallbackLibrary:
		score += p.cfg.FallbackLibraryBonus
	case models.SourceOpenGraph:
		score += p.cfg.OpenGraphBonus
	case models.SourceTwitterCard:
		score += p.cfg.TwitterCardBonus
	case models.SourceInlineImg:
		score += p.cfg.InlineImgBonus
	}

	lower := strings.ToLower(c.URL)
	for _, tok := range heroTokens {
		if strings.Contains(lower, tok) {
			score += p.cfg.HeroTokenBonus
			break
		}
	}
	for _, tok := range chromeTokens {
		if strings.Contains(lower, tok) {
			score -= p.cfg.ChromeTokenPenalty
			break
		}
	}

	return clamp(score, 0, 100)
}

// Validate discards candidates whose declared dimensions fall below the
// minimums. Candidates with unknown dimensions are kept; the download and
// decode step re-checks real pixel sizes later.
func (p *ImagePipeline) Validate(candidates []models.ImageCandidate) []models.ImageCandidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Width > 0 && c.Width < p.cfg.MinWidth {
			continue
		}
		if c.Height > 0 && c.Height < p.cfg.MinHeight {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Select returns the highest-scoring survivor. Ties break toward the more
// trusted (earlier-gathered) source. Nil means no image, a valid outcome.
func (p *ImagePipeline) Select(candidates []models.ImageCandidate) *models.ImageCandidate {
	var best *models.ImageCandidate
	for i := range candidates {
		c := &candidates[i]
		if best == nil || c.Score > best.Score || (c.Score == best.Score && c.Source < best.Source) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// MeetsMinimum reports whether probed pixel dimensions satisfy the
// validation floor. Used after download when declared sizes were unknown.
func (p *ImagePipeline) MeetsMinimum(width, height int) bool {
	return width >= p.cfg.MinWidth && height >= p.cfg.MinHeight
}

func attrPixels(sel *goquery.Selection, name string) int {
	v := strings.TrimSuffix(strings.TrimSpace(sel.AttrOr(name, "")), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func metaPixels(doc *goquery.Document, selector string) int {
	v := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func resolveRef(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}
