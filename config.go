package harvest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScoreConfig centralizes every bonus, penalty and threshold used by the
// article authenticity scorer. The defaults were chosen empirically; treat
// them as tuning knobs, not load-bearing constants.
type ScoreConfig struct {
	AcceptThreshold float64 `yaml:"accept_threshold"`

	URLArticleBonus   float64 `yaml:"url_article_bonus"`
	URLListingPenalty float64 `yaml:"url_listing_penalty"`
	TitlePenalty      float64 `yaml:"title_penalty"`

	// Word-count bonus ramps linearly from zero at LengthMinWords up to
	// LengthBonusMax at LengthSaturationWords, then saturates.
	LengthMinWords        int     `yaml:"length_min_words"`
	LengthSaturationWords int     `yaml:"length_saturation_words"`
	LengthBonusMax        float64 `yaml:"length_bonus_max"`

	// Structural penalty scales with the fraction of body lines that look
	// like list items, up to ListDensityPenaltyMax.
	ListDensityPenaltyMax float64 `yaml:"list_density_penalty_max"`

	AuthorBonus float64 `yaml:"author_bonus"`
	DateBonus   float64 `yaml:"date_bonus"`
}

// ImageConfig centralizes the image candidate scoring and validation knobs.
type ImageConfig struct {
	BaseScore float64 `yaml:"base_score"`

	// Per-source bonuses, in trust order.
	StructuredMetadataBonus float64 `yaml:"structured_metadata_bonus"`
	FallbackLibraryBonus    float64 `yaml:"fallback_library_bonus"`
	OpenGraphBonus          float64 `yaml:"open_graph_bonus"`
	TwitterCardBonus        float64 `yaml:"twitter_card_bonus"`
	InlineImgBonus          float64 `yaml:"inline_img_bonus"`

	HeroTokenBonus     float64 `yaml:"hero_token_bonus"`
	ChromeTokenPenalty float64 `yaml:"chrome_token_penalty"`

	// Candidates with known dimensions below either minimum are discarded.
	MinWidth  int `yaml:"min_width"`
	MinHeight int `yaml:"min_height"`

	// Inline <img> tags only become candidates when their declared area
	// passes MinWidth x MinHeight and at least MinInlineCandidates qualify.
	MinInlineCandidates int `yaml:"min_inline_candidates"`
	MaxInlineCandidates int `yaml:"max_inline_candidates"`
}

// SummarizeConfig bounds the hierarchical summarizer.
type SummarizeConfig struct {
	ChunkWords      int `yaml:"chunk_words"`
	SummaryWords    int `yaml:"summary_words"`
	FinalWords      int `yaml:"final_words"`
	ExcerptWords    int `yaml:"excerpt_words"`
	MaxInputChars   int `yaml:"max_input_chars"`
	MaxReducePasses int `yaml:"max_reduce_passes"`
}

// Config contains the pipeline configuration.
type Config struct {
	MinWords int `yaml:"min_words"` // extraction acceptance bar

	Score     ScoreConfig     `yaml:"score"`
	Image     ImageConfig     `yaml:"image"`
	Summarize SummarizeConfig `yaml:"summarize"`

	ImageTimeout      time.Duration `yaml:"image_timeout"`
	MaxImageSizeBytes int64         `yaml:"max_image_size_bytes"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MinWords: 50,
		Score: ScoreConfig{
			AcceptThreshold:       40,
			URLArticleBonus:       20,
			URLListingPenalty:     25,
			TitlePenalty:          15,
			LengthMinWords:        150,
			LengthSaturationWords: 1200,
			LengthBonusMax:        30,
			ListDensityPenaltyMax: 25,
			AuthorBonus:           10,
			DateBonus:             10,
		},
		Image: ImageConfig{
			BaseScore:               50,
			StructuredMetadataBonus: 25,
			FallbackLibraryBonus:    20,
			OpenGraphBonus:          15,
			TwitterCardBonus:        10,
			InlineImgBonus:          5,
			HeroTokenBonus:          15,
			ChromeTokenPenalty:      40,
			MinWidth:                200,
			MinHeight:               100,
			MinInlineCandidates:     2,
			MaxInlineCandidates:     8,
		},
		Summarize: SummarizeConfig{
			ChunkWords:      900,
			SummaryWords:    220,
			FinalWords:      240,
			ExcerptWords:    60,
			MaxInputChars:   250_000,
			MaxReducePasses: 6,
		},
		ImageTimeout:      15 * time.Second,
		MaxImageSizeBytes: 10 * 1024 * 1024, // 10MB
	}
}

// LoadConfigFile overlays a YAML tuning file onto the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the pipeline cannot run with. These are
// the only run-halting configuration errors.
func (c Config) Validate() error {
	if c.MinWords < 0 {
		return fmt.Errorf("min_words must be >= 0, got %d", c.MinWords)
	}
	if c.Score.AcceptThreshold < 0 || c.Score.AcceptThreshold > 100 {
		return fmt.Errorf("score accept_threshold must be in [0,100], got %v", c.Score.AcceptThreshold)
	}
	if c.Score.LengthSaturationWords <= c.Score.LengthMinWords {
		return fmt.Errorf("length_saturation_words (%d) must exceed length_min_words (%d)",
			c.Score.LengthSaturationWords, c.Score.LengthMinWords)
	}
	if c.Summarize.ChunkWords <= 0 {
		return fmt.Errorf("chunk_words must be positive, got %d", c.Summarize.ChunkWords)
	}
	if c.Summarize.SummaryWords <= 0 {
		return fmt.Errorf("summary_words must be positive, got %d", c.Summarize.SummaryWords)
	}
	return nil
}
