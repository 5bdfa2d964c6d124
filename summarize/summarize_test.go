package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/zombar/newsharvest/models"
)

type stubModel struct {
	calls int
	fail  bool
}

func (m *stubModel) Summarize(_ context.Context, text string, maxWords int) (string, error) {
	m.calls++
	if m.fail {
		return "", errors.New("model unavailable")
	}
	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " "), nil
}

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkLosslessPartition(t *testing.T) {
	for _, n := range []int{1, 899, 900, 901, 2400, 5000} {
		text := wordsText(n)
		chunks := Chunk(text, 900)
		for i, c := range chunks {
			if got := len(strings.Fields(c)); got > 900 {
				t.Errorf("n=%d chunk %d has %d words", n, i, got)
			}
		}
		if rejoined := strings.Join(chunks, " "); rejoined != text {
			t.Errorf("n=%d: rejoined chunks differ from input", n)
		}
	}
}

func TestChunkEmpty(t *testing.T) {
	if chunks := Chunk("   ", 900); chunks != nil {
		t.Errorf("Chunk on whitespace = %v, want nil", chunks)
	}
}

func TestSummarizeSingleChunkOneCall(t *testing.T) {
	model := &stubModel{}
	s := New(model, DefaultOptions())

	res := s.Summarize(context.Background(), wordsText(500))
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}
	if res.Method != models.SummaryMethodModel {
		t.Errorf("Method = %q", res.Method)
	}
	if res.SourceWordCount != 500 {
		t.Errorf("SourceWordCount = %d, want 500", res.SourceWordCount)
	}
}

func TestSummarizeHierarchicalCallCount(t *testing.T) {
	// 2400 words split into three 900/900/600 chunks, each summarized, then
	// one final reduction over the concatenated partials.
	model := &stubModel{}
	s := New(model, DefaultOptions())

	res := s.Summarize(context.Background(), wordsText(2400))
	if model.calls != 4 {
		t.Errorf("model calls = %d, want 4", model.calls)
	}
	if res.Method != models.SummaryMethodModel {
		t.Errorf("Method = %q", res.Method)
	}
	if got := len(strings.Fields(res.SummaryText)); got > 240 {
		t.Errorf("final summary has %d words, want <= 240", got)
	}
}

func TestSummarizeExcerptFallback(t *testing.T) {
	model := &stubModel{fail: true}
	s := New(model, DefaultOptions())

	res := s.Summarize(context.Background(), wordsText(200))
	if res.Method != models.SummaryMethodExcerpt {
		t.Fatalf("Method = %q, want %q", res.Method, models.SummaryMethodExcerpt)
	}
	if got := len(strings.Fields(res.SummaryText)); got != 60 {
		t.Errorf("excerpt word count = %d, want 60", got)
	}
	if !strings.HasSuffix(res.SummaryText, "...") {
		t.Errorf("excerpt missing ellipsis: %q", res.SummaryText)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	model := &stubModel{fail: true}
	s := New(model, DefaultOptions())

	res := s.Summarize(context.Background(), "  \n\t ")
	if res.SummaryText != "" || res.SourceWordCount != 0 {
		t.Errorf("got %+v, want empty excerpt result", res)
	}
	if res.Method != models.SummaryMethodExcerpt {
		t.Errorf("Method = %q", res.Method)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times on empty input", model.calls)
	}
}

func TestExcerptShortInputNoEllipsis(t *testing.T) {
	text := "just a few words here"
	if got := Excerpt(text, 60); got != text {
		t.Errorf("Excerpt = %q, want input unchanged", got)
	}
}

func TestNormalizeTruncatesOnWordBoundary(t *testing.T) {
	got := Normalize("alpha beta gamma", 12)
	if got != "alpha beta" {
		t.Errorf("Normalize = %q, want %q", got, "alpha beta")
	}
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	// One unbroken token of two-byte runes; an odd byte cap would land
	// mid-rune and the word-boundary trim never applies.
	got := Normalize(strings.Repeat("é", 40), 11)
	if !utf8.ValidString(got) {
		t.Fatalf("Normalize produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("é", 5) {
		t.Errorf("Normalize = %q, want %q", got, strings.Repeat("é", 5))
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("a\n\n b\t\tc  d", 0)
	if got != "a b c d" {
		t.Errorf("Normalize = %q", got)
	}
}
