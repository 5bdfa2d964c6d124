package session

import (
	"strings"
	"sync"
	"testing"
)

func TestIDFormat(t *testing.T) {
	s := New()
	if !strings.HasPrefix(s.ID(), "session_") {
		t.Errorf("ID = %q, want session_<timestamp>", s.ID())
	}
}

func TestFolderForCollisions(t *testing.T) {
	s := New()
	got := []string{
		s.FolderFor("Breaking News"),
		s.FolderFor("Breaking News"),
		s.FolderFor("Breaking News"),
		s.FolderFor("Other Story"),
	}
	want := []string{"breaking_news", "breaking_news_1", "breaking_news_2", "other_story"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("folder %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFolderForSuffixNeverShadowsNaturalSlug(t *testing.T) {
	s := New()
	got := []string{
		s.FolderFor("Breaking News"),
		s.FolderFor("Breaking News 1"),
		s.FolderFor("Breaking News"),
	}
	seen := make(map[string]bool)
	for i, name := range got {
		if seen[name] {
			t.Fatalf("folder %d = %q already assigned (all: %q)", i, name, got)
		}
		seen[name] = true
	}
	if got[1] != "breaking_news_1" {
		t.Errorf("natural slug = %q, want breaking_news_1", got[1])
	}
	if got[2] != "breaking_news_2" {
		t.Errorf("suffixed collision = %q, want breaking_news_2", got[2])
	}
}

func TestFolderForEmptyTitle(t *testing.T) {
	s := New()
	if got := s.FolderFor(""); got != "untitled" {
		t.Errorf("FolderFor(\"\") = %q, want untitled", got)
	}
	if got := s.FolderFor("!!!"); got != "untitled_1" {
		t.Errorf("second untitled = %q, want untitled_1", got)
	}
}

func TestFolderForConcurrentUnique(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	results := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.FolderFor("Same Title")
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for name := range results {
		if seen[name] {
			t.Fatalf("duplicate folder name %q", name)
		}
		seen[name] = true
	}
}
