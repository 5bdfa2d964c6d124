// Package session groups the output of one scraping run. A session owns a
// unique identifier and assigns each accepted article a collision-free
// folder name derived from its title.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/zombar/newsharvest/slug"
)

// Session identifies one scraping run and tracks the folder names already
// assigned within it. Folder assignment is safe for concurrent use.
type Session struct {
	id      string
	started time.Time

	mu    sync.Mutex
	next  map[string]int
	taken map[string]bool
}

// New creates a session identified by the current unix timestamp.
func New() *Session {
	now := time.Now()
	return &Session{
		id:      fmt.Sprintf("session_%d", now.Unix()),
		started: now,
		next:    make(map[string]int),
		taken:   make(map[string]bool),
	}
}

// NewWithID restores a session with a known identifier, for resuming
// summarization over an existing run.
func NewWithID(id string) *Session {
	return &Session{
		id:      id,
		started: time.Now(),
		next:    make(map[string]int),
		taken:   make(map[string]bool),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.started }

// FolderFor assigns a unique folder name for an article title. The first
// article with a given title gets the bare slug; later collisions get
// numeric suffixes (name_1, name_2, ...). Every assigned name is recorded,
// so a suffixed name never collides with another title's natural slug.
func (s *Session) FolderFor(title string) string {
	base := slug.GenerateWithFallback(title, "untitled")

	s.mu.Lock()
	defer s.mu.Unlock()

	name := base
	for s.taken[name] {
		s.next[base]++
		name = fmt.Sprintf("%s_%d", base, s.next[base])
	}
	s.taken[name] = true
	return name
}
