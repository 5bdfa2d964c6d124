// Package runstate tracks the live progress of a scraping run and keeps a
// bounded in-memory activity log for the control API. All methods are safe
// for concurrent use by pipeline workers.
package runstate

import (
	"sync"
	"time"
)

// Log entry levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// maxLogEntries bounds the activity log; older entries are dropped.
const maxLogEntries = 500

// LogEntry is one line of run activity.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Status is a point-in-time snapshot of a run.
type Status struct {
	Running       bool       `json:"running"`
	SessionID     string     `json:"sessionId"`
	ArticlesFound int        `json:"articlesFound"`
	ArticlesSaved int        `json:"articlesSaved"`
	ImagesFound   int        `json:"imagesFound"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	Log           []LogEntry `json:"log"`
}

// Tracker accumulates run progress. The zero value is not usable; call New.
type Tracker struct {
	mu            sync.Mutex
	running       bool
	completed     bool
	sessionID     string
	articlesFound int
	articlesSaved int
	imagesFound   int
	target        int
	log           []LogEntry
}

func New() *Tracker {
	return &Tracker{log: make([]LogEntry, 0, 64)}
}

// Start marks a new run active and resets all counters. target is the
// article goal used for progress reporting; zero means unbounded.
func (t *Tracker) Start(sessionID string, target int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.completed = false
	t.sessionID = sessionID
	t.articlesFound = 0
	t.articlesSaved = 0
	t.imagesFound = 0
	t.target = target
	t.log = t.log[:0]
}

// Finish marks the run done. completed distinguishes a natural finish from
// a stop request.
func (t *Tracker) Finish(completed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.completed = completed
}

// Running reports whether a run is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// ArticleFound counts a link that was classified as a likely article.
func (t *Tracker) ArticleFound() {
	t.mu.Lock()
	t.articlesFound++
	t.mu.Unlock()
}

// ArticleSaved counts a persisted article and returns the new total.
func (t *Tracker) ArticleSaved() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.articlesSaved++
	return t.articlesSaved
}

// ImageFound counts a stored article image.
func (t *Tracker) ImageFound() {
	t.mu.Lock()
	t.imagesFound++
	t.mu.Unlock()
}

// Infof appends an info entry to the activity log.
func (t *Tracker) Infof(msg string) { t.append(LevelInfo, msg) }

// Successf appends a success entry to the activity log.
func (t *Tracker) Successf(msg string) { t.append(LevelSuccess, msg) }

// Warningf appends a warning entry to the activity log.
func (t *Tracker) Warningf(msg string) { t.append(LevelWarning, msg) }

// Errorf appends an error entry to the activity log.
func (t *Tracker) Errorf(msg string) { t.append(LevelError, msg) }

func (t *Tracker) append(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = append(t.log, LogEntry{Time: time.Now().UTC(), Level: level, Message: msg})
	if len(t.log) > maxLogEntries {
		t.log = t.log[len(t.log)-maxLogEntries:]
	}
}

// Snapshot returns a copy of the current run status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress := 0
	if t.completed {
		progress = 100
	} else if t.target > 0 {
		progress = t.articlesSaved * 100 / t.target
		if progress > 100 {
			progress = 100
		}
	}

	logCopy := make([]LogEntry, len(t.log))
	copy(logCopy, t.log)

	return Status{
		Running:       t.running,
		SessionID:     t.sessionID,
		ArticlesFound: t.articlesFound,
		ArticlesSaved: t.articlesSaved,
		ImagesFound:   t.imagesFound,
		Progress:      progress,
		Completed:     t.completed,
		Log:           logCopy,
	}
}
