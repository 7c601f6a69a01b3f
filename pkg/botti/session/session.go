// Package session holds the per-user, process-lifetime conversation state:
// ingested content items (scraped links, converted documents, described
// images), the latest generated/uploaded image slot, and the response rate
// window. Nothing here is persisted; a restart clears it.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ContentKind classifies an ingested content item.
type ContentKind string

const (
	KindLink     ContentKind = "link"
	KindDocument ContentKind = "document"
	KindImage    ContentKind = "image"
	KindAudio    ContentKind = "audio"
)

// ContentItem is one piece of ingested context. A failed extraction keeps
// its item with Err set, so the assistant can acknowledge the failure.
type ContentItem struct {
	Kind    ContentKind
	Source  string // URL or filename
	Content string
	Err     string
}

// RateLimit configures the per-user response rate window.
type RateLimit struct {
	MaxResponses int           `yaml:"max_responses"`
	Window       time.Duration `yaml:"window"`
}

// DefaultRateLimit is 5 responses in a trailing 30 seconds.
var DefaultRateLimit = RateLimit{MaxResponses: 5, Window: 30 * time.Second}

// userState bundles everything tracked for one user.
type userState struct {
	content     []ContentItem
	latestImage string
	responses   []time.Time
	lastSeen    time.Time
}

// Store is the in-memory per-user session state store. All pipeline access
// happens on the single worker goroutine; the mutex exists because admin
// surfaces (CLI, commands) may read snapshots concurrently.
type Store struct {
	mu     sync.Mutex
	users  map[string]*userState
	limit  RateLimit
	logger *slog.Logger
	cron   *cron.Cron
}

// NewStore creates an empty session store.
func NewStore(limit RateLimit, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if limit.MaxResponses <= 0 {
		limit = DefaultRateLimit
	}
	return &Store{
		users:  make(map[string]*userState),
		limit:  limit,
		logger: logger.With("component", "session"),
	}
}

// StartPruning schedules a periodic sweep dropping users idle longer than
// maxIdle. Call StopPruning on shutdown.
func (s *Store) StartPruning(every string, maxIdle time.Duration) error {
	c := cron.New()
	_, err := c.AddFunc(every, func() { s.prune(maxIdle) })
	if err != nil {
		return fmt.Errorf("scheduling session prune: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

// StopPruning stops the prune schedule, waiting for a running sweep.
func (s *Store) StopPruning() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Store) prune(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped int
	for id, u := range s.users {
		if u.lastSeen.Before(cutoff) {
			delete(s.users, id)
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Info("pruned idle sessions", "dropped", dropped, "remaining", len(s.users))
	}
}

func (s *Store) user(id string) *userState {
	u, ok := s.users[id]
	if !ok {
		u = &userState{}
		s.users[id] = u
	}
	u.lastSeen = time.Now()
	return u
}

// ---------- Content cache ----------

// AppendContent adds an ingested content item for a user.
func (s *Store) AppendContent(userID string, item ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.content = append(u.content, item)
	s.logger.Debug("session content appended",
		"user", userID, "kind", item.Kind, "source", item.Source, "items", len(u.content))
}

// ContentSnapshot returns a copy of the user's content items.
func (s *Store) ContentSnapshot(userID string) []ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	out := make([]ContentItem, len(u.content))
	copy(out, u.content)
	return out
}

// FormatContent renders a user's content items as prompt context.
func (s *Store) FormatContent(userID string) string {
	items := s.ContentSnapshot(userID)
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, it := range items {
		if it.Err != "" {
			fmt.Fprintf(&b, "[%s from %s — could not be read: %s]\n", it.Kind, it.Source, it.Err)
			continue
		}
		fmt.Fprintf(&b, "[%s from %s]\n%s\n", it.Kind, it.Source, it.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clear wipes all session state for a user (reset command).
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	s.logger.Info("session state cleared", "user", userID)
}

// ---------- Latest image slot ----------

// SetLatestImage records the path of the most recent generated or
// uploaded image for a user, for the edit_image tool.
func (s *Store) SetLatestImage(userID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).latestImage = path
}

// LatestImage returns the latest image path for a user, or "".
func (s *Store) LatestImage(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ""
	}
	return u.latestImage
}

// ---------- Rate window ----------

// Allow reports whether a new response may be produced for the user at
// the given instant. Entries older than the window are evicted lazily.
func (s *Store) Allow(userID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.responses = evictOld(u.responses, now, s.limit.Window)
	return len(u.responses) < s.limit.MaxResponses
}

// Record notes that a response was sent to the user at the given instant.
func (s *Store) Record(userID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.responses = evictOld(u.responses, now, s.limit.Window)
	u.responses = append(u.responses, now)
	if len(u.responses) > s.limit.MaxResponses {
		u.responses = u.responses[len(u.responses)-s.limit.MaxResponses:]
	}
}

func evictOld(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}
