// Package store holds the in-memory post tree for one page view and applies
// actions to it one at a time.
package store

import (
	"log/slog"
	"slices"
	"time"

	"threadview/internal/models"
	"threadview/internal/utils"
)

// Store owns a page's state. It is not safe for concurrent use; callers
// serialize access (the engine actor does this for the server).
type Store struct {
	page *models.PageStore

	// Set by CycleToNextMark so a repeated click on the same post walks the
	// whole mark cycle.
	lastPostIDMarkCycled *models.PostID

	listeners   []listener
	dispatching bool

	clock   Clock
	ui      UI
	metrics *utils.MetricsCollector
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for the page's `now` field.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithUI sets the port used for presentation side effects.
func WithUI(ui UI) Option {
	return func(s *Store) {
		s.ui = ui
	}
}

func WithMetrics(metrics *utils.MetricsCollector) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store from server seed data. The seed is copied, and its
// child lists and top-level ordering are rebuilt so the tree starts out
// consistent.
func New(seed *models.PageStore, opts ...Option) *Store {
	s := &Store{
		clock:  realClock{},
		ui:     NoopUI{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = utils.NewMetricsCollector()
	}

	if seed == nil {
		s.page = models.NewPageStore("")
	} else {
		s.page = seed.Clone()
	}
	s.normalize()
	s.refreshNow()
	return s
}

func (s *Store) normalize() {
	page := s.page
	if page.AllPosts == nil {
		page.AllPosts = make(map[models.PostID]*models.Post)
	}
	if page.PostsToUpdate == nil {
		page.PostsToUpdate = make(map[models.PostID]bool)
	}
	if page.User == nil {
		page.User = models.NewGuestUser()
	}
	page.User.EnsureMaps()

	for id, post := range page.AllPosts {
		if post == nil {
			delete(page.AllPosts, id)
			continue
		}
		post.PostID = id
		post.ChildIDsSorted = dedupeIDs(post.ChildIDsSorted)
	}

	// Every post with a present parent must be listed by that parent.
	for _, id := range sortedPostIDs(page.AllPosts) {
		post := page.AllPosts[id]
		if post.ParentID == nil || *post.ParentID == id {
			continue
		}
		if parent, ok := page.AllPosts[*post.ParentID]; ok && !slices.Contains(parent.ChildIDsSorted, id) {
			parent.ChildIDsSorted = append(parent.ChildIDsSorted, id)
		}
	}
	for _, post := range page.AllPosts {
		s.sortPostIDs(post.ChildIDsSorted)
	}
	s.recomputeTopLevelCommentIDs()

	if page.NumPosts == 0 {
		page.NumPosts = len(page.AllPosts)
		page.NumPostsExclTitle = len(page.AllPosts)
		if _, ok := page.AllPosts[models.TitleID]; ok {
			page.NumPostsExclTitle--
		}
	}
}

func (s *Store) refreshNow() {
	s.page.Now = s.clock.Now().UnixMilli()
}

func sortedPostIDs(posts map[models.PostID]*models.Post) []models.PostID {
	ids := make([]models.PostID, 0, len(posts))
	for id := range posts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func dedupeIDs(ids []models.PostID) []models.PostID {
	if ids == nil {
		return []models.PostID{}
	}
	seen := make(map[models.PostID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Clock is the store's source of the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
