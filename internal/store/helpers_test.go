package store

import (
	"io"
	"log/slog"
	"time"

	"threadview/internal/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingUI struct {
	staffClasses []bool
	reloads      int
	layouts      []bool
	gifRestarts  int
	heights      map[models.PostID]int
}

func (ui *recordingUI) SetStaffClasses(isStaff bool) {
	ui.staffClasses = append(ui.staffClasses, isStaff)
}

func (ui *recordingUI) ReloadPage() {
	ui.reloads++
}

func (ui *recordingUI) LayoutChanged(horizontal bool) {
	ui.layouts = append(ui.layouts, horizontal)
}

func (ui *recordingUI) RestartGifs() {
	ui.gifRestarts++
}

func (ui *recordingUI) RenderedHeight(postID models.PostID) int {
	return ui.heights[postID]
}

// reply builds a post. parent < 0 means no parent.
func reply(id, parent int, likes float64, createdAt int64) *models.Post {
	p := &models.Post{
		PostID:        models.PostID(id),
		CreatedAtMs:   createdAt,
		LikeScore:     likes,
		SanitizedHTML: "<p>post text</p>",
	}
	if parent >= 0 {
		p.ParentID = models.ParentOf(models.PostID(parent))
	}
	return p
}

func seedPage(posts ...*models.Post) *models.PageStore {
	page := models.NewPageStore("page-1")
	page.AllPosts[models.TitleID] = reply(int(models.TitleID), -1, 0, 0)
	page.AllPosts[models.BodyID] = reply(int(models.BodyID), -1, 0, 0)
	for _, p := range posts {
		page.AllPosts[p.PostID] = p
	}
	return page
}

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testStore struct {
	*Store
	clock *fakeClock
	ui    *recordingUI
}

func newTestStore(page *models.PageStore) *testStore {
	clock := &fakeClock{now: testStart}
	ui := &recordingUI{heights: map[models.PostID]int{}}
	s := New(page,
		WithClock(clock),
		WithUI(ui),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &testStore{Store: s, clock: clock, ui: ui}
}

func (s *testStore) post(id int) *models.Post {
	return s.page.AllPosts[models.PostID(id)]
}

func (s *testStore) children(id int) []models.PostID {
	return s.page.AllPosts[models.PostID(id)].ChildIDsSorted
}

func ids(values ...int) []models.PostID {
	out := make([]models.PostID, len(values))
	for i, v := range values {
		out[i] = models.PostID(v)
	}
	return out
}
