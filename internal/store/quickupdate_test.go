package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadview/internal/models"
)

func postsToUpdate(s *testStore) []models.PostID {
	return s.Changes().PostsToUpdate
}

func TestQuickUpdate_AncestorsAndEarlierSiblings(t *testing.T) {
	s := newTestStore(seedPage(
		reply(10, 1, 0, 100),
		reply(20, 10, 0, 100),
		reply(31, 20, 9, 100),
		reply(30, 20, 5, 100),
		reply(32, 20, 1, 100),
	))
	require.Equal(t, ids(31, 30, 32), s.children(20))

	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 30, Manually: true}))

	assert.Equal(t, ids(1, 10, 20, 30, 31), postsToUpdate(s))
}

func TestQuickUpdate_EveryAncestorOfDeepReply(t *testing.T) {
	posts := []*models.Post{}
	parent := 1
	for id := 100; id < 120; id++ {
		posts = append(posts, reply(id, parent, 0, int64(id)))
		parent = id
	}
	s := newTestStore(seedPage(posts...))

	require.NoError(t, s.Dispatch(UpdatePost{Post: reply(200, 119, 0, 1)}))

	got := postsToUpdate(s)
	assert.Contains(t, got, models.PostID(1))
	for id := 100; id < 120; id++ {
		assert.Contains(t, got, models.PostID(id))
	}
	assert.Contains(t, got, models.PostID(200))
}

func TestQuickUpdate_MissingPostLeavesEmptySet(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100)))
	var quick bool
	s.AddChangeListener(func() { quick = s.Changes().QuickUpdate })

	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 404}))

	assert.True(t, quick)
	assert.Empty(t, postsToUpdate(s))
}

func TestQuickUpdate_StopsOnParentCycle(t *testing.T) {
	page := seedPage(reply(10, 11, 0, 100), reply(11, 10, 0, 100))
	s := newTestStore(page)

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 10}))

	assert.ElementsMatch(t, ids(10, 11), postsToUpdate(s))
}

func TestQuickUpdate_ReplacesPreviousSet(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100), reply(20, -1, 0, 100)))

	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 10, Manually: true}))
	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 20, Manually: true}))

	assert.Equal(t, ids(20), postsToUpdate(s))
}
