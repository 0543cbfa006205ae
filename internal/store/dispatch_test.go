package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadview/internal/models"
	"threadview/internal/utils"
)

func TestDispatch_EmitsOncePerAction(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100)))
	calls := 0
	s.AddChangeListener(func() { calls++ })

	require.NoError(t, s.Dispatch(PinPage{PinOrder: 3, PinWhere: models.PinGlobally}))
	require.NoError(t, s.Dispatch(UncollapsePost{Post: &models.Post{PostID: 10}}))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 3, s.page.PinOrder)
}

func TestDispatch_UnknownActionSucceedsWithoutNotifying(t *testing.T) {
	s := newTestStore(seedPage())
	calls := 0
	s.AddChangeListener(func() { calls++ })

	action, err := DecodeAction([]byte(`{"actionType":"Teleport","where":"moon"}`))
	require.NoError(t, err)

	assert.NoError(t, s.Dispatch(action))
	assert.NoError(t, s.Dispatch(nil))
	assert.Zero(t, calls)
}

func TestDispatch_RejectsReentrantDispatch(t *testing.T) {
	s := newTestStore(seedPage())
	var innerErr error
	s.AddChangeListener(func() {
		innerErr = s.Dispatch(NewUserAccountCreated{})
	})

	require.NoError(t, s.Dispatch(PinPage{PinOrder: 1}))

	require.Error(t, innerErr)
	assert.True(t, utils.IsErrorCode(innerErr, utils.ErrDispatchInProgress))
	assert.False(t, s.page.NewUserAccountCreated)

	// The guard is released afterwards.
	s.listeners = nil
	require.NoError(t, s.Dispatch(NewUserAccountCreated{}))
	assert.True(t, s.page.NewUserAccountCreated)
}

func TestDispatch_PanickingListenerDoesNotStopOthers(t *testing.T) {
	s := newTestStore(seedPage())
	var order []string
	s.AddChangeListener(func() { order = append(order, "first") })
	s.AddChangeListener(func() { panic("boom") })
	s.AddChangeListener(func() { order = append(order, "third") })

	require.NoError(t, s.Dispatch(UnpinPage{}))

	assert.Equal(t, []string{"first", "third"}, order)
}

func TestDispatch_QuickUpdateResetAfterNotify(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100)))
	var seen []bool
	s.AddChangeListener(func() { seen = append(seen, s.Changes().QuickUpdate) })

	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 10}))
	require.NoError(t, s.Dispatch(ChangeSiteStatus{NewStatus: models.SiteStatusActive}))

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, s.page.QuickUpdate)
	assert.Equal(t, models.SiteStatusActive, s.page.SiteStatus)
}

func TestRemoveChangeListener(t *testing.T) {
	s := newTestStore(seedPage())
	calls := 0
	id := s.AddChangeListener(func() { calls++ })

	assert.True(t, s.RemoveChangeListener(id))
	assert.False(t, s.RemoveChangeListener(id))
	require.NoError(t, s.Dispatch(UnpinPage{}))
	assert.Zero(t, calls)
}

func TestDispatch_LoginMergesUserData(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100)))
	var quick []bool
	s.AddChangeListener(func() { quick = append(quick, s.Changes().QuickUpdate) })

	user := &models.User{
		UserID:      42,
		Username:    "maja",
		IsModerator: true,
		UnapprovedPosts: map[models.PostID]*models.Post{
			11: reply(11, 10, 0, 200),
		},
	}
	require.NoError(t, s.Dispatch(Login{User: user}))

	assert.Equal(t, []bool{false}, quick)
	assert.True(t, s.page.UserSpecificDataAdded)
	assert.Equal(t, 42, s.page.User.UserID)
	assert.NotNil(t, s.page.User.MarksByPostID)
	assert.Equal(t, []bool{true}, s.ui.staffClasses)
	assert.Equal(t, ids(11), s.children(10))
}

func TestDispatch_LoginWithoutUserKeepsCurrent(t *testing.T) {
	page := seedPage()
	page.User.Username = "already-here"
	s := newTestStore(page)

	require.NoError(t, s.Dispatch(Login{}))

	assert.Equal(t, "already-here", s.page.User.Username)
	assert.True(t, s.page.UserSpecificDataAdded)
	assert.Empty(t, s.ui.staffClasses)
}

func TestDispatch_Logout(t *testing.T) {
	page := seedPage()
	page.User = &models.User{UserID: 42, IsAdmin: true}
	s := newTestStore(page)

	require.NoError(t, s.Dispatch(Logout{}))
	assert.Zero(t, s.ui.reloads)
	assert.False(t, s.page.User.IsLoggedIn())
	assert.Equal(t, []bool{false}, s.ui.staffClasses)

	s.page.UserMustBeApproved = true
	require.NoError(t, s.Dispatch(Logout{}))
	assert.Equal(t, 1, s.ui.reloads)
}

func TestDispatch_EditTitleAndSettingsFlipsLayout(t *testing.T) {
	s := newTestStore(seedPage())
	s.page.PageRole = models.PageRoleDiscussion
	var quick []bool
	s.AddChangeListener(func() { quick = append(quick, s.Changes().QuickUpdate) })

	title := reply(int(models.TitleID), -1, 0, 0)
	title.SanitizedHTML = "New title"
	require.NoError(t, s.Dispatch(EditTitleAndSettings{
		NewTitlePost:          title,
		NewAncestorsRootFirst: []models.Ancestor{{PageID: "forum", Title: "Forum", Path: "/"}},
		NewPageRole:           models.PageRoleMindMap,
	}))

	assert.Equal(t, []bool{false}, quick)
	assert.Equal(t, []bool{true}, s.ui.layouts)
	assert.True(t, s.page.HorizontalLayout)
	assert.Equal(t, models.PageRoleMindMap, s.page.PageRole)
	assert.Equal(t, "forum", s.page.ParentPageID)
	assert.Equal(t, "New title", s.post(int(models.TitleID)).SanitizedHTML)

	// No role change: role kept, layout falls back to the site default.
	require.NoError(t, s.Dispatch(EditTitleAndSettings{NewTitlePost: title}))
	assert.Equal(t, models.PageRoleMindMap, s.page.PageRole)
	assert.False(t, s.page.HorizontalLayout)
	assert.Equal(t, []bool{true, false}, s.ui.layouts)
	assert.Empty(t, s.page.ParentPageID)
}

func TestDispatch_EditTitleWithoutLayoutFlipIsQuick(t *testing.T) {
	s := newTestStore(seedPage())
	var quick []bool
	s.AddChangeListener(func() { quick = append(quick, s.Changes().QuickUpdate) })

	require.NoError(t, s.Dispatch(EditTitleAndSettings{NewTitlePost: reply(int(models.TitleID), -1, 0, 0)}))

	assert.Equal(t, []bool{true}, quick)
	assert.Empty(t, s.ui.layouts)
}

func TestDispatch_VoteOnPost(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 5, 100), reply(11, 1, 1, 200)))
	votes := s.page.User.Votes

	liked := reply(11, 1, 9, 200)
	require.NoError(t, s.Dispatch(VoteOnPost{Post: liked, DoWhat: models.CreateVote, VoteType: models.VoteLike}))
	require.NoError(t, s.Dispatch(VoteOnPost{Post: liked, DoWhat: models.CreateVote, VoteType: models.VoteWrong}))
	require.NoError(t, s.Dispatch(VoteOnPost{Post: liked, DoWhat: models.CreateVote, VoteType: models.VoteLike}))
	assert.Equal(t, []models.VoteType{models.VoteLike, models.VoteWrong, models.VoteLike}, votes[11])
	assert.Equal(t, ids(11, 10), s.children(1))

	require.NoError(t, s.Dispatch(VoteOnPost{Post: liked, DoWhat: models.RemoveVote, VoteType: models.VoteLike}))
	assert.Equal(t, []models.VoteType{models.VoteWrong}, votes[11])
}

func TestDispatch_PageFields(t *testing.T) {
	s := newTestStore(seedPage())
	doneAt := int64(1234)

	require.NoError(t, s.Dispatch(CreateForumCategory{
		AllCategories:   []models.Category{{ID: 2, Name: "Ideas", Slug: "ideas"}},
		NewCategoryID:   2,
		NewCategorySlug: "ideas",
	}))
	require.NoError(t, s.Dispatch(SetPageNotfLevel{NewLevel: models.NotfLevelWatching}))
	require.NoError(t, s.Dispatch(TogglePageIsDone{DoneAtMs: &doneAt}))
	require.NoError(t, s.Dispatch(TogglePageClosed{}))
	require.NoError(t, s.Dispatch(SetHorizontalLayout{Enabled: true}))

	doneAt = 0
	assert.Equal(t, "ideas", s.page.NewCategorySlug)
	assert.Len(t, s.Categories(), 1)
	assert.Equal(t, models.NotfLevelWatching, s.page.User.RolePageSettings.NotfLevel)
	require.NotNil(t, s.page.PageDoneAtMs)
	assert.Equal(t, int64(1234), *s.page.PageDoneAtMs)
	assert.Nil(t, s.page.PageClosedAtMs)
	assert.True(t, s.page.HorizontalLayout)
	assert.Equal(t, 1, s.ui.gifRestarts)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := newTestStore(seedPage(reply(10, 1, 0, 100)))

	snapshot := s.AllData()
	snapshot.AllPosts[10].LikeScore = 100
	snapshot.AllPosts[models.BodyID].ChildIDsSorted = nil
	s.User().Votes[10] = []models.VoteType{models.VoteLike}

	assert.Zero(t, s.post(10).LikeScore)
	assert.Equal(t, ids(10), s.children(1))
	assert.Empty(t, s.page.User.Votes)
	assert.Equal(t, "page-1", s.PageID())
}
