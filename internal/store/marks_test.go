package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadview/internal/models"
)

func TestNextMark(t *testing.T) {
	tests := []struct {
		name        string
		current     models.Mark
		hasMark     bool
		consecutive bool
		want        models.Mark
		wantKeep    bool
	}{
		{"fresh, unmarked", 0, false, false, models.FirstStarMark, true},
		{"fresh, read", models.ManualReadMark, true, false, models.FirstStarMark, true},
		{"fresh, first star", models.FirstStarMark, true, false, models.FirstStarMark + 1, true},
		{"fresh, last star", models.LastStarMark, true, false, models.ManualReadMark, true},
		{"again, read", models.ManualReadMark, true, true, 0, false},
		{"again, unmarked", 0, false, true, models.FirstStarMark, true},
		{"again, first star", models.FirstStarMark, true, true, models.FirstStarMark + 1, true},
		{"again, last star", models.LastStarMark, true, true, models.ManualReadMark, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := nextMark(tt.current, tt.hasMark, tt.consecutive)
			assert.Equal(t, tt.wantKeep, keep)
			if tt.wantKeep {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCycleToNextMark_FreshClickStars(t *testing.T) {
	s := newTestStore(seedPage(reply(7, 1, 0, 100)))

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))

	assert.Equal(t, models.FirstStarMark, s.page.User.MarksByPostID[7])
}

func TestCycleToNextMark_ConsecutiveClicksWalkFullCycle(t *testing.T) {
	s := newTestStore(seedPage(reply(7, 1, 0, 100)))
	marks := s.page.User.MarksByPostID

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))
	assert.Equal(t, models.FirstStarMark, marks[7])

	for want := models.FirstStarMark + 1; want <= models.LastStarMark; want++ {
		require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))
		assert.Equal(t, want, s.page.User.MarksByPostID[7])
	}

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))
	assert.Equal(t, models.ManualReadMark, s.page.User.MarksByPostID[7])

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))
	_, marked := s.page.User.MarksByPostID[7]
	assert.False(t, marked)

	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))
	assert.Equal(t, models.FirstStarMark, s.page.User.MarksByPostID[7])
}

func TestCycleToNextMark_OtherPostResetsConsecutive(t *testing.T) {
	s := newTestStore(seedPage(reply(7, 1, 0, 100), reply(8, 1, 0, 100)))
	s.page.User.MarksByPostID[7] = models.ManualReadMark

	// A click elsewhere in between makes the next click on 7 a fresh one,
	// which stars instead of clearing.
	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 8}))
	require.NoError(t, s.Dispatch(CycleToNextMark{PostID: 7}))

	assert.Equal(t, models.FirstStarMark, s.page.User.MarksByPostID[7])
}

func TestMarkPostAsRead(t *testing.T) {
	s := newTestStore(seedPage(reply(7, 1, 0, 100), reply(8, 1, 0, 100), reply(9, 1, 0, 100)))
	user := s.page.User
	user.MarksByPostID[9] = models.FirstStarMark

	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 7, Manually: true}))
	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 8}))
	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 8}))
	require.NoError(t, s.Dispatch(MarkPostAsRead{PostID: 9, Manually: true}))

	assert.Equal(t, models.ManualReadMark, user.MarksByPostID[7])
	_, marked := user.MarksByPostID[8]
	assert.False(t, marked)
	assert.Equal(t, ids(8), user.PostIDsAutoReadNow)
	assert.Equal(t, models.FirstStarMark, user.MarksByPostID[9])
}
