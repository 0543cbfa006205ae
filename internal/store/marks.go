package store

import (
	"slices"

	"threadview/internal/models"
)

func (s *Store) markPostAsRead(postID models.PostID, manually bool) {
	user := s.page.User
	_, marked := user.MarksByPostID[postID]
	switch {
	case marked:
		// Every mark already means read.
	case manually:
		user.MarksByPostID[postID] = models.ManualReadMark
	case !slices.Contains(user.PostIDsAutoReadNow, postID):
		user.PostIDsAutoReadNow = append(user.PostIDsAutoReadNow, postID)
	}
	s.rememberPostsToQuickUpdate(postID)
}

func (s *Store) cycleToNextMark(postID models.PostID) {
	user := s.page.User
	current, hasMark := user.MarksByPostID[postID]
	consecutive := s.lastPostIDMarkCycled != nil && *s.lastPostIDMarkCycled == postID

	next, keep := nextMark(current, hasMark, consecutive)
	if keep {
		user.MarksByPostID[postID] = next
	} else {
		delete(user.MarksByPostID, postID)
	}
	s.lastPostIDMarkCycled = &postID
	s.rememberPostsToQuickUpdate(postID)
}

// nextMark is the mark cycle. The first click on a post stars it; repeated
// clicks on the same post also pass through read and unmarked. keep is
// false when the post should end up without a mark.
func nextMark(current models.Mark, hasMark, consecutive bool) (next models.Mark, keep bool) {
	if hasMark && current == 0 {
		hasMark = false
	}
	switch {
	case consecutive && hasMark && current == models.ManualReadMark:
		return 0, false
	case !hasMark || current == models.ManualReadMark:
		return models.FirstStarMark, true
	case current < models.LastStarMark:
		return current + 1, true
	default:
		return models.ManualReadMark, true
	}
}
