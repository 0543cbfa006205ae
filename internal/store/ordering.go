package store

import (
	"cmp"
	"slices"

	"threadview/internal/models"
)

// comparePostIDs orders sibling ids for display. Ids missing from posts sort
// last. Then deleted posts go after live ones, multireplies go after normal
// replies (oldest multireply first), higher like scores come first, and
// newer posts come before older ones. Equal posts fall back to ascending id.
func comparePostIDs(posts map[models.PostID]*models.Post, idA, idB models.PostID) int {
	postA, okA := posts[idA]
	postB, okB := posts[idB]
	switch {
	case !okA && !okB:
		return 0
	case !okB:
		return -1
	case !okA:
		return +1
	}

	if postA.IsDeleted != postB.IsDeleted {
		if postB.IsDeleted {
			return -1
		}
		return +1
	}

	multiA, multiB := postA.IsMultireply(), postB.IsMultireply()
	switch {
	case multiA && multiB:
		// Oldest first, so a multireply never lands above one it replies to.
		if c := cmp.Compare(postA.CreatedAtMs, postB.CreatedAtMs); c != 0 {
			return c
		}
	case multiA:
		return +1
	case multiB:
		return -1
	}

	if c := cmp.Compare(postB.LikeScore, postA.LikeScore); c != 0 {
		return c
	}
	if c := cmp.Compare(postB.CreatedAtMs, postA.CreatedAtMs); c != 0 {
		return c
	}
	return cmp.Compare(idA, idB)
}

// sortPostIDs sorts ids in place. The sort is stable so pairs of missing ids
// keep their relative order.
func (s *Store) sortPostIDs(ids []models.PostID) {
	posts := s.page.AllPosts
	slices.SortStableFunc(ids, func(a, b models.PostID) int {
		return comparePostIDs(posts, a, b)
	})
}

func (s *Store) recomputeTopLevelCommentIDs() {
	ids := []models.PostID{}
	for id, post := range s.page.AllPosts {
		if post.IsTopLevelComment() {
			ids = append(ids, id)
		}
	}
	s.sortPostIDs(ids)
	s.page.TopLevelCommentIDsSorted = ids
}
