package store

import (
	"slices"

	"threadview/internal/models"
)

// updatePost stores a new or changed post, keeps the parent's child list and
// the top-level list sorted, and marks the touched posts for re-render.
// isCollapsing means the caller is only toggling client-side collapse state,
// so its collapse flags win over the stored ones.
func (s *Store) updatePost(post *models.Post, isCollapsing bool) {
	s.storePost(post, isCollapsing)
	s.rememberPostsToQuickUpdate(post.PostID)
	s.ui.RestartGifs()
}

func (s *Store) storePost(incoming *models.Post, isCollapsing bool) {
	page := s.page
	s.refreshNow()

	post := incoming.Clone()
	post.ChildIDsSorted = dedupeIDs(post.ChildIDsSorted)
	if post.ParentID != nil && *post.ParentID == post.PostID {
		s.logger.Warn("post lists itself as parent, treating as top level", "post_id", post.PostID)
		post.ParentID = nil
	}

	old, exists := page.AllPosts[post.PostID]
	if exists && !isCollapsing {
		// Collapse state is client-local and survives content refreshes.
		post.IsTreeCollapsed = old.IsTreeCollapsed
		post.IsPostCollapsed = old.IsPostCollapsed
		post.Squash = old.Squash
		post.Summarize = old.Summarize
		post.Summary = old.Summary
	} else if !exists {
		page.NumPosts++
		if post.PostID != models.TitleID {
			page.NumPostsExclTitle++
		}
	}

	if !exists {
		// Replies can arrive before the post they reply to.
		for _, id := range sortedPostIDs(page.AllPosts) {
			if sameParent(page.AllPosts[id].ParentID, &post.PostID) && !slices.Contains(post.ChildIDsSorted, id) {
				post.ChildIDsSorted = append(post.ChildIDsSorted, id)
			}
		}
	} else {
		post.ChildIDsSorted = s.mergeChildIDs(post, old.ChildIDsSorted)
		if old.ParentID != nil && !sameParent(old.ParentID, post.ParentID) {
			if oldParent, ok := page.AllPosts[*old.ParentID]; ok {
				oldParent.ChildIDsSorted = slices.DeleteFunc(oldParent.ChildIDsSorted, func(id models.PostID) bool {
					return id == post.PostID
				})
			}
		}
	}

	page.AllPosts[post.PostID] = post
	s.sortPostIDs(post.ChildIDsSorted)

	if post.ParentID != nil {
		if parent, ok := page.AllPosts[*post.ParentID]; ok {
			if !slices.Contains(parent.ChildIDsSorted, post.PostID) {
				parent.ChildIDsSorted = slices.Insert(parent.ChildIDsSorted, 0, post.PostID)
			}
			// Likes and deletion change the order, so sort even when already listed.
			s.sortPostIDs(parent.ChildIDsSorted)
		}
	}

	if post.IsTopLevelComment() || (exists && old.IsTopLevelComment()) {
		s.recomputeTopLevelCommentIDs()
	}
}

// mergeChildIDs keeps children the store already knew about that still
// point at this post, so a refresh without a full child list loses nothing.
// Ids missing from the map are kept as tombstones.
func (s *Store) mergeChildIDs(post *models.Post, oldChildIDs []models.PostID) []models.PostID {
	merged := post.ChildIDsSorted
	for _, childID := range oldChildIDs {
		if slices.Contains(merged, childID) {
			continue
		}
		child, ok := s.page.AllPosts[childID]
		if !ok || sameParent(child.ParentID, &post.PostID) {
			merged = append(merged, childID)
		}
	}
	return merged
}

func sameParent(a, b *models.PostID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ClonePost returns a deep copy of a stored post.
func (s *Store) ClonePost(postID models.PostID) (*models.Post, bool) {
	post, ok := s.page.AllPosts[postID]
	if !ok {
		return nil, false
	}
	return post.Clone(), true
}
