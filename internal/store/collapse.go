package store

import (
	"threadview/internal/models"
	"threadview/internal/render"
)

const (
	// Replies taller than this many pixels get summarized even without
	// children of their own.
	tooHighPx = 150

	uncollapseMaxChildren      = 5
	uncollapseMaxGrandchildren = 3
	unsquashCount              = 5
)

// summarizeReplies collapses every reply below the top level that has
// replies of its own or renders too tall. It recomputes from current data,
// so running it again is harmless.
func (s *Store) summarizeReplies() {
	for _, id := range sortedPostIDs(s.page.AllPosts) {
		post := s.page.AllPosts[id]
		if id == models.BodyID || id == models.TitleID {
			continue
		}
		if post.ParentID != nil && *post.ParentID == models.BodyID {
			continue
		}
		if len(post.ChildIDsSorted) > 0 || s.ui.RenderedHeight(id) > tooHighPx {
			post.IsTreeCollapsed = models.CollapsedTruncated
			post.Summarize = true
			post.Summary = render.Summarize(post.SanitizedHTML, render.SummarizeRepliesMaxLength)
		}
	}
}

func (s *Store) collapseTree(postID models.PostID) {
	post, ok := s.ClonePost(postID)
	if !ok {
		s.logger.Warn("cannot collapse missing post", "post_id", postID)
		return
	}
	post.IsTreeCollapsed = models.CollapsedTruncated
	post.Summarize = true
	post.Summary = render.Summarize(post.SanitizedHTML, render.CollapseTreeMaxLength)
	s.updatePost(post, true)
}

// uncollapsePost expands a post, its first few children and their first few
// children, so the reader doesn't have to expand each level by hand.
func (s *Store) uncollapsePost(postID models.PostID) {
	post, ok := s.page.AllPosts[postID]
	if !ok {
		s.logger.Warn("cannot uncollapse missing post", "post_id", postID)
		return
	}

	touched := []models.PostID{postID}
	s.uncollapseOne(post)

	children := post.ChildIDsSorted
	for i := 0; i < min(len(children), uncollapseMaxChildren); i++ {
		child, ok := s.page.AllPosts[children[i]]
		if !ok {
			continue
		}
		s.uncollapseOne(child)
		touched = append(touched, child.PostID)

		grandchildren := child.ChildIDsSorted
		for j := 0; j < min(len(grandchildren), uncollapseMaxGrandchildren); j++ {
			grandchild, ok := s.page.AllPosts[grandchildren[j]]
			if !ok {
				continue
			}
			s.uncollapseOne(grandchild)
			touched = append(touched, grandchild.PostID)
		}
	}

	s.rememberPostsToQuickUpdate(touched...)
	s.ui.RestartGifs()
}

func (s *Store) uncollapseOne(post *models.Post) {
	expanded := post.Clone()
	expanded.IsTreeCollapsed = models.NotCollapsed
	expanded.IsPostCollapsed = models.NotCollapsed
	expanded.Summarize = false
	expanded.Squash = false
	s.storePost(expanded, true)
}

// unsquashTrees clears squash on postID and the siblings after it, up to
// unsquashCount posts. Ids missing from the tree are skipped and don't count.
func (s *Store) unsquashTrees(postID models.PostID) {
	post, ok := s.page.AllPosts[postID]
	if !ok {
		s.logger.Warn("cannot unsquash missing post", "post_id", postID)
		return
	}

	var siblings []models.PostID
	switch {
	case post.ParentID != nil && s.page.AllPosts[*post.ParentID] != nil:
		siblings = s.page.AllPosts[*post.ParentID].ChildIDsSorted
	case post.IsTopLevelComment():
		siblings = s.page.TopLevelCommentIDsSorted
	default:
		siblings = []models.PostID{postID}
	}

	numLeft := -1
	for _, siblingID := range siblings {
		sibling, ok := s.page.AllPosts[siblingID]
		if !ok {
			continue
		}
		if siblingID == postID {
			numLeft = unsquashCount
		}
		if numLeft == -1 {
			continue
		}
		sibling.Squash = false
		numLeft--
		if numLeft == 0 {
			break
		}
	}
}
