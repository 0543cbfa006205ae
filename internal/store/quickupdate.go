package store

import (
	"threadview/internal/models"
)

// rememberPostsToQuickUpdate switches the next render to quick mode and
// replaces postsToUpdate with what re-rendering the given posts needs: each
// post, all its ancestors (rendering recurses from the root), and the
// siblings listed before it (they draw connectors to it).
func (s *Store) rememberPostsToQuickUpdate(startPostIDs ...models.PostID) {
	page := s.page
	page.QuickUpdate = true
	page.PostsToUpdate = make(map[models.PostID]bool)
	for _, id := range startPostIDs {
		s.addQuickUpdateChain(id)
	}
	s.metrics.RecordQuickUpdate(len(page.PostsToUpdate))
}

func (s *Store) addQuickUpdateChain(startPostID models.PostID) {
	posts := s.page.AllPosts
	toUpdate := s.page.PostsToUpdate

	post, ok := posts[startPostID]
	if !ok {
		s.logger.Warn("cannot find post to quick update", "post_id", startPostID)
		return
	}

	if post.ParentID != nil {
		if parent, ok := posts[*post.ParentID]; ok {
			for _, siblingID := range parent.ChildIDsSorted {
				if siblingID == startPostID {
					break
				}
				toUpdate[siblingID] = true
			}
		}
	}

	visited := make(map[models.PostID]bool)
	for post != nil && !visited[post.PostID] {
		visited[post.PostID] = true
		toUpdate[post.PostID] = true
		if post.ParentID == nil {
			break
		}
		post = posts[*post.ParentID]
	}
}
