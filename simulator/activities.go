package simulator

import (
	"context"
	"fmt"
	"time"

	"threadview/internal/models"
	"threadview/internal/render"
	"threadview/internal/store"
)

// act rolls one activity for the reader.
func (s *Simulator) act(ctx context.Context, reader *SimulatedReader) error {
	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	c := s.config
	switch {
	case roll < c.ReplyChance:
		return s.replyToPost(ctx, reader)
	case roll < c.ReplyChance+c.VoteChance:
		return s.voteOnPost(ctx, reader)
	case roll < c.ReplyChance+c.VoteChance+c.ReadChance:
		return s.readPost(ctx, reader)
	case roll < c.ReplyChance+c.VoteChance+c.ReadChance+c.MarkChance:
		return s.cycleMark(ctx, reader)
	case roll < c.ReplyChance+c.VoteChance+c.ReadChance+c.MarkChance+c.CollapseChance:
		return s.toggleCollapse(ctx, reader)
	}
	return nil
}

// pickPost returns a known post. Older posts get picked far more often,
// the way early comments in a thread draw most replies.
func (s *Simulator) pickPost() *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[s.postIDs[s.zipfIndex(len(s.postIDs))]].Clone()
}

// zipfIndex returns an index in [0, n). Callers hold s.mu.
func (s *Simulator) zipfIndex(n int) int {
	if n <= 1 {
		return 0
	}
	zipf := newZipf(s.rng, s.config.ZipfS, uint64(n-1))
	return int(zipf.Uint64())
}

func (s *Simulator) remember(post *models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.posts[post.PostID]; !known {
		s.postIDs = append(s.postIDs, post.PostID)
	}
	s.posts[post.PostID] = post.Clone()
}

func (s *Simulator) replyToPost(ctx context.Context, reader *SimulatedReader) error {
	parent := s.pickPost()
	if parent.PostID == models.TitleID {
		return nil
	}

	s.mu.Lock()
	postID := s.nextPostID
	s.nextPostID++
	s.mu.Unlock()

	source := fmt.Sprintf("Reply **#%d** to #%d from user %d.", postID, parent.PostID, reader.UserID)
	html, err := render.MarkdownToHTML(source)
	if err != nil {
		return err
	}
	post := &models.Post{
		PostID:        postID,
		ParentID:      models.ParentOf(parent.PostID),
		CreatedAtMs:   time.Now().UnixMilli(),
		AuthorID:      reader.UserID,
		Source:        source,
		SanitizedHTML: html,
	}
	if err := s.sendAsPageUser(ctx, reader, store.UpdatePost{Post: post}); err != nil {
		return err
	}
	reader.Posts = append(reader.Posts, postID)
	s.remember(post)
	return nil
}

// voteOnPost likes a post, or takes back an earlier like.
func (s *Simulator) voteOnPost(ctx context.Context, reader *SimulatedReader) error {
	post := s.pickPost()
	doWhat := models.CreateVote
	if reader.Voted[post.PostID] {
		doWhat = models.RemoveVote
		post.LikeScore--
	} else {
		post.LikeScore++
	}
	action := store.VoteOnPost{Post: post, DoWhat: doWhat, VoteType: models.VoteLike}
	if err := s.sendAsPageUser(ctx, reader, action); err != nil {
		return err
	}
	reader.Voted[post.PostID] = doWhat == models.CreateVote
	s.remember(post)
	return nil
}

func (s *Simulator) readPost(ctx context.Context, reader *SimulatedReader) error {
	post := s.pickPost()
	s.mu.Lock()
	manually := s.rng.Float64() < 0.1
	s.mu.Unlock()
	return s.sendAction(ctx, reader, store.MarkPostAsRead{PostID: post.PostID, Manually: manually})
}

func (s *Simulator) cycleMark(ctx context.Context, reader *SimulatedReader) error {
	post := s.pickPost()
	return s.sendAction(ctx, reader, store.CycleToNextMark{PostID: post.PostID})
}

// toggleCollapse collapses a tree the reader has open, or opens one they
// collapsed. Every tenth toggle also summarizes replies.
func (s *Simulator) toggleCollapse(ctx context.Context, reader *SimulatedReader) error {
	post := s.pickPost()
	var action store.Action = store.CollapseTree{Post: post}
	if reader.Collapsed[post.PostID] {
		action = store.UncollapsePost{Post: post}
	}
	if err := s.sendAction(ctx, reader, action); err != nil {
		return err
	}
	reader.Collapsed[post.PostID] = !reader.Collapsed[post.PostID]

	s.mu.Lock()
	summarize := s.rng.Intn(10) == 0
	s.mu.Unlock()
	if summarize {
		return s.sendAction(ctx, reader, store.SummarizeReplies{})
	}
	return nil
}
