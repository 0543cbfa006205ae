package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PostID identifies a post within one page.
type PostID int

// Reserved post ids. Every page has a title post and a body post; all other
// posts are comments.
const (
	TitleID PostID = 0
	BodyID  PostID = 1
)

// CollapseState is either not collapsed (the empty string) or a reason tag.
// On the wire it is `false` or the reason string.
type CollapseState string

const (
	NotCollapsed       CollapseState = ""
	CollapsedTruncated CollapseState = "Truncated"
)

// IsCollapsed reports whether a reason tag is set.
func (c CollapseState) IsCollapsed() bool {
	return c != NotCollapsed
}

func (c CollapseState) MarshalJSON() ([]byte, error) {
	if c == NotCollapsed {
		return []byte("false"), nil
	}
	return json.Marshal(string(c))
}

func (c *CollapseState) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "false", "null", `""`:
		*c = NotCollapsed
		return nil
	case "true":
		// Old clients sent a bare true; treat it as truncated.
		*c = CollapsedTruncated
		return nil
	}
	var reason string
	if err := json.Unmarshal(data, &reason); err != nil {
		return fmt.Errorf("collapse state must be false or a reason string: %w", err)
	}
	*c = CollapseState(reason)
	return nil
}

// Post is a node in the discussion tree. Relations are ids into the page's
// post map, never pointers.
type Post struct {
	PostID            PostID        `json:"postId" yaml:"postId"`
	ParentID          *PostID       `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	ChildIDsSorted    []PostID      `json:"childIdsSorted" yaml:"childIdsSorted,omitempty"`
	CreatedAtMs       int64         `json:"createdAt" yaml:"createdAt"`
	LikeScore         float64       `json:"likeScore" yaml:"likeScore"`
	MultireplyPostIDs []PostID      `json:"multireplyPostIds" yaml:"multireplyPostIds,omitempty"`
	AuthorID          int           `json:"authorId,omitempty" yaml:"authorId,omitempty"`
	AuthorUsername    string        `json:"authorUsername,omitempty" yaml:"authorUsername,omitempty"`
	IsDeleted         bool          `json:"isDeleted,omitempty" yaml:"isDeleted,omitempty"`
	IsTreeCollapsed   CollapseState `json:"isTreeCollapsed" yaml:"isTreeCollapsed,omitempty"`
	IsPostCollapsed   CollapseState `json:"isPostCollapsed" yaml:"isPostCollapsed,omitempty"`
	Summarize         bool          `json:"summarize,omitempty" yaml:"summarize,omitempty"`
	Summary           string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Squash            bool          `json:"squash,omitempty" yaml:"squash,omitempty"`
	SanitizedHTML     string        `json:"sanitizedHtml" yaml:"sanitizedHtml,omitempty"`
	Source            string        `json:"source,omitempty" yaml:"source,omitempty"`
}

// ParentOf returns a pointer suitable for Post.ParentID.
func ParentOf(id PostID) *PostID {
	return &id
}

// HasParent reports whether the post replies to another post.
func (p *Post) HasParent() bool {
	return p.ParentID != nil
}

// IsMultireply reports whether the post replies to more than its parent.
func (p *Post) IsMultireply() bool {
	return len(p.MultireplyPostIDs) > 0
}

// IsTopLevelComment reports whether the post is a comment without a parent.
// The title and body posts are never comments.
func (p *Post) IsTopLevelComment() bool {
	return p.ParentID == nil && p.PostID != BodyID && p.PostID != TitleID
}

// Clone returns a deep copy.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	if p.ParentID != nil {
		parentID := *p.ParentID
		c.ParentID = &parentID
	}
	c.ChildIDsSorted = clonePostIDs(p.ChildIDsSorted)
	c.MultireplyPostIDs = clonePostIDs(p.MultireplyPostIDs)
	return &c
}

func clonePostIDs(ids []PostID) []PostID {
	if ids == nil {
		return nil
	}
	out := make([]PostID, len(ids))
	copy(out, ids)
	return out
}
