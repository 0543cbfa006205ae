package models

// Mark is a per-post reader mark. A post without an entry in
// User.MarksByPostID has no mark.
type Mark int

const (
	ManualReadMark Mark = 1
	FirstStarMark  Mark = 2
	LastStarMark   Mark = 3
)

// IsStar reports whether the mark is one of the star levels.
func (m Mark) IsStar() bool {
	return m >= FirstStarMark && m <= LastStarMark
}

// RolePageSettings holds the user's per-page preferences.
type RolePageSettings struct {
	NotfLevel NotfLevel `json:"notfLevel,omitempty" yaml:"notfLevel,omitempty"`
}

// User is the session user attached to a page store. It is replaced
// wholesale on login and logout.
type User struct {
	UserID                 int                   `json:"userId,omitempty" yaml:"userId" db:"user_id"`
	Username               string                `json:"username,omitempty" yaml:"username" db:"username"`
	IsAdmin                bool                  `json:"isAdmin,omitempty" yaml:"isAdmin,omitempty" db:"is_admin"`
	IsModerator            bool                  `json:"isModerator,omitempty" yaml:"isModerator,omitempty" db:"is_moderator"`
	PermsOnPage            map[string]bool       `json:"permsOnPage" yaml:"permsOnPage,omitempty" db:"-"`
	RolePageSettings       RolePageSettings      `json:"rolePageSettings" yaml:"rolePageSettings,omitempty" db:"-"`
	Votes                  map[PostID][]VoteType `json:"votes" yaml:"votes,omitempty" db:"-"`
	UnapprovedPosts        map[PostID]*Post      `json:"unapprovedPosts" yaml:"unapprovedPosts,omitempty" db:"-"`
	PostIDsAutoReadLongAgo []PostID              `json:"postIdsAutoReadLongAgo" yaml:"postIdsAutoReadLongAgo,omitempty" db:"-"`
	PostIDsAutoReadNow     []PostID              `json:"postIdsAutoReadNow" yaml:"postIdsAutoReadNow,omitempty" db:"-"`
	MarksByPostID          map[PostID]Mark       `json:"marksByPostId" yaml:"marksByPostId,omitempty" db:"-"`
}

// NewGuestUser returns the user a page has before anyone logs in, and after
// logout.
func NewGuestUser() *User {
	u := &User{}
	u.EnsureMaps()
	return u
}

// IsLoggedIn reports whether the user is a real account.
func (u *User) IsLoggedIn() bool {
	return u != nil && u.UserID != 0
}

// IsStaff reports whether the user is an admin or moderator.
func (u *User) IsStaff() bool {
	return u != nil && (u.IsAdmin || u.IsModerator)
}

// EnsureMaps allocates nil maps and slices so handlers can write to them.
func (u *User) EnsureMaps() {
	if u.PermsOnPage == nil {
		u.PermsOnPage = make(map[string]bool)
	}
	if u.Votes == nil {
		u.Votes = make(map[PostID][]VoteType)
	}
	if u.UnapprovedPosts == nil {
		u.UnapprovedPosts = make(map[PostID]*Post)
	}
	if u.MarksByPostID == nil {
		u.MarksByPostID = make(map[PostID]Mark)
	}
	if u.PostIDsAutoReadLongAgo == nil {
		u.PostIDsAutoReadLongAgo = []PostID{}
	}
	if u.PostIDsAutoReadNow == nil {
		u.PostIDsAutoReadNow = []PostID{}
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PermsOnPage = make(map[string]bool, len(u.PermsOnPage))
	for k, v := range u.PermsOnPage {
		c.PermsOnPage[k] = v
	}
	c.Votes = make(map[PostID][]VoteType, len(u.Votes))
	for postID, votes := range u.Votes {
		c.Votes[postID] = append([]VoteType(nil), votes...)
	}
	c.UnapprovedPosts = make(map[PostID]*Post, len(u.UnapprovedPosts))
	for postID, post := range u.UnapprovedPosts {
		c.UnapprovedPosts[postID] = post.Clone()
	}
	c.MarksByPostID = make(map[PostID]Mark, len(u.MarksByPostID))
	for postID, mark := range u.MarksByPostID {
		c.MarksByPostID[postID] = mark
	}
	c.PostIDsAutoReadLongAgo = append([]PostID{}, u.PostIDsAutoReadLongAgo...)
	c.PostIDsAutoReadNow = append([]PostID{}, u.PostIDsAutoReadNow...)
	return &c
}
