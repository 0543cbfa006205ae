package models

// PageRole is what kind of page the posts belong to.
type PageRole int

const (
	PageRoleHomePage         PageRole = 1
	PageRoleWebPage          PageRole = 2
	PageRoleEmbeddedComments PageRole = 5
	PageRoleBlog             PageRole = 6
	PageRoleForum            PageRole = 7
	PageRoleAbout            PageRole = 9
	PageRoleQuestion         PageRole = 10
	PageRoleMindMap          PageRole = 11
	PageRoleDiscussion       PageRole = 12
	PageRoleToDo             PageRole = 13
	PageRoleProblem          PageRole = 14
	PageRoleIdea             PageRole = 15
)

// PinWhere says where a pinned page is listed.
type PinWhere int

const (
	PinInCategory PinWhere = 1
	PinGlobally   PinWhere = 3
)

// NotfLevel is a user's notification level for a page.
type NotfLevel int

const (
	NotfLevelWatching NotfLevel = 1
	NotfLevelTracking NotfLevel = 2
	NotfLevelRegular  NotfLevel = 3
	NotfLevelMuted    NotfLevel = 4
)

// SiteStatus is the lifecycle state of the whole site.
type SiteStatus int

const (
	SiteStatusNoAdmin           SiteStatus = 1
	SiteStatusActive            SiteStatus = 2
	SiteStatusReadAndCleanOnly  SiteStatus = 3
	SiteStatusHiddenUnlessStaff SiteStatus = 4
	SiteStatusHiddenUnlessAdmin SiteStatus = 5
	SiteStatusDeleted           SiteStatus = 6
	SiteStatusPurged            SiteStatus = 7
)

// Ancestor is one breadcrumb entry above the page.
type Ancestor struct {
	PageID string `json:"pageId" yaml:"pageId"`
	Title  string `json:"title" yaml:"title"`
	Path   string `json:"path" yaml:"path"`
}

// PageStore is everything the view knows about one page. AllPosts is the
// single source of truth for post content; every other post-related field
// holds ids into it.
type PageStore struct {
	PageID                  string     `json:"pageId"`
	PageRole                PageRole   `json:"pageRole"`
	ParentPageID            string     `json:"parentPageId,omitempty"`
	AncestorsRootFirst      []Ancestor `json:"ancestorsRootFirst"`
	Categories              []Category `json:"categories"`
	NewCategoryID           int        `json:"newCategoryId,omitempty"`
	NewCategorySlug         string     `json:"newCategorySlug,omitempty"`
	PinOrder                int        `json:"pinOrder,omitempty"`
	PinWhere                PinWhere   `json:"pinWhere,omitempty"`
	PageDoneAtMs            *int64     `json:"pageDoneAtMs,omitempty"`
	PageClosedAtMs          *int64     `json:"pageClosedAtMs,omitempty"`
	SiteStatus              SiteStatus `json:"siteStatus"`
	GuestLoginAllowed       bool       `json:"guestLoginAllowed"`
	UserMustBeAuthenticated bool       `json:"userMustBeAuthenticated"`
	UserMustBeApproved      bool       `json:"userMustBeApproved"`
	HorizontalLayout        bool       `json:"horizontalLayout"`
	Is2dTreeDefault         bool       `json:"is2dTreeDefault"`
	NewUserAccountCreated   bool       `json:"newUserAccountCreated,omitempty"`
	UserSpecificDataAdded   bool       `json:"userSpecificDataAdded,omitempty"`

	NumPosts                 int              `json:"numPosts"`
	NumPostsExclTitle        int              `json:"numPostsExclTitle"`
	AllPosts                 map[PostID]*Post `json:"allPosts"`
	TopLevelCommentIDsSorted []PostID         `json:"topLevelCommentIdsSorted"`
	User                     *User            `json:"user"`
	PostsToUpdate            map[PostID]bool  `json:"postsToUpdate"`
	QuickUpdate              bool             `json:"quickUpdate"`
	Now                      int64            `json:"now"`
}

// NewPageStore returns an empty page with a guest user.
func NewPageStore(pageID string) *PageStore {
	return &PageStore{
		PageID:        pageID,
		AllPosts:      make(map[PostID]*Post),
		User:          NewGuestUser(),
		PostsToUpdate: make(map[PostID]bool),
	}
}

// Clone returns a deep copy. Subscribers get clones so they can never
// corrupt the live tree.
func (p *PageStore) Clone() *PageStore {
	if p == nil {
		return nil
	}
	c := *p
	c.AncestorsRootFirst = append([]Ancestor(nil), p.AncestorsRootFirst...)
	c.Categories = CloneCategories(p.Categories)
	if p.PageDoneAtMs != nil {
		doneAt := *p.PageDoneAtMs
		c.PageDoneAtMs = &doneAt
	}
	if p.PageClosedAtMs != nil {
		closedAt := *p.PageClosedAtMs
		c.PageClosedAtMs = &closedAt
	}
	c.AllPosts = make(map[PostID]*Post, len(p.AllPosts))
	for id, post := range p.AllPosts {
		c.AllPosts[id] = post.Clone()
	}
	c.TopLevelCommentIDsSorted = clonePostIDs(p.TopLevelCommentIDsSorted)
	c.User = p.User.Clone()
	c.PostsToUpdate = make(map[PostID]bool, len(p.PostsToUpdate))
	for id, v := range p.PostsToUpdate {
		c.PostsToUpdate[id] = v
	}
	return &c
}
