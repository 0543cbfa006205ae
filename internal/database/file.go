package database

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"threadview/internal/models"
	"threadview/internal/utils"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a YAML seed.
type seedFile struct {
	Categories []models.Category `yaml:"categories"`
	Users      []seedUser        `yaml:"users"`
	Pages      []seedPage        `yaml:"pages"`
}

type seedUser struct {
	UserID      int    `yaml:"userId"`
	Username    string `yaml:"username"`
	IsAdmin     bool   `yaml:"isAdmin,omitempty"`
	IsModerator bool   `yaml:"isModerator,omitempty"`
}

type seedPage struct {
	PageMeta        `yaml:",inline"`
	Posts           []*models.Post `yaml:"posts"`
	UnapprovedPosts []*models.Post `yaml:"unapprovedPosts,omitempty"`
}

type progressKey struct {
	pageID string
	userID int
}

type voteRecord struct {
	postID   models.PostID
	voteType models.VoteType
}

// FileDB serves pages from a YAML seed file. Writes are kept in memory
// and never written back to disk.
type FileDB struct {
	mu           sync.RWMutex
	categories   []models.Category
	users        map[int]seedUser
	pages        map[string]*seedPage
	votes        map[progressKey][]voteRecord
	readProgress map[progressKey][]models.PostID
}

// NewFileDB reads and parses the seed file at path.
func NewFileDB(path string) (*FileDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed builds a FileDB from YAML seed data.
func ParseSeed(data []byte) (*FileDB, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "failed to parse seed", err)
	}

	db := &FileDB{
		categories:   seed.Categories,
		users:        make(map[int]seedUser, len(seed.Users)),
		pages:        make(map[string]*seedPage, len(seed.Pages)),
		votes:        make(map[progressKey][]voteRecord),
		readProgress: make(map[progressKey][]models.PostID),
	}
	for _, u := range seed.Users {
		db.users[u.UserID] = u
	}
	for i := range seed.Pages {
		page := &seed.Pages[i]
		if page.PageID == "" {
			return nil, utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("seed page %d has no pageId", i), nil)
		}
		db.pages[page.PageID] = page
	}
	return db, nil
}

func (f *FileDB) Initialize(ctx context.Context) error { return nil }
func (f *FileDB) Close(ctx context.Context) error      { return nil }

func (f *FileDB) getPageMeta(ctx context.Context, pageID string) (*PageMeta, error) {
	page, ok := f.pages[pageID]
	if !ok {
		return nil, utils.NewNotFoundError("page " + pageID)
	}
	meta := page.PageMeta
	return &meta, nil
}

func (f *FileDB) GetPage(ctx context.Context, pageID string) (*models.PageStore, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	meta, err := f.getPageMeta(ctx, pageID)
	if err != nil {
		return nil, err
	}
	posts := make([]*models.Post, 0, len(f.pages[pageID].Posts))
	for _, post := range f.pages[pageID].Posts {
		posts = append(posts, post.Clone())
	}
	ancestors, err := loadAncestors(ctx, meta, f.getPageMeta)
	if err != nil {
		return nil, err
	}
	return buildPageStore(meta, posts, models.CloneCategories(f.categories), ancestors)
}

func (f *FileDB) GetPageUser(ctx context.Context, pageID string, userID int) (*models.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seeded, ok := f.users[userID]
	if !ok {
		return nil, utils.NewNotFoundError(fmt.Sprintf("user %d", userID))
	}
	user := &models.User{
		UserID:      seeded.UserID,
		Username:    seeded.Username,
		IsAdmin:     seeded.IsAdmin,
		IsModerator: seeded.IsModerator,
	}
	user.EnsureMaps()

	key := progressKey{pageID: pageID, userID: userID}
	for _, v := range f.votes[key] {
		user.Votes[v.postID] = append(user.Votes[v.postID], v.voteType)
	}
	user.PostIDsAutoReadLongAgo = append(user.PostIDsAutoReadLongAgo, f.readProgress[key]...)

	if page, ok := f.pages[pageID]; ok {
		for _, post := range page.UnapprovedPosts {
			if !user.IsStaff() && post.AuthorID != userID {
				continue
			}
			clone := post.Clone()
			if err := ensureHTML(clone); err != nil {
				return nil, err
			}
			user.UnapprovedPosts[clone.PostID] = clone
		}
	}
	return user, nil
}

func (f *FileDB) SavePost(ctx context.Context, pageID string, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, ok := f.pages[pageID]
	if !ok {
		return utils.NewNotFoundError("page " + pageID)
	}
	saved := post.Clone()
	saved.ChildIDsSorted = nil
	page.UnapprovedPosts = slices.DeleteFunc(page.UnapprovedPosts, func(p *models.Post) bool {
		return p.PostID == saved.PostID
	})
	if i := slices.IndexFunc(page.Posts, func(p *models.Post) bool { return p.PostID == saved.PostID }); i >= 0 {
		page.Posts[i] = saved
	} else {
		page.Posts = append(page.Posts, saved)
	}
	return nil
}

func (f *FileDB) SaveVote(ctx context.Context, pageID string, userID int, postID models.PostID, voteType models.VoteType, doWhat models.VoteAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := progressKey{pageID: pageID, userID: userID}
	if doWhat == models.CreateVote {
		f.votes[key] = append(f.votes[key], voteRecord{postID: postID, voteType: voteType})
		return nil
	}
	f.votes[key] = slices.DeleteFunc(f.votes[key], func(v voteRecord) bool {
		return v.postID == postID && v.voteType == voteType
	})
	return nil
}

func (f *FileDB) SaveReadProgress(ctx context.Context, pageID string, userID int, postIDs []models.PostID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := progressKey{pageID: pageID, userID: userID}
	read := f.readProgress[key]
	for _, id := range postIDs {
		if !slices.Contains(read, id) {
			read = append(read, id)
		}
	}
	slices.Sort(read)
	f.readProgress[key] = read
	return nil
}
