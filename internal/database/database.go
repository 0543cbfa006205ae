package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"threadview/internal/config"
	"threadview/internal/models"
	"threadview/internal/render"
)

// DBAdapter defines the common interface for loading page seed data and
// storing what readers do on a page.
type DBAdapter interface {
	// Connection
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error

	// GetPage loads a page with its approved posts, categories and
	// ancestors. User-specific data is left out; see GetPageUser.
	GetPage(ctx context.Context, pageID string) (*models.PageStore, error)

	// GetPageUser loads a user together with their data for one page:
	// votes, posts awaiting approval and posts read in earlier sessions.
	GetPageUser(ctx context.Context, pageID string, userID int) (*models.User, error)

	SavePost(ctx context.Context, pageID string, post *models.Post) error
	SaveVote(ctx context.Context, pageID string, userID int, postID models.PostID, voteType models.VoteType, doWhat models.VoteAction) error
	SaveReadProgress(ctx context.Context, pageID string, userID int, postIDs []models.PostID) error
}

// PageMeta is the page row shared by every backend.
type PageMeta struct {
	PageID                  string            `db:"page_id" yaml:"pageId" bson:"_id"`
	Title                   string            `db:"title" yaml:"title" bson:"title"`
	Path                    string            `db:"path" yaml:"path" bson:"path"`
	PageRole                models.PageRole   `db:"page_role" yaml:"pageRole" bson:"pageRole"`
	ParentPageID            string            `db:"parent_page_id" yaml:"parentPageId,omitempty" bson:"parentPageId,omitempty"`
	SiteStatus              models.SiteStatus `db:"site_status" yaml:"siteStatus" bson:"siteStatus"`
	GuestLoginAllowed       bool              `db:"guest_login_allowed" yaml:"guestLoginAllowed" bson:"guestLoginAllowed"`
	UserMustBeAuthenticated bool              `db:"user_must_be_authenticated" yaml:"userMustBeAuthenticated" bson:"userMustBeAuthenticated"`
	UserMustBeApproved      bool              `db:"user_must_be_approved" yaml:"userMustBeApproved" bson:"userMustBeApproved"`
	HorizontalLayout        bool              `db:"horizontal_layout" yaml:"horizontalLayout" bson:"horizontalLayout"`
	Is2dTreeDefault         bool              `db:"is_2d_tree_default" yaml:"is2dTreeDefault" bson:"is2dTreeDefault"`
	PinOrder                int               `db:"pin_order" yaml:"pinOrder,omitempty" bson:"pinOrder,omitempty"`
	PinWhere                models.PinWhere   `db:"pin_where" yaml:"pinWhere,omitempty" bson:"pinWhere,omitempty"`
	PageDoneAtMs            *int64            `db:"done_at_ms" yaml:"doneAtMs,omitempty" bson:"doneAtMs,omitempty"`
	PageClosedAtMs          *int64            `db:"closed_at_ms" yaml:"closedAtMs,omitempty" bson:"closedAtMs,omitempty"`
}

// maxAncestorDepth bounds the walk up parent pages.
const maxAncestorDepth = 20

// loadAncestors walks parent pages up from meta, root first in the result.
func loadAncestors(ctx context.Context, meta *PageMeta, lookup func(ctx context.Context, pageID string) (*PageMeta, error)) ([]models.Ancestor, error) {
	var ancestors []models.Ancestor
	seen := map[string]bool{meta.PageID: true}
	parentID := meta.ParentPageID
	for depth := 0; parentID != "" && !seen[parentID] && depth < maxAncestorDepth; depth++ {
		seen[parentID] = true
		parent, err := lookup(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("load ancestor page %s: %w", parentID, err)
		}
		ancestors = append(ancestors, models.Ancestor{PageID: parent.PageID, Title: parent.Title, Path: parent.Path})
		parentID = parent.ParentPageID
	}
	slices.Reverse(ancestors)
	return ancestors, nil
}

// buildPageStore assembles seed data. Posts stored as markdown only get
// their HTML rendered here. Child lists are left to the store to derive.
func buildPageStore(meta *PageMeta, posts []*models.Post, categories []models.Category, ancestors []models.Ancestor) (*models.PageStore, error) {
	page := models.NewPageStore(meta.PageID)
	page.PageRole = meta.PageRole
	page.ParentPageID = meta.ParentPageID
	page.AncestorsRootFirst = ancestors
	page.Categories = categories
	page.SiteStatus = meta.SiteStatus
	page.GuestLoginAllowed = meta.GuestLoginAllowed
	page.UserMustBeAuthenticated = meta.UserMustBeAuthenticated
	page.UserMustBeApproved = meta.UserMustBeApproved
	page.HorizontalLayout = meta.HorizontalLayout || meta.PageRole == models.PageRoleMindMap
	page.Is2dTreeDefault = meta.Is2dTreeDefault
	page.PinOrder = meta.PinOrder
	page.PinWhere = meta.PinWhere
	page.PageDoneAtMs = meta.PageDoneAtMs
	page.PageClosedAtMs = meta.PageClosedAtMs

	for _, post := range posts {
		if err := ensureHTML(post); err != nil {
			return nil, err
		}
		page.AllPosts[post.PostID] = post
	}
	return page, nil
}

func ensureHTML(post *models.Post) error {
	if post.SanitizedHTML != "" || post.Source == "" {
		return nil
	}
	html, err := render.MarkdownToHTML(post.Source)
	if err != nil {
		return fmt.Errorf("post %d: %w", post.PostID, err)
	}
	post.SanitizedHTML = html
	return nil
}

// NewDBAdapter opens the backend named in the configuration.
func NewDBAdapter(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (DBAdapter, error) {
	switch cfg.Type {
	case config.DBTypePostgres:
		return NewPostgresDB(cfg.URI, logger)
	case config.DBTypeMongoDB:
		return NewMongoDB(ctx, cfg.URI, cfg.Name, logger)
	case config.DBTypeFile:
		return NewFileDB(cfg.SeedFile)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}
