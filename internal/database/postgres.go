package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"threadview/internal/models"
	"threadview/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string, logger *slog.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	logger.Info("connected to PostgreSQL")
	return &PostgresDB{DB: db, logger: logger}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	p.logger.Info("closing PostgreSQL connection")
	return p.DB.Close()
}

var postgresSchema = []struct {
	table string
	ddl   string
}{
	{"pages", `
		CREATE TABLE IF NOT EXISTS pages (
			page_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			page_role INTEGER NOT NULL,
			parent_page_id TEXT REFERENCES pages(page_id),
			site_status INTEGER NOT NULL DEFAULT 2,
			guest_login_allowed BOOLEAN NOT NULL DEFAULT FALSE,
			user_must_be_authenticated BOOLEAN NOT NULL DEFAULT FALSE,
			user_must_be_approved BOOLEAN NOT NULL DEFAULT FALSE,
			horizontal_layout BOOLEAN NOT NULL DEFAULT FALSE,
			is_2d_tree_default BOOLEAN NOT NULL DEFAULT FALSE,
			pin_order INTEGER NOT NULL DEFAULT 0,
			pin_where INTEGER NOT NULL DEFAULT 0,
			done_at_ms BIGINT,
			closed_at_ms BIGINT
		)`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			category_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0,
			is_default BOOLEAN NOT NULL DEFAULT FALSE
		)`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_moderator BOOLEAN NOT NULL DEFAULT FALSE
		)`},
	{"posts", `
		CREATE TABLE IF NOT EXISTS posts (
			page_id TEXT REFERENCES pages(page_id),
			post_id INTEGER NOT NULL,
			parent_id INTEGER,
			created_at_ms BIGINT NOT NULL,
			like_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			multireply_post_ids INTEGER[] NOT NULL DEFAULT '{}',
			author_id INTEGER REFERENCES users(user_id),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			is_approved BOOLEAN NOT NULL DEFAULT TRUE,
			sanitized_html TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (page_id, post_id)
		)`},
	{"post_votes", `
		CREATE TABLE IF NOT EXISTS post_votes (
			vote_id BIGSERIAL PRIMARY KEY,
			page_id TEXT NOT NULL,
			post_id INTEGER NOT NULL,
			user_id INTEGER REFERENCES users(user_id),
			vote_type VARCHAR(20) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
	{"read_progress", `
		CREATE TABLE IF NOT EXISTS read_progress (
			page_id TEXT NOT NULL,
			user_id INTEGER REFERENCES users(user_id),
			post_id INTEGER NOT NULL,
			read_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (page_id, user_id, post_id)
		)`},
}

// Initialize creates all necessary tables if they don't exist
func (p *PostgresDB) Initialize(ctx context.Context) error {
	for _, t := range postgresSchema {
		if _, err := p.DB.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.table, err)
		}
	}
	return nil
}

type postRow struct {
	PostID            int            `db:"post_id"`
	ParentID          sql.NullInt64  `db:"parent_id"`
	CreatedAtMs       int64          `db:"created_at_ms"`
	LikeScore         float64        `db:"like_score"`
	MultireplyPostIDs pq.Int64Array  `db:"multireply_post_ids"`
	AuthorID          sql.NullInt64  `db:"author_id"`
	AuthorUsername    sql.NullString `db:"author_username"`
	IsDeleted         bool           `db:"is_deleted"`
	SanitizedHTML     string         `db:"sanitized_html"`
	Source            string         `db:"source"`
}

func (r *postRow) toModel() *models.Post {
	post := &models.Post{
		PostID:         models.PostID(r.PostID),
		CreatedAtMs:    r.CreatedAtMs,
		LikeScore:      r.LikeScore,
		AuthorID:       int(r.AuthorID.Int64),
		AuthorUsername: r.AuthorUsername.String,
		IsDeleted:      r.IsDeleted,
		SanitizedHTML:  r.SanitizedHTML,
		Source:         r.Source,
	}
	if r.ParentID.Valid {
		post.ParentID = models.ParentOf(models.PostID(r.ParentID.Int64))
	}
	for _, id := range r.MultireplyPostIDs {
		post.MultireplyPostIDs = append(post.MultireplyPostIDs, models.PostID(id))
	}
	return post
}

const selectPostColumns = `
	SELECT p.post_id, p.parent_id, p.created_at_ms, p.like_score, p.multireply_post_ids,
	       p.author_id, u.username AS author_username, p.is_deleted, p.sanitized_html, p.source
	FROM posts p
	LEFT JOIN users u ON u.user_id = p.author_id`

func (p *PostgresDB) getPageMeta(ctx context.Context, pageID string) (*PageMeta, error) {
	query := `
		SELECT page_id, title, path, page_role, COALESCE(parent_page_id, '') AS parent_page_id,
		       site_status, guest_login_allowed, user_must_be_authenticated, user_must_be_approved,
		       horizontal_layout, is_2d_tree_default, pin_order, pin_where, done_at_ms, closed_at_ms
		FROM pages WHERE page_id = $1`
	var meta PageMeta
	if err := p.DB.GetContext(ctx, &meta, query, pageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("page " + pageID)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query page", err)
	}
	return &meta, nil
}

// GetPage loads the page row, its approved posts, all categories and the
// ancestor breadcrumbs.
func (p *PostgresDB) GetPage(ctx context.Context, pageID string) (*models.PageStore, error) {
	meta, err := p.getPageMeta(ctx, pageID)
	if err != nil {
		return nil, err
	}

	var rows []postRow
	query := selectPostColumns + ` WHERE p.page_id = $1 AND p.is_approved ORDER BY p.post_id`
	if err := p.DB.SelectContext(ctx, &rows, query, pageID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query page posts", err)
	}
	posts := make([]*models.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toModel())
	}

	var categories []models.Category
	categoryQuery := `SELECT category_id, name, slug, description, position, is_default FROM categories ORDER BY position, category_id`
	if err := p.DB.SelectContext(ctx, &categories, categoryQuery); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query categories", err)
	}

	ancestors, err := loadAncestors(ctx, meta, p.getPageMeta)
	if err != nil {
		return nil, err
	}
	return buildPageStore(meta, posts, categories, ancestors)
}

// GetPageUser loads the user row plus votes, unapproved posts and read
// progress for the page. Staff see every unapproved post on the page.
func (p *PostgresDB) GetPageUser(ctx context.Context, pageID string, userID int) (*models.User, error) {
	var user models.User
	query := `SELECT user_id, username, is_admin, is_moderator FROM users WHERE user_id = $1`
	if err := p.DB.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError(fmt.Sprintf("user %d", userID))
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user", err)
	}
	user.EnsureMaps()

	var votes []struct {
		PostID   int             `db:"post_id"`
		VoteType models.VoteType `db:"vote_type"`
	}
	voteQuery := `SELECT post_id, vote_type FROM post_votes WHERE page_id = $1 AND user_id = $2 ORDER BY vote_id`
	if err := p.DB.SelectContext(ctx, &votes, voteQuery, pageID, userID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query votes", err)
	}
	for _, v := range votes {
		postID := models.PostID(v.PostID)
		user.Votes[postID] = append(user.Votes[postID], v.VoteType)
	}

	var rows []postRow
	unapprovedQuery := selectPostColumns + `
		WHERE p.page_id = $1 AND NOT p.is_approved AND ($3::boolean OR p.author_id = $2)
		ORDER BY p.post_id`
	if err := p.DB.SelectContext(ctx, &rows, unapprovedQuery, pageID, userID, user.IsStaff()); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query unapproved posts", err)
	}
	for i := range rows {
		post := rows[i].toModel()
		if err := ensureHTML(post); err != nil {
			return nil, err
		}
		user.UnapprovedPosts[post.PostID] = post
	}

	var readIDs []int
	readQuery := `SELECT post_id FROM read_progress WHERE page_id = $1 AND user_id = $2 ORDER BY post_id`
	if err := p.DB.SelectContext(ctx, &readIDs, readQuery, pageID, userID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query read progress", err)
	}
	for _, id := range readIDs {
		user.PostIDsAutoReadLongAgo = append(user.PostIDsAutoReadLongAgo, models.PostID(id))
	}
	return &user, nil
}

// SavePost inserts or replaces a post. Posts saved here count as approved.
func (p *PostgresDB) SavePost(ctx context.Context, pageID string, post *models.Post) error {
	var parentID sql.NullInt64
	if post.ParentID != nil {
		parentID = sql.NullInt64{Int64: int64(*post.ParentID), Valid: true}
	}
	var authorID sql.NullInt64
	if post.AuthorID != 0 {
		authorID = sql.NullInt64{Int64: int64(post.AuthorID), Valid: true}
	}
	multireply := make(pq.Int64Array, 0, len(post.MultireplyPostIDs))
	for _, id := range post.MultireplyPostIDs {
		multireply = append(multireply, int64(id))
	}

	query := `
		INSERT INTO posts (page_id, post_id, parent_id, created_at_ms, like_score, multireply_post_ids,
		                   author_id, is_deleted, is_approved, sanitized_html, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10)
		ON CONFLICT (page_id, post_id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			like_score = EXCLUDED.like_score,
			multireply_post_ids = EXCLUDED.multireply_post_ids,
			is_deleted = EXCLUDED.is_deleted,
			is_approved = TRUE,
			sanitized_html = EXCLUDED.sanitized_html,
			source = EXCLUDED.source`
	_, err := p.DB.ExecContext(ctx, query,
		pageID,
		int(post.PostID),
		parentID,
		post.CreatedAtMs,
		post.LikeScore,
		multireply,
		authorID,
		post.IsDeleted,
		post.SanitizedHTML,
		post.Source,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("post references a missing row: %s", pqErr.Constraint), err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to save post", err)
	}
	return nil
}

// SaveVote records a cast vote, or removes every matching vote when it is
// taken back.
func (p *PostgresDB) SaveVote(ctx context.Context, pageID string, userID int, postID models.PostID, voteType models.VoteType, doWhat models.VoteAction) error {
	var err error
	if doWhat == models.CreateVote {
		_, err = p.DB.ExecContext(ctx,
			`INSERT INTO post_votes (page_id, post_id, user_id, vote_type) VALUES ($1, $2, $3, $4)`,
			pageID, int(postID), userID, string(voteType))
	} else {
		_, err = p.DB.ExecContext(ctx,
			`DELETE FROM post_votes WHERE page_id = $1 AND post_id = $2 AND user_id = $3 AND vote_type = $4`,
			pageID, int(postID), userID, string(voteType))
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save vote", err)
	}
	return nil
}

// SaveReadProgress adds posts to the user's read set for the page.
func (p *PostgresDB) SaveReadProgress(ctx context.Context, pageID string, userID int, postIDs []models.PostID) error {
	if len(postIDs) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	query := `INSERT INTO read_progress (page_id, user_id, post_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	for _, id := range postIDs {
		if _, err := tx.ExecContext(ctx, query, pageID, userID, int(id)); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to save read progress", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit read progress", err)
	}
	return nil
}
