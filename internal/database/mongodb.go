package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"threadview/internal/models"
	"threadview/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client       *mongo.Client
	Pages        *mongo.Collection
	Posts        *mongo.Collection
	Categories   *mongo.Collection
	Users        *mongo.Collection
	Votes        *mongo.Collection
	ReadProgress *mongo.Collection
	logger       *slog.Logger
}

func NewMongoDB(ctx context.Context, uri, dbName string, logger *slog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", dbName)

	db := client.Database(dbName)
	return &MongoDB{
		Client:       client,
		Pages:        db.Collection("pages"),
		Posts:        db.Collection("posts"),
		Categories:   db.Collection("categories"),
		Users:        db.Collection("users"),
		Votes:        db.Collection("votes"),
		ReadProgress: db.Collection("read_progress"),
		logger:       logger,
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Initialize creates the indexes the page queries rely on.
func (m *MongoDB) Initialize(ctx context.Context) error {
	indexes := map[*mongo.Collection]mongo.IndexModel{
		m.Posts: {
			Keys:    bson.D{{Key: "pageId", Value: 1}, {Key: "postId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		m.Votes: {
			Keys: bson.D{{Key: "pageId", Value: 1}, {Key: "userId", Value: 1}},
		},
		m.ReadProgress: {
			Keys:    bson.D{{Key: "pageId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	for coll, model := range indexes {
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// PostDocument represents the MongoDB schema for a post.
type PostDocument struct {
	PageID            string  `bson:"pageId"`
	PostID            int     `bson:"postId"`
	ParentID          *int    `bson:"parentId,omitempty"`
	CreatedAtMs       int64   `bson:"createdAt"`
	LikeScore         float64 `bson:"likeScore"`
	MultireplyPostIDs []int   `bson:"multireplyPostIds,omitempty"`
	AuthorID          int     `bson:"authorId,omitempty"`
	AuthorUsername    string  `bson:"authorUsername,omitempty"`
	IsDeleted         bool    `bson:"isDeleted"`
	IsApproved        bool    `bson:"isApproved"`
	SanitizedHTML     string  `bson:"sanitizedHtml"`
	Source            string  `bson:"source,omitempty"`
}

type userDocument struct {
	UserID      int    `bson:"_id"`
	Username    string `bson:"username"`
	IsAdmin     bool   `bson:"isAdmin"`
	IsModerator bool   `bson:"isModerator"`
}

type voteDocument struct {
	PageID   string          `bson:"pageId"`
	UserID   int             `bson:"userId"`
	PostID   int             `bson:"postId"`
	VoteType models.VoteType `bson:"voteType"`
	CastAt   time.Time       `bson:"castAt"`
}

type readProgressDocument struct {
	PageID  string `bson:"pageId"`
	UserID  int    `bson:"userId"`
	PostIDs []int  `bson:"postIds"`
}

// ModelToDocument converts a Post model to a MongoDB document.
func (m *MongoDB) ModelToDocument(pageID string, post *models.Post) *PostDocument {
	doc := &PostDocument{
		PageID:         pageID,
		PostID:         int(post.PostID),
		CreatedAtMs:    post.CreatedAtMs,
		LikeScore:      post.LikeScore,
		AuthorID:       post.AuthorID,
		AuthorUsername: post.AuthorUsername,
		IsDeleted:      post.IsDeleted,
		IsApproved:     true,
		SanitizedHTML:  post.SanitizedHTML,
		Source:         post.Source,
	}
	if post.ParentID != nil {
		parentID := int(*post.ParentID)
		doc.ParentID = &parentID
	}
	for _, id := range post.MultireplyPostIDs {
		doc.MultireplyPostIDs = append(doc.MultireplyPostIDs, int(id))
	}
	return doc
}

// DocumentToModel converts a MongoDB document to a Post model.
func (m *MongoDB) DocumentToModel(doc *PostDocument) *models.Post {
	post := &models.Post{
		PostID:         models.PostID(doc.PostID),
		CreatedAtMs:    doc.CreatedAtMs,
		LikeScore:      doc.LikeScore,
		AuthorID:       doc.AuthorID,
		AuthorUsername: doc.AuthorUsername,
		IsDeleted:      doc.IsDeleted,
		SanitizedHTML:  doc.SanitizedHTML,
		Source:         doc.Source,
	}
	if doc.ParentID != nil {
		post.ParentID = models.ParentOf(models.PostID(*doc.ParentID))
	}
	for _, id := range doc.MultireplyPostIDs {
		post.MultireplyPostIDs = append(post.MultireplyPostIDs, models.PostID(id))
	}
	return post
}

func (m *MongoDB) getPageMeta(ctx context.Context, pageID string) (*PageMeta, error) {
	var meta PageMeta
	err := m.Pages.FindOne(ctx, bson.M{"_id": pageID}).Decode(&meta)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("page " + pageID)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query page", err)
	}
	return &meta, nil
}

func (m *MongoDB) findPosts(ctx context.Context, filter bson.M) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "postId", Value: 1}})
	cursor, err := m.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query posts", err)
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			m.logger.Warn("skipping undecodable post document", "error", err)
			continue
		}
		posts = append(posts, m.DocumentToModel(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "post cursor failed", err)
	}
	return posts, nil
}

func (m *MongoDB) GetPage(ctx context.Context, pageID string) (*models.PageStore, error) {
	meta, err := m.getPageMeta(ctx, pageID)
	if err != nil {
		return nil, err
	}

	posts, err := m.findPosts(ctx, bson.M{"pageId": pageID, "isApproved": true})
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "categoryId", Value: 1}})
	cursor, err := m.Categories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query categories", err)
	}
	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode categories", err)
	}

	ancestors, err := loadAncestors(ctx, meta, m.getPageMeta)
	if err != nil {
		return nil, err
	}
	return buildPageStore(meta, posts, categories, ancestors)
}

func (m *MongoDB) GetPageUser(ctx context.Context, pageID string, userID int) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError(fmt.Sprintf("user %d", userID))
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user", err)
	}
	user := &models.User{
		UserID:      doc.UserID,
		Username:    doc.Username,
		IsAdmin:     doc.IsAdmin,
		IsModerator: doc.IsModerator,
	}
	user.EnsureMaps()

	voteOpts := options.Find().SetSort(bson.D{{Key: "castAt", Value: 1}})
	cursor, err := m.Votes.Find(ctx, bson.M{"pageId": pageID, "userId": userID}, voteOpts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query votes", err)
	}
	var votes []voteDocument
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode votes", err)
	}
	for _, v := range votes {
		postID := models.PostID(v.PostID)
		user.Votes[postID] = append(user.Votes[postID], v.VoteType)
	}

	filter := bson.M{"pageId": pageID, "isApproved": false}
	if !user.IsStaff() {
		filter["authorId"] = userID
	}
	unapproved, err := m.findPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, post := range unapproved {
		if err := ensureHTML(post); err != nil {
			return nil, err
		}
		user.UnapprovedPosts[post.PostID] = post
	}

	var progress readProgressDocument
	err = m.ReadProgress.FindOne(ctx, bson.M{"pageId": pageID, "userId": userID}).Decode(&progress)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query read progress", err)
	}
	for _, id := range progress.PostIDs {
		user.PostIDsAutoReadLongAgo = append(user.PostIDsAutoReadLongAgo, models.PostID(id))
	}
	return user, nil
}

// SavePost creates or updates a post in MongoDB.
func (m *MongoDB) SavePost(ctx context.Context, pageID string, post *models.Post) error {
	doc := m.ModelToDocument(pageID, post)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"pageId": pageID, "postId": doc.PostID}
	update := bson.M{"$set": doc}

	if _, err := m.Posts.UpdateOne(ctx, filter, update, opts); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save post", err)
	}
	return nil
}

func (m *MongoDB) SaveVote(ctx context.Context, pageID string, userID int, postID models.PostID, voteType models.VoteType, doWhat models.VoteAction) error {
	var err error
	if doWhat == models.CreateVote {
		_, err = m.Votes.InsertOne(ctx, voteDocument{
			PageID:   pageID,
			UserID:   userID,
			PostID:   int(postID),
			VoteType: voteType,
			CastAt:   time.Now(),
		})
	} else {
		_, err = m.Votes.DeleteMany(ctx, bson.M{
			"pageId":   pageID,
			"userId":   userID,
			"postId":   int(postID),
			"voteType": voteType,
		})
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save vote", err)
	}
	return nil
}

func (m *MongoDB) SaveReadProgress(ctx context.Context, pageID string, userID int, postIDs []models.PostID) error {
	if len(postIDs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(postIDs))
	for _, id := range postIDs {
		ids = append(ids, int(id))
	}
	filter := bson.M{"pageId": pageID, "userId": userID}
	update := bson.M{"$addToSet": bson.M{"postIds": bson.M{"$each": ids}}}
	if _, err := m.ReadProgress.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save read progress", err)
	}
	return nil
}
