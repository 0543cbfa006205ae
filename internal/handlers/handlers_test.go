package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"threadview/internal/api"
	"threadview/internal/database"
	"threadview/internal/engine"
	"threadview/internal/middleware"
	"threadview/internal/models"
	"threadview/internal/store"
	"threadview/internal/utils"
	"threadview/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
users:
  - userId: 100
    username: maria
  - userId: 102
    username: sam
pages:
  - pageId: "1"
    title: Mirroring uploads
    pageRole: 10
    posts:
      - {postId: 0, createdAt: 1000, sanitizedHtml: "Mirroring uploads"}
      - {postId: 1, createdAt: 1000, sanitizedHtml: "<p>How?</p>"}
      - {postId: 2, parentId: 1, createdAt: 2000, likeScore: 1, sanitizedHtml: "<p>Admin settings.</p>"}
      - {postId: 3, parentId: 2, createdAt: 3000, sanitizedHtml: "<p>Thanks.</p>"}
    unapprovedPosts:
      - {postId: 4, parentId: 1, createdAt: 4000, authorId: 100, sanitizedHtml: "<p>Pending.</p>"}
`

type testServer struct {
	*Server
	handler http.Handler
	db      *database.FileDB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	page, err := db.GetPage(ctx, "1")
	require.NoError(t, err)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	metrics := utils.NewMetricsCollector()
	st := store.New(page,
		store.WithLogger(logger),
		store.WithMetrics(metrics),
		store.WithUI(websocket.NewRemoteUI(hub)),
	)
	eng := engine.NewEngine(actor.NewActorSystem(), st, metrics, logger)
	auth := middleware.NewAuthenticator("test-secret", logger)

	srv := NewServer(eng, db, hub, auth, metrics, "1", []string{"*"}, logger)
	return &testServer{Server: srv, handler: srv.Routes(true), db: db}
}

// do sends a request, with a bearer token for userID when it is non-zero.
func (ts *testServer) do(t *testing.T, method, path, body string, userID int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != 0 {
		token, err := ts.Auth.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) snapshot(t *testing.T) *models.PageStore {
	t.Helper()
	page, err := ts.Engine.Snapshot(context.Background())
	require.NoError(t, err)
	return page
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[api.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1", health.PageID)
	assert.Equal(t, 4, health.Counts.NumPosts)
	assert.Equal(t, 3, health.Counts.NumPostsExclTitle)
	assert.Equal(t, 0, health.Counts.NumTopLevel)

	rec = ts.do(t, http.MethodPost, "/health", "", 0)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/page", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[models.PageStore](t, rec)
	assert.Equal(t, "1", page.PageID)
	assert.Equal(t, models.PageRoleQuestion, page.PageRole)
	assert.Equal(t, []models.PostID{2}, page.AllPosts[models.BodyID].ChildIDsSorted)
	assert.NotContains(t, page.AllPosts, models.PostID(4))
}

func TestHandleActions_ViewActionsNeedNoLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/actions", `{"actionType":"CycleToNextMark","postId":2}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ActionResponse{Success: true, Kind: "CycleToNextMark"}, decode[api.ActionResponse](t, rec))

	assert.Equal(t, models.FirstStarMark, ts.snapshot(t).User.MarksByPostID[2])
}

func TestHandleActions_UpdatePostIsSaved(t *testing.T) {
	ts := newTestServer(t)
	body := `{"actionType":"UpdatePost","post":{"postId":5,"parentId":2,"createdAt":5000,"sanitizedHtml":"<p>Same here.</p>"}}`

	rec := ts.do(t, http.MethodPost, "/actions", body, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.ErrUnauthorized, decode[api.ErrorResponse](t, rec).Code)
	assert.NotContains(t, ts.snapshot(t).AllPosts, models.PostID(5))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/login", "", 102).Code)
	rec = ts.do(t, http.MethodPost, "/actions", body, 102)
	require.Equal(t, http.StatusOK, rec.Code)

	page := ts.snapshot(t)
	require.Contains(t, page.AllPosts, models.PostID(5))
	assert.Equal(t, 102, page.AllPosts[5].AuthorID)
	assert.Equal(t, []models.PostID{5, 3}, page.AllPosts[2].ChildIDsSorted)

	saved, err := ts.db.GetPage(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Same here.</p>", saved.AllPosts[5].SanitizedHTML)
}

func TestHandleActions_VoteIsSaved(t *testing.T) {
	ts := newTestServer(t)
	body := `{"actionType":"VoteOnPost","doWhat":"CreateVote","voteType":"VoteLike",
		"post":{"postId":3,"parentId":2,"createdAt":3000,"likeScore":1,"sanitizedHtml":"<p>Thanks.</p>"}}`

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/login", "", 100).Code)
	rec := ts.do(t, http.MethodPost, "/actions", body, 100)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := ts.db.GetPageUser(context.Background(), "1", 100)
	require.NoError(t, err)
	assert.Equal(t, []models.VoteType{models.VoteLike}, user.Votes[3])
	page := ts.snapshot(t)
	assert.Equal(t, 1.0, page.AllPosts[3].LikeScore)
	assert.Equal(t, []models.VoteType{models.VoteLike}, page.User.Votes[3])
}

func TestHandleActions_WritesNeedThePageUser(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	vote := `{"actionType":"VoteOnPost","doWhat":"CreateVote","voteType":"VoteLike",
		"post":{"postId":3,"parentId":2,"createdAt":3000,"likeScore":1,"sanitizedHtml":"<p>Thanks.</p>"}}`
	reply := `{"actionType":"UpdatePost","post":{"postId":5,"parentId":2,"createdAt":5000,"sanitizedHtml":"<p>Me too.</p>"}}`

	// Nobody logged in yet.
	rec := ts.do(t, http.MethodPost, "/actions", vote, 102)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/login", "", 100).Code)

	for _, body := range []string{vote, reply} {
		rec = ts.do(t, http.MethodPost, "/actions", body, 102)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, utils.ErrUnauthorized, decode[api.ErrorResponse](t, rec).Code)
	}

	page := ts.snapshot(t)
	assert.Equal(t, 100, page.User.UserID)
	assert.Empty(t, page.User.Votes[3])
	assert.Zero(t, page.AllPosts[3].LikeScore)
	assert.NotContains(t, page.AllPosts, models.PostID(5))

	sam, err := ts.db.GetPageUser(ctx, "1", 102)
	require.NoError(t, err)
	assert.Empty(t, sam.Votes[3])
	saved, err := ts.db.GetPage(ctx, "1")
	require.NoError(t, err)
	assert.NotContains(t, saved.AllPosts, models.PostID(5))
}

func TestHandleActions_Rejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "wrong method", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed},
		{name: "not json", method: http.MethodPost, body: `nope`, wantStatus: http.StatusBadRequest, wantCode: utils.ErrInvalidInput},
		{name: "no action type", method: http.MethodPost, body: `{}`, wantStatus: http.StatusBadRequest, wantCode: utils.ErrInvalidInput},
		{name: "login", method: http.MethodPost, body: `{"actionType":"Login","user":null}`, wantStatus: http.StatusBadRequest, wantCode: utils.ErrInvalidInput},
		{name: "logout", method: http.MethodPost, body: `{"actionType":"Logout"}`, wantStatus: http.StatusBadRequest, wantCode: utils.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, "/actions", tt.body, 0)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[api.ErrorResponse](t, rec).Code)
			}
		})
	}
}

func TestHandleActions_UnknownKindIsIgnored(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/actions", `{"actionType":"ShowEditHistory","postId":2}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ActionResponse{Success: true, Kind: "ShowEditHistory", Ignored: true}, decode[api.ActionResponse](t, rec))
}

func TestHandleLoginAndLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/login", "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/login", "", 999)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/login", "", 100)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.LoginResponse{Success: true, UserID: 100, Username: "maria"}, decode[api.LoginResponse](t, rec))

	page := ts.snapshot(t)
	assert.Equal(t, 100, page.User.UserID)
	assert.True(t, page.UserSpecificDataAdded)
	require.Contains(t, page.AllPosts, models.PostID(4), "pending posts are shown to their author")
	assert.Equal(t, []models.PostID{2, 4}, page.AllPosts[models.BodyID].ChildIDsSorted)

	rec = ts.do(t, http.MethodPost, "/logout", "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodPost, "/logout", "", 102)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 100, ts.snapshot(t).User.UserID, "only the logged-in user can log out")

	rec = ts.do(t, http.MethodPost, "/logout", "", 100)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.snapshot(t).User.IsLoggedIn())
}

func TestHandleReadProgress(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/login", "", 100).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/actions", `{"actionType":"MarkPostAsRead","postId":2}`, 0).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/actions", `{"actionType":"MarkPostAsRead","postId":3}`, 0).Code)

	rec := ts.do(t, http.MethodPost, "/read-progress", "", 102)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/read-progress", "", 100)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ReadProgressResponse{Success: true, Saved: 2}, decode[api.ReadProgressResponse](t, rec))

	user, err := ts.db.GetPageUser(ctx, "1", 100)
	require.NoError(t, err)
	assert.Equal(t, []models.PostID{2, 3}, user.PostIDsAutoReadLongAgo)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/metrics", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "threadview_unknown_actions_total")
}

func TestOriginAllowed(t *testing.T) {
	srv := &Server{AllowedOrigins: []string{"https://forum.example"}}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://forum.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, srv.originAllowed(req), tt.origin)
	}
}
