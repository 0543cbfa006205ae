package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"threadview/internal/middleware"
	"threadview/internal/models"
	"threadview/internal/store"

	"github.com/gorilla/websocket"
)

type SimConfig struct {
	// UserIDs must exist in the engine's database; each becomes one reader.
	UserIDs        []int
	NumViewers     int
	SimulationTime time.Duration
	TickInterval   time.Duration

	// Chance per reader per tick of each activity. Whatever is left over
	// is an idle tick.
	ReplyChance    float64
	VoteChance     float64
	ReadChance     float64
	MarkChance     float64
	CollapseChance float64

	ZipfS     float64
	EngineURL string
	JWTSecret string
	Seed      int64
}

// DefaultSimConfig matches the users in testdata/page.yaml.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		UserIDs:        []int{100, 101, 102},
		NumViewers:     5,
		SimulationTime: time.Minute,
		TickInterval:   200 * time.Millisecond,
		ReplyChance:    0.05,
		VoteChance:     0.15,
		ReadChance:     0.30,
		MarkChance:     0.05,
		CollapseChance: 0.05,
		ZipfS:          1.07,
		EngineURL:      "http://localhost:8080",
		Seed:           time.Now().UnixNano(),
	}
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	ActionCounts     map[store.ActionKind]int
	NoticesReceived  int64
	RequestLatencies []time.Duration
}

// SimulatedReader is one logged-in user acting on the page.
type SimulatedReader struct {
	UserID    int
	Token     string
	Posts     []models.PostID
	Voted     map[models.PostID]bool
	Collapsed map[models.PostID]bool
}

type Simulator struct {
	config  SimConfig
	stats   *SimulationStats
	readers []*SimulatedReader
	client  *http.Client
	logger  *slog.Logger

	// session is held across a login and the write that follows it, since
	// the page applies writes to its one logged-in user.
	session  sync.Mutex
	loggedIn int

	// mu guards the page knowledge and the random source.
	mu         sync.Mutex
	posts      map[models.PostID]*models.Post
	postIDs    []models.PostID
	nextPostID models.PostID
	rng        *rand.Rand
}

func NewSimulator(config SimConfig, logger *slog.Logger) *Simulator {
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime:    time.Now(),
			ActionCounts: make(map[store.ActionKind]int),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		posts:  make(map[models.PostID]*models.Post),
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("starting simulation", "readers", len(s.config.UserIDs), "viewers", s.config.NumViewers)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup
	for _, reader := range s.readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.simulateReader(ctx, reader)
		}()
	}
	for i := 0; i < s.config.NumViewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.simulateViewer(ctx); err != nil {
				s.logger.Warn("viewer stopped", "error", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	if len(s.config.UserIDs) == 0 {
		return fmt.Errorf("no user ids to simulate")
	}
	auth := middleware.NewAuthenticator(s.config.JWTSecret, s.logger)
	for _, userID := range s.config.UserIDs {
		token, err := auth.GenerateToken(userID)
		if err != nil {
			return fmt.Errorf("token for user %d: %w", userID, err)
		}
		s.readers = append(s.readers, &SimulatedReader{
			UserID:    userID,
			Token:     token,
			Voted:     make(map[models.PostID]bool),
			Collapsed: make(map[models.PostID]bool),
		})
	}
	return s.loadPage(ctx)
}

// loadPage learns the current posts so replies and votes target real ones.
func (s *Simulator) loadPage(ctx context.Context) error {
	resp, err := s.makeRequest(ctx, http.MethodGet, "/page", "", nil)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	var page models.PageStore
	if err := json.Unmarshal(resp, &page); err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, post := range page.AllPosts {
		if id == models.TitleID {
			continue
		}
		s.posts[id] = post
		s.postIDs = append(s.postIDs, id)
		if id >= s.nextPostID {
			s.nextPostID = id + 1
		}
	}
	if len(s.postIDs) == 0 {
		return fmt.Errorf("page %s has no posts to reply to", page.PageID)
	}
	slices.Sort(s.postIDs)
	s.logger.Info("page loaded", "page_id", page.PageID, "posts", len(s.postIDs))
	return nil
}

func (s *Simulator) simulateReader(ctx context.Context, reader *SimulatedReader) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.act(ctx, reader); err != nil && ctx.Err() == nil {
				s.logger.Debug("activity failed", "user_id", reader.UserID, "error", err)
			}
		}
	}
}

// simulateViewer holds a websocket open and counts change notices.
func (s *Simulator) simulateViewer(ctx context.Context) error {
	wsURL := "ws" + strings.TrimPrefix(s.config.EngineURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &frame) == nil && frame.Type == "change" {
			s.stats.mu.Lock()
			s.stats.NoticesReceived++
			s.stats.mu.Unlock()
		}
	}
}

// sendAction posts one action as reader.
func (s *Simulator) sendAction(ctx context.Context, reader *SimulatedReader, action store.Action) error {
	body, err := store.EncodeAction(action)
	if err != nil {
		return err
	}
	if _, err := s.makeRequest(ctx, http.MethodPost, "/actions", reader.Token, body); err != nil {
		return fmt.Errorf("%s: %w", action.Kind(), err)
	}
	s.stats.mu.Lock()
	s.stats.ActionCounts[action.Kind()]++
	s.stats.mu.Unlock()
	return nil
}

// sendAsPageUser logs reader in on the page, unless they already are, and
// sends action as them.
func (s *Simulator) sendAsPageUser(ctx context.Context, reader *SimulatedReader, action store.Action) error {
	s.session.Lock()
	defer s.session.Unlock()
	if s.loggedIn != reader.UserID {
		if _, err := s.makeRequest(ctx, http.MethodPost, "/login", reader.Token, nil); err != nil {
			return fmt.Errorf("login as %d: %w", reader.UserID, err)
		}
		s.loggedIn = reader.UserID
	}
	return s.sendAction(ctx, reader, action)
}

// Helper method to make HTTP requests
func (s *Simulator) makeRequest(ctx context.Context, method, endpoint, token string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		// Requests cut off by the end of the run are not failures.
		if ctx.Err() == nil {
			s.recordRequestMetrics(start, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err = fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}
	s.recordRequestMetrics(start, err)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)

	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.logger.Info("simulation progress",
				"requests_per_sec", fmt.Sprintf("%.2f", m.RequestsPerSecond),
				"failed", m.ErrorCount,
				"avg_latency", m.AverageLatency,
				"p95_latency", m.P95Latency,
				"replies", m.ActionCounts[store.KindUpdatePost],
				"votes", m.ActionCounts[store.KindVoteOnPost],
				"notices", m.NoticesReceived)
		}
	}
}

// SimulationMetrics holds the metrics of the simulation
type SimulationMetrics struct {
	TotalRequests     int64
	ErrorCount        int64
	AverageLatency    time.Duration
	P50Latency        time.Duration
	P95Latency        time.Duration
	RequestsPerSecond float64
	ActionCounts      map[store.ActionKind]int
	NoticesReceived   int64
	KnownPosts        int
}

// GetMetrics returns the current simulation metrics
func (s *Simulator) GetMetrics() SimulationMetrics {
	s.stats.mu.RLock()
	elapsed := time.Since(s.stats.StartTime)
	m := SimulationMetrics{
		TotalRequests:     s.stats.TotalRequests,
		ErrorCount:        s.stats.FailedRequests,
		AverageLatency:    s.stats.AverageLatency,
		P50Latency:        percentile(s.stats.RequestLatencies, 0.50),
		P95Latency:        percentile(s.stats.RequestLatencies, 0.95),
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
		ActionCounts:      make(map[store.ActionKind]int, len(s.stats.ActionCounts)),
		NoticesReceived:   s.stats.NoticesReceived,
	}
	for kind, n := range s.stats.ActionCounts {
		m.ActionCounts[kind] = n
	}
	s.stats.mu.RUnlock()

	s.mu.Lock()
	m.KnownPosts = len(s.postIDs)
	s.mu.Unlock()
	return m
}

// percentile returns the nearest-rank percentile of latencies.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	rank := int(p*float64(len(sorted))+0.5) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}
