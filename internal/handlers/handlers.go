package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"threadview/internal/api"
	"threadview/internal/database"
	"threadview/internal/engine"
	"threadview/internal/middleware"
	"threadview/internal/utils"
	"threadview/internal/websocket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies. An UpdatePost carries one post.
const maxBodyBytes = 1 << 20

// Server holds all server dependencies, including the engine that owns the
// page store
type Server struct {
	Engine         *engine.Engine
	DB             database.DBAdapter
	Hub            *websocket.Hub
	Auth           *middleware.Authenticator
	Metrics        *utils.MetricsCollector
	PageID         string
	AllowedOrigins []string
	RequestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer creates a new Server instance with the given components
func NewServer(
	eng *engine.Engine,
	db database.DBAdapter,
	hub *websocket.Hub,
	auth *middleware.Authenticator,
	metrics *utils.MetricsCollector,
	pageID string,
	allowedOrigins []string,
	logger *slog.Logger,
) *Server {
	return &Server{
		Engine:         eng,
		DB:             db,
		Hub:            hub,
		Auth:           auth,
		Metrics:        metrics,
		PageID:         pageID,
		AllowedOrigins: allowedOrigins,
		RequestTimeout: 5 * time.Second, // Default timeout for engine and database calls
		logger:         logger,
	}
}

// Routes registers every endpoint and wraps the mux with CORS.
func (s *Server) Routes(metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth())
	mux.HandleFunc("/page", s.HandlePage())
	mux.HandleFunc("/actions", s.HandleActions())
	mux.HandleFunc("/login", s.Auth.Require(s.HandleLogin()))
	mux.HandleFunc("/logout", s.Auth.Require(s.HandleLogout()))
	mux.HandleFunc("/read-progress", s.Auth.Require(s.HandleReadProgress()))
	mux.HandleFunc("/ws", s.HandleWebSocket())
	if metricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.AllowedOrigins))(mux)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// writeError answers with the status that matches the error code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := utils.HTTPStatusFor(err)
	code := utils.ErrInternal
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	if status >= http.StatusInternalServerError {
		s.Metrics.IncrementErrors()
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, api.ErrorResponse{Code: code, Message: err.Error()})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// originAllowed reports whether a websocket upgrade may come from the
// request's origin.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.AllowedOrigins, "*") || slices.Contains(s.AllowedOrigins, origin)
}
