package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"threadview/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

const issuer = "threadview"

// Claims represents the JWT claims for our application
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks HS256 tokens signed with one secret.
type Authenticator struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		now:    time.Now,
		logger: logger,
	}
}

// GenerateToken creates a new JWT token for the given user ID
func (a *Authenticator) GenerateToken(userID int) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   strconv.Itoa(userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates the provided JWT token
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "invalid token", nil)
	}
	if claims.UserID == 0 {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "token has no user", nil)
	}
	return claims, nil
}

// Require wraps a handler so it only runs with a valid bearer token. The
// user ID from the token is put in the request context.
func (a *Authenticator) Require(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			a.logger.Warn("JWT rejected", "path", r.URL.Path, "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		handler(w, r.WithContext(SetUserIDInContext(r.Context(), claims.UserID)))
	}
}

// Optional reads a bearer token if one is sent. It returns 0 for a
// request without one, and an error for a token that does not validate.
func (a *Authenticator) Optional(r *http.Request) (int, error) {
	tokenString := r.URL.Query().Get("token")
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		var ok bool
		tokenString, ok = strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			return 0, utils.NewAppError(utils.ErrInvalidToken, "invalid authorization format", nil)
		}
	}
	if tokenString == "" {
		return 0, nil
	}
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// Define a custom context key type to avoid collisions
type contextKey string

// UserIDKey is the key used to store the user ID in the context
const UserIDKey contextKey = "user_id"

// SetUserIDInContext saves the user ID in the request context
func SetUserIDInContext(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}
