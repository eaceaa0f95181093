// Package appctx carries the per-request application context: who is logged
// in, which session the request belongs to and which branch the user has
// selected. It is built once per request by Middleware and passed down
// explicitly through context.Context.
package appctx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

type contextKey struct{}

// Context is the cross-page state every view can read.
type Context struct {
	SessionID     string   `json:"sessionId"`
	UserID        string   `json:"userId,omitempty"`
	UserName      string   `json:"userName,omitempty"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles"`
	BranchID      string   `json:"branchId,omitempty"`
	Authenticated bool     `json:"authenticated"`
}

// HasRole reports whether the user holds role.
func (a Context) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Claims is the identity carried by the session token.
type Claims struct {
	jwt.RegisteredClaims
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	BranchID string   `json:"branch_id"`
}

// WithContext returns ctx carrying a.
func WithContext(ctx context.Context, a Context) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the application context stored in ctx.
func FromContext(ctx context.Context) (Context, bool) {
	a, ok := ctx.Value(contextKey{}).(Context)
	return a, ok
}

// From returns the application context of an echo request, or a zero
// Context when the middleware did not run.
func From(c echo.Context) Context {
	a, _ := FromContext(c.Request().Context())
	return a
}

// BranchStore keeps the selected branch per session.
type BranchStore struct {
	mu       sync.RWMutex
	branches map[string]string
}

func NewBranchStore() *BranchStore {
	return &BranchStore{branches: make(map[string]string)}
}

func (s *BranchStore) Get(session string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[session]
	return b, ok
}

// Set selects branch for session. An empty branch clears the selection.
func (s *BranchStore) Set(session, branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if branch == "" {
		delete(s.branches, session)
		return
	}
	s.branches[session] = branch
}

func (s *BranchStore) Forget(session string) {
	s.Set(session, "")
}

// Config configures Middleware.
type Config struct {
	CookieName string
	// SigningKey verifies the session token when set. Without it the token
	// is decoded but not verified: the backend remains the authority on
	// every request it receives.
	SigningKey []byte
	Branches   *BranchStore
	Logger     zerolog.Logger
}

// Middleware builds the application context from the session cookie and
// attaches the cookie as backend credentials for every outbound call.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Branches == nil {
		cfg.Branches = NewBranchStore()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			a := Context{SessionID: sessionID(cookie.Value)}
			claims, err := decode(cookie.Value, cfg.SigningKey)
			switch {
			case err == nil:
				a.UserID = claims.Subject
				a.UserName = claims.Name
				a.Email = claims.Email
				a.Roles = claims.Roles
				a.BranchID = claims.BranchID
				a.Authenticated = true
				// An unverified jti is caller-chosen and must not pick the
				// cache scope or dialog owner.
				if claims.ID != "" && len(cfg.SigningKey) > 0 {
					a.SessionID = claims.ID
				}
			case len(cfg.SigningKey) > 0:
				cfg.Logger.Warn().Err(err).Msg("rejected session token")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}
			if a.Roles == nil {
				a.Roles = []string{}
			}
			if b, ok := cfg.Branches.Get(a.SessionID); ok {
				a.BranchID = b
			}

			rid, _ := c.Get("request_id").(string)
			ctx := c.Request().Context()
			ctx = apiclient.WithCredentials(ctx, cookie)
			ctx = apiclient.WithRequestID(ctx, rid)
			ctx = WithContext(ctx, a)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", a.UserID)
			c.Set("session_id", a.SessionID)

			return next(c)
		}
	}
}

// decode parses the session token. An opaque (non-JWT) session value yields
// an error, which is fatal only when a signing key is configured.
func decode(raw string, key []byte) (*Claims, error) {
	claims := &Claims{}
	if len(key) > 0 {
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil {
			return nil, err
		}
		if !token.Valid {
			return nil, jwt.ErrTokenInvalidClaims
		}
		return claims, nil
	}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// sessionID derives a stable, log-safe key from the raw cookie value.
func sessionID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:12])
}
