package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
	apperrors "github.com/wintergreen/academia-backend/internal/errors"
)

const (
	sessionKey = "session"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "auth_token"
)

// SessionResolver turns a bearer token into a session, or nil for anonymous callers.
type SessionResolver interface {
	ResolveSession(token string) *service.Session
}

type AuthMiddleware struct {
	sessions SessionResolver
}

func NewAuthMiddleware(sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate attaches the session when a valid token is present. It never rejects.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		session := m.sessions.ResolveSession(token)
		if session == nil {
			GetLoggerFromContext(c).Debug("Session token rejected, continuing as anonymous", nil)
			c.Next()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers with 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			apperrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and employees with 403.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			apperrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}
		if !session.IsAdmin() {
			GetLoggerFromContext(c).Warn("Admin route denied", map[string]interface{}{
				"user_id": session.UserID,
				"role":    session.Role,
			})
			apperrors.Forbidden(c, apperrors.AuthzAdminOnly, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken prefers the Authorization header over the cookie.
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// GetSession returns the caller's session or nil.
func GetSession(c *gin.Context) *service.Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*service.Session)
	return session
}
