package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

type stubResolver map[string]*service.Session

func (r stubResolver) ResolveSession(token string) *service.Session {
	return r[token]
}

var testSessions = stubResolver{
	"admin-token":    {UserID: "u-admin", Email: "root@academia.test", Role: model.RoleAdmin},
	"employee-token": {UserID: "u-emp", Email: "a@x.com", Role: model.RoleEmployee},
}

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router, NewAuthMiddleware(testSessions)
}

func whoAmI(c *gin.Context) {
	session := GetSession(c)
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"user_id": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": session.UserID})
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.Authenticate(), whoAmI)

	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer header", header: "Bearer admin-token", want: "u-admin"},
		{name: "lowercase scheme", header: "bearer employee-token", want: "u-emp"},
		{name: "cookie", cookie: "employee-token", want: "u-emp"},
		{name: "header wins over cookie", header: "Bearer admin-token", cookie: "employee-token", want: "u-admin"},
		{name: "no token is anonymous", want: ""},
		{name: "invalid token is anonymous", header: "Bearer forged", want: ""},
		{name: "wrong scheme is anonymous", header: "Basic admin-token", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"user_id":"`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/me", auth.Authenticate(), auth.RequireAuth(), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer employee-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/admin", auth.Authenticate(), auth.RequireAdmin(), whoAmI)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "employee", token: "employee-token", status: http.StatusForbidden},
		{name: "admin", token: "admin-token", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/registration/:token", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/registration/secret", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/registration/secret", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
}
