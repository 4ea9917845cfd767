package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
	apperrors "github.com/wintergreen/academia-backend/internal/errors"
	"github.com/wintergreen/academia-backend/internal/middleware"
)

type AuthController struct {
	authService  service.AuthService
	cookieSecure bool
}

func NewAuthController(authService service.AuthService, cookieSecure bool) *AuthController {
	return &AuthController{
		authService:  authService,
		cookieSecure: cookieSecure,
	}
}

type BootstrapRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Key      string `json:"key" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Bootstrap creates the first admin account
// POST /api/auth/bootstrap
func (ctrl *AuthController) Bootstrap(c *gin.Context) {
	var req BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctrl.authService.BootstrapAdmin(req.Email, req.Password, req.Key)
	if err != nil {
		respondError(c, err, "bootstrap admin")
		return
	}

	ctrl.setSessionCookie(c, result)
	c.JSON(http.StatusCreated, gin.H{
		"role":       result.User.Role,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

// Login
// POST /api/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err, "login")
		return
	}

	log.Info("User logged in", map[string]interface{}{
		"user_id": result.User.ID,
		"role":    result.User.Role,
	})

	ctrl.setSessionCookie(c, result)
	c.JSON(http.StatusOK, gin.H{
		"role":       result.User.Role,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

// Logout clears the session cookie. Tokens stay valid until they expire.
// POST /api/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", ctrl.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the caller's account
// GET /api/me
func (ctrl *AuthController) Me(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		apperrors.Unauthorized(c, "")
		return
	}

	account, err := ctrl.authService.GetAccount(session.UserID)
	if err != nil {
		respondError(c, err, "load profile")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (ctrl *AuthController) setSessionCookie(c *gin.Context, result *service.AuthResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, result.Token, maxAge, "/", "", ctrl.cookieSecure, true)
}
