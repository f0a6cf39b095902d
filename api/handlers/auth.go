package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/auth"
	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	users       UserStore
	authService *auth.Service
	cookie      CookieConfig
}

func NewAuthHandler(users UserStore, authService *auth.Service, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		users:       users,
		authService: authService,
		cookie:      cookie,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, queries.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		logger.ErrorCtxf(ctx, "Login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	expiresIn := int(h.authService.TTL().Seconds())

	if h.cookie.Name != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(h.cookie.Name, token, expiresIn, "/", "", h.cookie.Secure, true)
	}

	logger.InfoCtxf(ctx, "User %s logged in", user.Username)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Username:  user.Username,
	})
}
