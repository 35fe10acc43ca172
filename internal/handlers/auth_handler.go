package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/services"
	"github.com/onegreenvn/stockplus-backend/internal/services/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *auth.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *auth.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Login godoc
// @Summary Login user
// @Description Authenticate with a username, email or phone number and a password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} map[string]interface{} "data: models.AuthResponse"
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.Login(&req, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Login successful", response)
}

// RefreshToken godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair. The old refresh token is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshTokenRequest true "Refresh token request"
// @Success 200 {object} map[string]interface{} "data: models.AuthResponse"
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.RefreshToken(req.RefreshToken, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Token refreshed", response)
}

// CheckUsername godoc
// @Summary Check username availability
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CheckUsernameRequest true "Username"
// @Success 200 {object} map[string]interface{} "data.available"
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/check-username [post]
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	var req models.CheckUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	available, err := h.userService.CheckUsername(req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Username is available"
	if !available {
		message = "Username is already taken"
	}
	respondOK(c, http.StatusOK, message, gin.H{"username": req.Username, "available": available})
}

// Logout godoc
// @Summary Logout user
// @Description Revoke the given refresh token, or every session when none is sent
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LogoutRequest false "Logout request"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := actorFrom(c)
	if err := policy.Authorize(actor, policy.OpLogout); err != nil {
		respondError(c, err)
		return
	}

	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// If no refresh token provided, logout from all sessions
		req.RefreshToken = ""
	}

	if err := h.authService.Logout(req.RefreshToken, actor.ID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Logged out successfully", nil)
}

// ChangePassword godoc
// @Summary Change user password
// @Description Change the current user's password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Change password request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor := actorFrom(c)
	if err := policy.Authorize(actor, policy.OpChangePassword); err != nil {
		respondError(c, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Password changed successfully", nil)
}
