package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the caller's own account
type ProfileHandler struct {
	userService *services.UserService
}

func NewProfileHandler(userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Get current user profile information
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "data: models.User"
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Profile retrieved", user)
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Update name, date of birth and gender. Staff accounts cannot edit their profile.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} map[string]interface{} "data: models.User"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/auth/profile [patch]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Profile updated", user)
}

// UpdateFCMToken godoc
// @Summary Update push token
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateFCMTokenRequest true "FCM token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/fcm-token [post]
func (h *ProfileHandler) UpdateFCMToken(c *gin.Context) {
	var req models.UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.UpdateFCMToken(actorFrom(c), req.FCMToken); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "FCM token updated", nil)
}

// Dashboard godoc
// @Summary User dashboard
// @Description Role, location and push status of the caller
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "data: models.UserDashboard"
// @Router /api/v1/auth/dashboard [get]
func (h *ProfileHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.userService.Dashboard(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Dashboard retrieved", dashboard)
}

// ListRecoveryContacts godoc
// @Summary List recovery contacts
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "data: []models.RecoveryContact"
// @Router /api/v1/auth/recovery-contacts [get]
func (h *ProfileHandler) ListRecoveryContacts(c *gin.Context) {
	contacts, err := h.userService.ListRecoveryContacts(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Recovery contacts retrieved", contacts)
}

// AddRecoveryContact godoc
// @Summary Add a recovery contact
// @Description Register an email or phone number and send it a verification code
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AddRecoveryContactRequest true "Contact"
// @Success 201 {object} map[string]interface{} "data: models.RecoveryContact"
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/recovery-contacts [post]
func (h *ProfileHandler) AddRecoveryContact(c *gin.Context) {
	var req models.AddRecoveryContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contact, err := h.userService.AddRecoveryContact(actorFrom(c), req.Contact)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Verification code sent", contact)
}

// VerifyRecoveryContact godoc
// @Summary Verify a recovery contact
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.VerifyRecoveryContactRequest true "Contact and code"
// @Success 200 {object} map[string]interface{} "data: models.RecoveryContact"
// @Failure 400 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/v1/auth/recovery-contacts/verify [post]
func (h *ProfileHandler) VerifyRecoveryContact(c *gin.Context) {
	var req models.VerifyRecoveryContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contact, err := h.userService.VerifyRecoveryContact(actorFrom(c), req.Contact, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Recovery contact verified", contact)
}
