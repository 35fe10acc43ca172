package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves the public account flows: signup, password recovery and
// first superuser bootstrap
type AccountHandler struct {
	userService *services.UserService
}

func NewAccountHandler(userService *services.UserService) *AccountHandler {
	return &AccountHandler{userService: userService}
}

// SignupSendOTP godoc
// @Summary Start signup
// @Description Check the username and contacts are free and send a 6-digit code to the email or phone
// @Tags signup
// @Accept json
// @Produce json
// @Param request body models.SignupSendOTPRequest true "Signup request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/signup/send-otp [post]
func (h *AccountHandler) SignupSendOTP(c *gin.Context) {
	var req models.SignupSendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.SignupSendOTP(&req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "OTP sent", nil)
}

// SignupVerifyOTP godoc
// @Summary Verify signup code
// @Tags signup
// @Accept json
// @Produce json
// @Param request body models.VerifyOTPRequest true "Contact and code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/v1/signup/verify-otp [post]
func (h *AccountHandler) SignupVerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.SignupVerifyOTP(&req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "OTP verified", nil)
}

// CompleteSignup godoc
// @Summary Complete signup
// @Description Create the account after its email or phone code was verified and log in
// @Tags signup
// @Accept json
// @Produce json
// @Param request body models.CompleteSignupRequest true "Account details"
// @Success 201 {object} map[string]interface{} "data: models.AuthResponse"
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/v1/signup/complete [post]
func (h *AccountHandler) CompleteSignup(c *gin.Context) {
	var req models.CompleteSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.CompleteSignup(&req, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Account created", response)
}

// ForgotPasswordSendOTP godoc
// @Summary Request a password reset code
// @Tags password
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordSendOTPRequest true "Recovery contact"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/forgot-password/send-otp [post]
func (h *AccountHandler) ForgotPasswordSendOTP(c *gin.Context) {
	var req models.ForgotPasswordSendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ForgotPasswordSendOTP(req.Contact); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "OTP sent", nil)
}

// ForgotPasswordVerifyOTP godoc
// @Summary Verify a password reset code
// @Tags password
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordVerifyOTPRequest true "Contact and code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/v1/forgot-password/verify-otp [post]
func (h *AccountHandler) ForgotPasswordVerifyOTP(c *gin.Context) {
	var req models.ForgotPasswordVerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ForgotPasswordVerifyOTP(req.Contact, req.OTP); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "OTP verified", nil)
}

// ResetPassword godoc
// @Summary Reset password
// @Description Set a new password with a verified reset code. Every session of the account is revoked.
// @Tags password
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordResetRequest true "Reset request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/v1/forgot-password/reset [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req models.ForgotPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ResetPassword(req.Contact, req.OTP, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Password reset successfully", nil)
}

// CreateFirstSuperuser godoc
// @Summary Create the first superuser
// @Description Only succeeds while no superuser exists
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.CreateSuperuserRequest true "Superuser credentials"
// @Success 201 {object} map[string]interface{} "data: models.ProvisionedUser"
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/superuser/create [post]
func (h *AccountHandler) CreateFirstSuperuser(c *gin.Context) {
	var req models.CreateSuperuserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.CreateFirstSuperuser(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Superuser created", user)
}
