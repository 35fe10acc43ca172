package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler manages admin and staff accounts
type AdminHandler struct {
	userService *services.UserService
}

func NewAdminHandler(userService *services.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

// CreateAdmin godoc
// @Summary Create an admin (Superuser only)
// @Description The username is derived from the email address
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateAdminRequest true "Admin account"
// @Success 201 {object} map[string]interface{} "data: models.ProvisionedUser"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admins [post]
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req models.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.CreateAdmin(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Admin created", user)
}

// ListAdmins godoc
// @Summary List admins (Superuser only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{} "data: []models.AdminSummary"
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/admins [get]
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	page, pageSize := paginationFrom(c)
	admins, total, err := h.userService.ListAdmins(actorFrom(c), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, admins, total, page, pageSize)
}

// CreateStaff godoc
// @Summary Create a staff account (Admin or Superuser)
// @Description Admins are limited to a fixed number of staff accounts
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateStaffRequest true "Staff account"
// @Success 201 {object} map[string]interface{} "data: models.ProvisionedUser"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/v1/staff [post]
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	var req models.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.CreateStaff(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Staff created", user)
}

// ListStaff godoc
// @Summary List staff
// @Description Admins see the staff they created, superusers see all staff
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param search query string false "Username, email or name"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{} "data: []models.StaffSummary"
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/staff [get]
func (h *AdminHandler) ListStaff(c *gin.Context) {
	page, pageSize := paginationFrom(c)
	staff, total, err := h.userService.ListStaff(actorFrom(c), page, pageSize, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, staff, total, page, pageSize)
}

// UpdateStaff godoc
// @Summary Edit a staff account
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body models.UpdateStaffRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "data: models.User"
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/staff/{id} [patch]
func (h *AdminHandler) UpdateStaff(c *gin.Context) {
	var req models.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateStaff(actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Staff updated", user)
}

// ActivateStaff godoc
// @Summary Activate a staff account
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{} "data: models.User"
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/staff/{id}/activate [post]
func (h *AdminHandler) ActivateStaff(c *gin.Context) {
	h.setActive(c, true, "Staff activated")
}

// DeactivateStaff godoc
// @Summary Deactivate a staff account
// @Description A deactivated account cannot log in and its tokens stop working
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{} "data: models.User"
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/staff/{id}/deactivate [post]
func (h *AdminHandler) DeactivateStaff(c *gin.Context) {
	h.setActive(c, false, "Staff deactivated")
}

func (h *AdminHandler) setActive(c *gin.Context, active bool, message string) {
	user, err := h.userService.SetStaffActive(actorFrom(c), c.Param("id"), active)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, message, user)
}
