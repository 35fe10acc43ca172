package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves locations, inventory categories, product groups and sub-groups
type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListLocations godoc
// @Summary List locations
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name filter"
// @Success 200 {object} map[string]interface{} "data: []models.Location"
// @Router /api/v1/locations [get]
func (h *CatalogHandler) ListLocations(c *gin.Context) {
	locations, err := h.catalogService.ListLocations(actorFrom(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Locations retrieved", locations)
}

// CreateLocation godoc
// @Summary Create a location
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LocationRequest true "Location"
// @Success 201 {object} map[string]interface{} "data: models.Location"
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/locations [post]
func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	location, err := h.catalogService.CreateLocation(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Location created", location)
}

// UpdateLocation godoc
// @Summary Rename a location
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Location ID"
// @Param request body models.LocationRequest true "Location"
// @Success 200 {object} map[string]interface{} "data: models.Location"
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/locations/{id} [put]
func (h *CatalogHandler) UpdateLocation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	location, err := h.catalogService.UpdateLocation(actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Location updated", location)
}

// DeleteLocation godoc
// @Summary Delete a location
// @Description Locations holding stock or sales cannot be deleted
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Location ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/locations/{id} [delete]
func (h *CatalogHandler) DeleteLocation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteLocation(actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Location deleted", nil)
}

// ListCategories godoc
// @Summary List inventory categories
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name filter"
// @Success 200 {object} map[string]interface{} "data: []models.InventoryCategory"
// @Router /api/v1/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(actorFrom(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Categories retrieved", categories)
}

// GetCategory godoc
// @Summary Get an inventory category
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} map[string]interface{} "data: models.InventoryCategory"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/categories/{id} [get]
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	category, err := h.catalogService.GetCategory(actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Category retrieved", category)
}

// CreateCategory godoc
// @Summary Create an inventory category
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CategoryRequest true "Category"
// @Success 201 {object} map[string]interface{} "data: models.InventoryCategory"
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.catalogService.CreateCategory(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Category created", category)
}

// UpdateCategory godoc
// @Summary Update an inventory category
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param request body models.CategoryRequest true "Category"
// @Success 200 {object} map[string]interface{} "data: models.InventoryCategory"
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.catalogService.UpdateCategory(actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory godoc
// @Summary Delete an inventory category
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Category deleted", nil)
}

// ListGroups godoc
// @Summary List product groups
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or HSN code"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{} "data: []models.ProductGroup"
// @Router /api/v1/product-groups [get]
func (h *CatalogHandler) ListGroups(c *gin.Context) {
	page, pageSize := paginationFrom(c)
	groups, total, err := h.catalogService.ListGroups(actorFrom(c), c.Query("search"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, groups, total, page, pageSize)
}

// GetGroup godoc
// @Summary Get a product group
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]interface{} "data: models.ProductGroup"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/product-groups/{id} [get]
func (h *CatalogHandler) GetGroup(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	group, err := h.catalogService.GetGroup(actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Product group retrieved", group)
}

// CreateGroup godoc
// @Summary Create a product group
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProductGroupRequest true "Group"
// @Success 201 {object} map[string]interface{} "data: models.ProductGroup"
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/product-groups [post]
func (h *CatalogHandler) CreateGroup(c *gin.Context) {
	var req models.ProductGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := h.catalogService.CreateGroup(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Product group created", group)
}

// UpdateGroup godoc
// @Summary Update a product group
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param request body models.ProductGroupRequest true "Group"
// @Success 200 {object} map[string]interface{} "data: models.ProductGroup"
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/product-groups/{id} [put]
func (h *CatalogHandler) UpdateGroup(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.ProductGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := h.catalogService.UpdateGroup(actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Product group updated", group)
}

// DeleteGroup godoc
// @Summary Delete a product group
// @Description Deletes its sub-groups too. Groups with stock cannot be deleted.
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/product-groups/{id} [delete]
func (h *CatalogHandler) DeleteGroup(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteGroup(actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Product group deleted", nil)
}

// ListSubGroups godoc
// @Summary List product sub-groups
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param group query int false "Group ID"
// @Success 200 {object} map[string]interface{} "data: []models.ProductSubGroup"
// @Router /api/v1/product-subgroups [get]
func (h *CatalogHandler) ListSubGroups(c *gin.Context) {
	groupID, ok := optionalUintQuery(c, "group")
	if !ok {
		return
	}
	var id uint
	if groupID != nil {
		id = *groupID
	}

	subs, err := h.catalogService.ListSubGroups(actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Product sub-groups retrieved", subs)
}

// CreateSubGroup godoc
// @Summary Create a product sub-group
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProductSubGroupRequest true "Sub-group"
// @Success 201 {object} map[string]interface{} "data: models.ProductSubGroup"
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/product-subgroups [post]
func (h *CatalogHandler) CreateSubGroup(c *gin.Context) {
	var req models.ProductSubGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sub, err := h.catalogService.CreateSubGroup(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Product sub-group created", sub)
}

// DeleteSubGroup godoc
// @Summary Delete a product sub-group
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sub-group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/product-subgroups/{id} [delete]
func (h *CatalogHandler) DeleteSubGroup(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteSubGroup(actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Product sub-group deleted", nil)
}
