package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// CreateSale godoc
// @Summary Create a sale
// @Description Sell the scanned units in one bill. Either every unit is sold or none is.
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateSaleRequest true "Bill"
// @Success 201 {object} map[string]interface{} "data: models.SaleView"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "a unit is already sold"
// @Router /api/v1/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req models.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sale, err := h.saleService.CreateSale(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Sale created", sale)
}

// ListSales godoc
// @Summary List sales
// @Description Newest first. Staff only see the sales they made.
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{} "data: []models.SaleView"
// @Router /api/v1/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	page, pageSize := paginationFrom(c)
	sales, total, err := h.saleService.ListSales(actorFrom(c), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, sales, total, page, pageSize)
}

// GetByBillNo godoc
// @Summary Get a sale by bill number
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param no query string true "Bill number, e.g. INV/2026/00001"
// @Success 200 {object} map[string]interface{} "data: models.SaleView"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/sales/bill [get]
func (h *SaleHandler) GetByBillNo(c *gin.Context) {
	sale, err := h.saleService.GetByBillNo(actorFrom(c), c.Query("no"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Sale retrieved", sale)
}
