package handlers

import (
	"net/http"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// StockHandler serves stock batches and their barcoded units
type StockHandler struct {
	stockService *services.StockService
}

func NewStockHandler(stockService *services.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// ReceiveBatch godoc
// @Summary Receive stock
// @Description Record a batch and generate one unique 8-digit barcode per piece
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ReceiveBatchRequest true "Batch"
// @Success 201 {object} map[string]interface{} "data: models.StockBatch"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/stock-batches [post]
func (h *StockHandler) ReceiveBatch(c *gin.Context) {
	var req models.ReceiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	batch, err := h.stockService.ReceiveBatch(actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Stock received", gin.H{
		"batch":    batch,
		"barcodes": batch.Codes(),
	})
}

// ListBatches godoc
// @Summary List stock batches
// @Description Newest first with their unit codes. Staff only see their own location.
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param location query int false "Location ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{} "data: []models.StockBatch"
// @Router /api/v1/stock-batches [get]
func (h *StockHandler) ListBatches(c *gin.Context) {
	locationID, ok := optionalUintQuery(c, "location")
	if !ok {
		return
	}
	page, pageSize := paginationFrom(c)

	batches, total, err := h.stockService.ListBatches(actorFrom(c), locationID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, batches, total, page, pageSize)
}

// GetBatch godoc
// @Summary Get a stock batch
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param id path int true "Batch ID"
// @Success 200 {object} map[string]interface{} "data: models.StockBatch"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/stock-batches/{id} [get]
func (h *StockHandler) GetBatch(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	batch, err := h.stockService.GetBatch(actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Stock batch retrieved", batch)
}

// DeleteBatch godoc
// @Summary Delete a stock batch
// @Description Removes the batch and its units. Batches with sold units cannot be deleted.
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param id path int true "Batch ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/stock-batches/{id} [delete]
func (h *StockHandler) DeleteBatch(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.stockService.DeleteBatch(actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Stock batch deleted", nil)
}

// LookupUnit godoc
// @Summary Look up a sellable unit
// @Description Price and tax rates of an unsold unit, used at the counter
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param code query string true "Unit barcode"
// @Success 200 {object} map[string]interface{} "data: models.UnitInfo"
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "unit already sold"
// @Router /api/v1/units/lookup [get]
func (h *StockHandler) LookupUnit(c *gin.Context) {
	info, err := h.stockService.LookupSellableUnit(actorFrom(c), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Unit found", info)
}

// UnitBarcode godoc
// @Summary Barcode label
// @Description Code 128 PNG of a unit code for label printing
// @Tags stock
// @Produce png
// @Security BearerAuth
// @Param code path string true "Unit barcode"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/units/{code}/barcode.png [get]
func (h *StockHandler) UnitBarcode(c *gin.Context) {
	img, err := h.stockService.UnitLabel(actorFrom(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, "image/png", img)
}
