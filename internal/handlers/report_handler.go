package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/services"
	"github.com/onegreenvn/stockplus-backend/internal/services/excel"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReportHandler serves the dashboard, the detailed report and its Excel export
type ReportHandler struct {
	reportService *services.ReportService
	excelService  *excel.Service
}

func NewReportHandler(reportService *services.ReportService, excelService *excel.Service) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		excelService:  excelService,
	}
}

// Dashboard godoc
// @Summary Sales dashboard
// @Description Today's revenue, bills and recent sales with current stock. Staff see their own sales and location.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "data: models.SalesDashboard"
// @Router /api/v1/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reportService.Dashboard(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Dashboard retrieved", dashboard)
}

func (h *ReportHandler) bindQuery(c *gin.Context) (models.ReportQuery, bool) {
	var q models.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return q, false
	}
	locationID, ok := optionalUintQuery(c, "location")
	if !ok {
		return q, false
	}
	q.LocationID = locationID
	return q, true
}

// DetailedReport godoc
// @Summary Detailed report
// @Description One row per sold unit (type=sales) or per received unit (type=inventory). Dates are inclusive.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param type query string false "sales or inventory" default(sales)
// @Param start_date query string false "YYYY-MM-DD, defaults to today"
// @Param end_date query string false "YYYY-MM-DD, defaults to start_date"
// @Param location query int false "Location ID (admins only)"
// @Success 200 {object} map[string]interface{} "data: models.DetailedReport"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/reports/detailed [get]
func (h *ReportHandler) DetailedReport(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	report, err := h.reportService.DetailedReport(actorFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Report generated", report)
}

// ExportReport godoc
// @Summary Export the detailed report to Excel
// @Description Same filters as the detailed report, downloaded as an xlsx file
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param type query string false "sales or inventory" default(sales)
// @Param start_date query string false "YYYY-MM-DD, defaults to today"
// @Param end_date query string false "YYYY-MM-DD, defaults to start_date"
// @Param location query int false "Location ID (admins only)"
// @Success 200 {file} binary "Excel file"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/reports/detailed/export [get]
func (h *ReportHandler) ExportReport(c *gin.Context) {
	actor := actorFrom(c)
	if err := policy.Authorize(actor, policy.OpExportReport); err != nil {
		respondError(c, err)
		return
	}
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	report, err := h.reportService.DetailedReport(actor, q)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.excelService.ExportReport(report)
	if err != nil {
		respondError(c, apperror.Storage("export report", err))
		return
	}

	// Set headers for file download
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	c.Header("Cache-Control", "must-revalidate")
	c.Header("Pragma", "public")

	c.File(result.Path)

	// exports are one-shot
	if err := os.Remove(result.Path); err != nil {
		logrus.Warnf("Failed to remove export %s: %v", result.Path, err)
	}
}
