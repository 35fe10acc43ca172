package services

import (
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	recentSalesLimit = 10
	reportDateLayout = "2006-01-02"
	// longest range a detailed report may cover
	maxReportDays = 366
)

// ReportService builds the dashboard and the detailed sales and inventory reports
type ReportService struct {
	reportRepo *repository.ReportRepository
	stockRepo  *repository.StockRepository
	now        func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{
		reportRepo: repository.NewReportRepository(db),
		stockRepo:  repository.NewStockRepository(db),
		now:        time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dashboard summarises today's sales and the current stock. Admins and superusers see
// everything; staff see their own sales and the stock of their location.
func (s *ReportService) Dashboard(actor policy.Actor) (*models.SalesDashboard, error) {
	if err := policy.Authorize(actor, policy.OpViewDashboard); err != nil {
		return nil, err
	}

	var scope repository.SalesScope
	var stockFilter *repository.LocationFilter
	if !policy.IsAdminOrSuperuser(actor) {
		scope.SoldByID = actor.ID
		stockFilter = &repository.LocationFilter{ID: actor.LocationID}
	}

	from := startOfDay(s.now())
	to := from.AddDate(0, 0, 1)

	revenue, discount, bills, err := s.reportRepo.SalesTotals(scope, from, to)
	if err != nil {
		return nil, apperror.Storage("sales totals", err)
	}
	inStock, err := s.stockRepo.CountUnits(stockFilter, true)
	if err != nil {
		return nil, apperror.Storage("count stock", err)
	}
	sold, err := s.stockRepo.CountUnits(stockFilter, false)
	if err != nil {
		return nil, apperror.Storage("count sold units", err)
	}
	recent, err := s.reportRepo.RecentSales(scope, from, to, recentSalesLimit)
	if err != nil {
		return nil, apperror.Storage("recent sales", err)
	}
	if recent == nil {
		recent = []models.RecentSale{}
	}

	return &models.SalesDashboard{
		UserRole:      actor.Role,
		CurrentStock:  inStock,
		ItemsSold:     sold,
		TotalRevenue:  revenue,
		TotalDiscount: discount,
		BillCount:     bills,
		RecentSales:   recent,
	}, nil
}

// DetailedReport lists one row per sold unit (type sales) or per received unit (type
// inventory) in the date range. Staff get their own sales only and no inventory report.
func (s *ReportService) DetailedReport(actor policy.Actor, q models.ReportQuery) (*models.DetailedReport, error) {
	if q.Type == "" {
		q.Type = models.ReportTypeSales
	}
	op := policy.OpSalesReport
	switch q.Type {
	case models.ReportTypeSales:
	case models.ReportTypeInventory:
		op = policy.OpInventoryReport
	default:
		return nil, apperror.Validation("invalid_report_type", "type must be sales or inventory")
	}
	if err := policy.Authorize(actor, op); err != nil {
		return nil, err
	}

	from, to, err := s.reportRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	var rows []models.ReportRow
	if q.Type == models.ReportTypeSales {
		scope := repository.SalesScope{LocationID: q.LocationID}
		if !policy.IsAdminOrSuperuser(actor) {
			scope = repository.SalesScope{SoldByID: actor.ID}
		}
		rows, err = s.reportRepo.SalesRows(scope, from, to)
	} else {
		rows, err = s.reportRepo.InventoryRows(q.LocationID, from, to)
	}
	if err != nil {
		return nil, apperror.Storage("detailed report", err)
	}
	if rows == nil {
		rows = []models.ReportRow{}
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Price)
	}
	return &models.DetailedReport{
		Type:        q.Type,
		StartDate:   from.Format(reportDateLayout),
		EndDate:     to.AddDate(0, 0, -1).Format(reportDateLayout),
		Count:       len(rows),
		TotalAmount: total,
		Rows:        rows,
	}, nil
}

// reportRange parses inclusive day bounds into [from, to). Missing bounds mean today.
func (s *ReportService) reportRange(start, end string) (time.Time, time.Time, error) {
	today := startOfDay(s.now())
	loc := today.Location()

	from, to := today, today
	var err error
	if start != "" {
		if from, err = time.ParseInLocation(reportDateLayout, start, loc); err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("invalid_start_date", "start_date must be formatted as YYYY-MM-DD")
		}
	}
	if end != "" {
		if to, err = time.ParseInLocation(reportDateLayout, end, loc); err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("invalid_end_date", "end_date must be formatted as YYYY-MM-DD")
		}
	} else if start != "" {
		to = from
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperror.Validation("invalid_date_range", "end_date is before start_date")
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return time.Time{}, time.Time{}, apperror.Validation("date_range_too_long", "a report can cover at most one year")
	}
	return from, to.AddDate(0, 0, 1), nil
}
