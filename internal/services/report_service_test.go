package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

type reportFixture struct {
	*saleFixture
	reports   *ReportService
	warehouse *models.Location
}

// newReportFixture stocks 3 units at Main and 2 at Warehouse, then records one sale at
// each: the staff member sells a Main unit and the admin a Warehouse unit
func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := newSaleFixture(t)
	warehouse := createLocation(t, f.db, "Warehouse")

	f.svc.genCode = codeSeq("11000001", "11000002", "11000003")
	req := f.request(3)
	req.LocationID = &f.location.ID
	_, err := f.svc.ReceiveBatch(actorOf(f.admin), req)
	require.NoError(t, err)

	f.svc.genCode = codeSeq("22000001", "22000002")
	req = f.request(2)
	req.LocationID = &warehouse.ID
	_, err = f.svc.ReceiveBatch(actorOf(f.admin), req)
	require.NoError(t, err)

	_, err = f.sales.CreateSale(actorOf(f.staff), saleOf("11000001"))
	require.NoError(t, err)

	// the admin has no location of its own, record the sale against the warehouse
	adminAtWarehouse := actorOf(f.admin)
	adminAtWarehouse.LocationID = &warehouse.ID
	_, err = f.sales.CreateSale(adminAtWarehouse, saleOf("22000001"))
	require.NoError(t, err)

	reports := NewReportService(f.db)
	reports.now = f.clock.Now
	return &reportFixture{saleFixture: f, reports: reports, warehouse: warehouse}
}

func TestDashboardScope(t *testing.T) {
	f := newReportFixture(t)

	global, err := f.reports.Dashboard(actorOf(f.admin))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, global.UserRole)
	assert.Equal(t, int64(3), global.CurrentStock)
	assert.Equal(t, int64(2), global.ItemsSold)
	assert.Equal(t, int64(2), global.BillCount)
	assert.Equal(t, "2100.00", global.TotalRevenue.StringFixed(2))
	assert.Len(t, global.RecentSales, 2)

	own, err := f.reports.Dashboard(actorOf(f.staff))
	require.NoError(t, err)
	assert.Equal(t, int64(2), own.CurrentStock, "stock of the staff member's location")
	assert.Equal(t, int64(1), own.ItemsSold)
	assert.Equal(t, int64(1), own.BillCount)
	assert.Equal(t, "1050.00", own.TotalRevenue.StringFixed(2))
	require.Len(t, own.RecentSales, 1)
	assert.Equal(t, "INV/2026/00001", own.RecentSales[0].BillNo)
}

func TestDashboardOnlyCountsToday(t *testing.T) {
	f := newReportFixture(t)
	f.clock.Advance(24 * time.Hour)

	dash, err := f.reports.Dashboard(actorOf(f.admin))
	require.NoError(t, err)
	assert.Equal(t, int64(0), dash.BillCount)
	assert.True(t, dash.TotalRevenue.IsZero())
	assert.Empty(t, dash.RecentSales)
	assert.Equal(t, int64(3), dash.CurrentStock)
}

func TestSalesReport(t *testing.T) {
	f := newReportFixture(t)
	day := models.ReportQuery{Type: models.ReportTypeSales, StartDate: "2026-03-14", EndDate: "2026-03-14"}

	all, err := f.reports.DetailedReport(actorOf(f.admin), day)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "2100.00", all.TotalAmount.StringFixed(2))

	own, err := f.reports.DetailedReport(actorOf(f.staff), day)
	require.NoError(t, err)
	require.Equal(t, 1, own.Count)
	row := own.Rows[0]
	assert.Equal(t, "INV/2026/00001", row.BillNo)
	assert.Equal(t, "11000001", row.Code)
	assert.Equal(t, "Shirts", row.ItemName)
	assert.Equal(t, "Main", row.LocationName)
	assert.Equal(t, "clerk", row.SoldBy)
	assert.Equal(t, "6109", row.HSN)

	byLocation := day
	byLocation.LocationID = &f.warehouse.ID
	filtered, err := f.reports.DetailedReport(actorOf(f.admin), byLocation)
	require.NoError(t, err)
	require.Equal(t, 1, filtered.Count)
	assert.Equal(t, "22000001", filtered.Rows[0].Code)

	// the location filter does not change what staff see
	scoped, err := f.reports.DetailedReport(actorOf(f.staff), byLocation)
	require.NoError(t, err)
	require.Equal(t, 1, scoped.Count)
	assert.Equal(t, "11000001", scoped.Rows[0].Code)

	earlier, err := f.reports.DetailedReport(actorOf(f.admin), models.ReportQuery{StartDate: "2026-03-01", EndDate: "2026-03-13"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportTypeSales, earlier.Type)
	assert.Equal(t, 0, earlier.Count)
	assert.NotNil(t, earlier.Rows)
}

func TestInventoryReport(t *testing.T) {
	f := newReportFixture(t)
	// batches are stamped with the wall clock
	f.reports.now = time.Now
	today := time.Now().Format(reportDateLayout)
	q := models.ReportQuery{Type: models.ReportTypeInventory, StartDate: today, EndDate: today}

	_, err := f.reports.DetailedReport(actorOf(f.staff), q)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	report, err := f.reports.DetailedReport(actorOf(f.admin), q)
	require.NoError(t, err)
	require.Equal(t, 5, report.Count)
	statuses := map[string]string{}
	for _, row := range report.Rows {
		statuses[row.Code] = row.Status
	}
	assert.Equal(t, "SOLD", statuses["11000001"])
	assert.Equal(t, "IN STOCK", statuses["11000002"])
	assert.Equal(t, "SOLD", statuses["22000001"])

	q.LocationID = &f.warehouse.ID
	report, err = f.reports.DetailedReport(actorOf(f.admin), q)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
}

func TestReportQueryValidation(t *testing.T) {
	f := newReportFixture(t)
	admin := actorOf(f.admin)

	_, err := f.reports.DetailedReport(admin, models.ReportQuery{Type: "returns"})
	assert.True(t, apperror.HasCode(err, "invalid_report_type"))

	_, err = f.reports.DetailedReport(admin, models.ReportQuery{StartDate: "14/03/2026"})
	assert.True(t, apperror.HasCode(err, "invalid_start_date"))

	_, err = f.reports.DetailedReport(admin, models.ReportQuery{StartDate: "2026-03-14", EndDate: "2026-03-01"})
	assert.True(t, apperror.HasCode(err, "invalid_date_range"))

	_, err = f.reports.DetailedReport(admin, models.ReportQuery{StartDate: "2024-01-01", EndDate: "2026-03-01"})
	assert.True(t, apperror.HasCode(err, "date_range_too_long"))

	today, err := f.reports.DetailedReport(admin, models.ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", today.StartDate)
	assert.Equal(t, "2026-03-14", today.EndDate)
	assert.Equal(t, 2, today.Count)
}
