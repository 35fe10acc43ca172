package services

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

type saleFixture struct {
	*stockFixture
	sales *SaleService
	clock *fakeClock
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	f := newStockFixture(t)
	clock := newFakeClock()
	sales := NewSaleService(f.db)
	sales.now = clock.Now
	return &saleFixture{stockFixture: f, sales: sales, clock: clock}
}

// receive stocks a batch whose units get the given codes
func (f *saleFixture) receive(t *testing.T, codes ...string) *models.StockBatch {
	t.Helper()
	f.svc.genCode = codeSeq(codes...)
	batch, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(len(codes)))
	require.NoError(t, err)
	return batch
}

func saleOf(codes ...string) *models.CreateSaleRequest {
	req := &models.CreateSaleRequest{}
	for _, code := range codes {
		req.Items = append(req.Items, models.SaleItemRequest{Code: code})
	}
	return req
}

func (f *saleFixture) activeCodes(t *testing.T) []string {
	t.Helper()
	var codes []string
	require.NoError(t, f.db.Model(&models.BarcodedUnit{}).Where("is_active = ?", true).Order("code").Pluck("code", &codes).Error)
	return codes
}

func TestCreateSaleAllOrNothing(t *testing.T) {
	f := newSaleFixture(t)
	f.receive(t, "10000001", "10000002", "10000003")

	_, err := f.sales.CreateSale(actorOf(f.staff), saleOf("10000003"))
	require.NoError(t, err)

	_, err = f.sales.CreateSale(actorOf(f.staff), saleOf("10000001", "10000002", "10000003"))
	assert.True(t, apperror.HasCode(err, "unit_already_sold"))
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	assert.Equal(t, []string{"10000001", "10000002"}, f.activeCodes(t), "no unit changed state")
	assert.Equal(t, int64(1), f.countRows(t, &models.Sale{}))
	assert.Equal(t, int64(1), f.countRows(t, &models.SaleItem{}))
}

func TestCreateSaleComputesTotals(t *testing.T) {
	f := newSaleFixture(t)
	f.receive(t, "20000001", "20000002")

	req := saleOf("20000001", "20000002")
	req.Discount = decimal.RequireFromString("100")
	req.FreightCharge = decimal.RequireFromString("50")

	sale, err := f.sales.CreateSale(actorOf(f.staff), req)
	require.NoError(t, err)

	assert.Equal(t, "INV/2026/00001", sale.BillNo)
	assert.Equal(t, "CASH", sale.CustomerName)
	assert.Equal(t, "CASH", sale.PaymentMode)
	assert.Equal(t, "2000.00", sale.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", sale.TaxTotal.StringFixed(2))
	assert.Equal(t, "2050.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, "2050.00 Rupees Only", sale.AmountInWords)
	assert.Equal(t, "clerk", sale.SoldByName)
	assert.Equal(t, "Main", sale.LocationName)

	require.Len(t, sale.Items, 2)
	item := sale.Items[0]
	assert.Equal(t, "20000001", item.Code)
	assert.Equal(t, "Shirts", item.ItemName)
	assert.Equal(t, "1050.00", item.Rate.StringFixed(2))
	assert.Equal(t, "25.00", item.CGSTAmt.StringFixed(2))
	assert.Equal(t, "25.00", item.SGSTAmt.StringFixed(2))
	assert.True(t, item.IGSTAmt.IsZero())

	assert.Empty(t, f.activeCodes(t))
}

func TestCreateSaleKeepsSubmittedAmounts(t *testing.T) {
	f := newSaleFixture(t)
	f.receive(t, "30000001")

	rate := decimal.RequireFromString("999")
	cgst := decimal.RequireFromString("20")
	req := &models.CreateSaleRequest{
		Items:        []models.SaleItemRequest{{Code: "30000001", Rate: &rate, CGSTAmt: &cgst}},
		CustomerName: "Ravi",
		PaymentMode:  "upi",
	}
	sale, err := f.sales.CreateSale(actorOf(f.staff), req)
	require.NoError(t, err)

	assert.Equal(t, "Ravi", sale.CustomerName)
	assert.Equal(t, "UPI", sale.PaymentMode)
	assert.Equal(t, "999.00", sale.Items[0].Rate.StringFixed(2))
	assert.Equal(t, "20.00", sale.Items[0].CGSTAmt.StringFixed(2))
	assert.Equal(t, "23.79", sale.Items[0].SGSTAmt.StringFixed(2), "missing amount derived from the rate")
	assert.Equal(t, "999.00", sale.TotalAmount.StringFixed(2))
}

func TestCreateSaleRejectsBadInput(t *testing.T) {
	f := newSaleFixture(t)
	f.receive(t, "40000001")

	_, err := f.sales.CreateSale(actorOf(f.staff), saleOf())
	assert.True(t, apperror.HasCode(err, "items_required"))

	_, err = f.sales.CreateSale(actorOf(f.staff), saleOf("40000001", "40000001"))
	assert.True(t, apperror.HasCode(err, "duplicate_unit"))

	_, err = f.sales.CreateSale(actorOf(f.staff), saleOf("40000001", "49999999"))
	assert.True(t, apperror.HasCode(err, "unit_not_found"))

	req := saleOf("40000001")
	req.Discount = decimal.RequireFromString("5000")
	_, err = f.sales.CreateSale(actorOf(f.staff), req)
	assert.True(t, apperror.HasCode(err, "discount_exceeds_total"))

	assert.Equal(t, []string{"40000001"}, f.activeCodes(t))

	// failed attempts do not use up bill numbers
	sale, err := f.sales.CreateSale(actorOf(f.staff), saleOf("40000001"))
	require.NoError(t, err)
	assert.Equal(t, "INV/2026/00001", sale.BillNo)
}

func TestConcurrentSalesGetIncreasingBillNumbers(t *testing.T) {
	f := newSaleFixture(t)
	const n = 10
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("5000%04d", i)
	}
	f.receive(t, codes...)

	var wg sync.WaitGroup
	billNos := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale, err := f.sales.CreateSale(actorOf(f.staff), saleOf(codes[i]))
			errs[i] = err
			if err == nil {
				billNos[i] = sale.BillNo
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(billNos)
	for i, billNo := range billNos {
		assert.Equal(t, fmt.Sprintf("INV/2026/%05d", i+1), billNo)
	}

	var bills []string
	require.NoError(t, f.db.Model(&models.Sale{}).Order("id").Pluck("bill_no", &bills).Error)
	require.Len(t, bills, n)
	for i := 1; i < len(bills); i++ {
		assert.Less(t, bills[i-1], bills[i], "bill numbers increase with insertion order")
	}
}

func TestBillNumberUsesSaleYear(t *testing.T) {
	f := newSaleFixture(t)
	f.receive(t, "60000001", "60000002")

	_, err := f.sales.CreateSale(actorOf(f.staff), saleOf("60000001"))
	require.NoError(t, err)
	f.clock.Advance(365 * 24 * time.Hour)

	sale, err := f.sales.CreateSale(actorOf(f.staff), saleOf("60000002"))
	require.NoError(t, err)
	assert.Equal(t, "INV/2027/00002", sale.BillNo)
}

func TestSaleVisibility(t *testing.T) {
	f := newSaleFixture(t)
	other := createUser(t, f.db, "other", models.RoleStaff, &f.admin.ID, &f.location.ID)
	f.receive(t, "70000001", "70000002")

	mine, err := f.sales.CreateSale(actorOf(f.staff), saleOf("70000001"))
	require.NoError(t, err)
	theirs, err := f.sales.CreateSale(actorOf(other), saleOf("70000002"))
	require.NoError(t, err)

	list, total, err := f.sales.ListSales(actorOf(f.staff), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, mine.BillNo, list[0].BillNo)

	_, total, err = f.sales.ListSales(actorOf(f.admin), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = f.sales.GetByBillNo(actorOf(f.staff), theirs.BillNo)
	assert.True(t, apperror.HasCode(err, "sale_not_found"))

	got, err := f.sales.GetByBillNo(actorOf(f.admin), theirs.BillNo)
	require.NoError(t, err)
	assert.Equal(t, "other", got.SoldByName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "70000002", got.Items[0].Code)
}

func TestSoldBatchCannotBeDeleted(t *testing.T) {
	f := newSaleFixture(t)
	batch := f.receive(t, "80000001", "80000002")

	_, err := f.sales.CreateSale(actorOf(f.staff), saleOf("80000001"))
	require.NoError(t, err)

	err = f.svc.DeleteBatch(actorOf(f.admin), batch.ID)
	assert.True(t, apperror.HasCode(err, "batch_has_sales"))
	assert.Equal(t, int64(2), f.countRows(t, &models.BarcodedUnit{}))
}
