package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultCustomerName = "CASH"
	defaultPaymentMode  = "CASH"
)

// SaleService records bills. A sale, its items and the unit state changes commit together.
type SaleService struct {
	db        *gorm.DB
	saleRepo  *repository.SaleRepository
	stockRepo *repository.StockRepository
	now       func() time.Time
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{
		db:        db,
		saleRepo:  repository.NewSaleRepository(db),
		stockRepo: repository.NewStockRepository(db),
		now:       time.Now,
	}
}

// FormatBillNo renders a bill number such as INV/2026/00042
func FormatBillNo(year int, seq int64) string {
	return fmt.Sprintf("INV/%d/%05d", year, seq)
}

// CreateSale sells the scanned units in one transaction. Every unit is locked and
// re-checked; if any is unknown or already sold nothing is written.
func (s *SaleService) CreateSale(actor policy.Actor, req *models.CreateSaleRequest) (*models.SaleView, error) {
	if err := policy.Authorize(actor, policy.OpCreateSale); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, apperror.Validation("items_required", "a sale needs at least one item")
	}
	if req.Discount.IsNegative() || req.FreightCharge.IsNegative() {
		return nil, apperror.Validation("invalid_amount", "discount and freight charge cannot be negative")
	}

	codes := make([]string, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		code := strings.TrimSpace(item.Code)
		if code == "" {
			return nil, apperror.Validation("code_required", "every item needs a code")
		}
		if _, dup := seen[code]; dup {
			return nil, apperror.Validation("duplicate_unit", fmt.Sprintf("unit %s is listed more than once", code))
		}
		seen[code] = struct{}{}
		codes[i] = code
	}

	billDate := s.now()
	sale := &models.Sale{
		BillDate:       billDate,
		SoldByID:       utils.StringPtr(actor.ID),
		LocationID:     actor.LocationID,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerMobile: strings.TrimSpace(req.CustomerMobile),
		Discount:       utils.Money(req.Discount),
		FreightCharge:  utils.Money(req.FreightCharge),
		PaymentMode:    strings.ToUpper(strings.TrimSpace(req.PaymentMode)),
	}
	if sale.CustomerName == "" {
		sale.CustomerName = defaultCustomerName
	}
	if sale.PaymentMode == "" {
		sale.PaymentMode = defaultPaymentMode
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		stock := s.stockRepo.WithTx(tx)
		sales := s.saleRepo.WithTx(tx)

		units, err := lockSellableUnits(stock, codes)
		if err != nil {
			return err
		}

		items := make([]models.SaleItem, len(req.Items))
		unitIDs := make([]uint, len(req.Items))
		for i, line := range req.Items {
			unit := units[codes[i]]
			items[i] = priceItem(unit, line)
			unitIDs[i] = unit.ID
		}
		if err := applyTotals(sale, items); err != nil {
			return err
		}

		seq, err := sales.NextSequence(models.SaleBillCounter)
		if err != nil {
			return err
		}
		sale.BillNo = FormatBillNo(billDate.Year(), seq)

		if err := sales.CreateSale(sale); err != nil {
			return err
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := sales.CreateItems(items); err != nil {
			return err
		}

		flipped, err := stock.DeactivateUnits(unitIDs)
		if err != nil {
			return err
		}
		if flipped != int64(len(unitIDs)) {
			return errUnitAlreadySold("")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// sale_items.unit_id is unique: another bill got the unit first
			return nil, errUnitAlreadySold("")
		}
		return nil, wrapStorage("create sale", err)
	}

	logrus.WithFields(logrus.Fields{
		"bill_no": sale.BillNo,
		"seller":  actor.ID,
		"items":   len(req.Items),
	}).Infof("Sale recorded, total %s", sale.TotalAmount.StringFixed(2))
	return s.view(sale.ID)
}

// lockSellableUnits locks the units behind codes and requires every one to exist and be active
func lockSellableUnits(stock *repository.StockRepository, codes []string) (map[string]*models.BarcodedUnit, error) {
	locked, err := stock.LockUnitsByCode(codes)
	if err != nil {
		return nil, err
	}
	units := make(map[string]*models.BarcodedUnit, len(locked))
	for i := range locked {
		units[locked[i].Code] = &locked[i]
	}

	var missing, sold []string
	for _, code := range codes {
		unit, ok := units[code]
		switch {
		case !ok:
			missing = append(missing, code)
		case !unit.IsActive:
			sold = append(sold, code)
		}
	}
	if len(missing) > 0 {
		return nil, errUnitNotFound(strings.Join(missing, ", "))
	}
	if len(sold) > 0 {
		sort.Strings(sold)
		return nil, errUnitAlreadySold(strings.Join(sold, ", "))
	}
	return units, nil
}

func errUnitAlreadySold(codes string) *apperror.Error {
	if codes == "" {
		return apperror.Conflict("unit_already_sold", "a unit in this sale has already been sold")
	}
	return apperror.Conflict("unit_already_sold", fmt.Sprintf("already sold: %s", codes))
}

// priceItem captures the sale price of a unit. The rate defaults to the batch price and
// each missing tax amount is split out of the tax-inclusive rate.
func priceItem(unit *models.BarcodedUnit, line models.SaleItemRequest) models.SaleItem {
	batch := unit.Batch
	rate := batch.PriceWithGST
	if line.Rate != nil {
		rate = *line.Rate
	}
	rate = utils.Money(rate)
	totalPct := batch.SGSTRate.Add(batch.CGSTRate).Add(batch.IGSTRate)

	taxOr := func(given *decimal.Decimal, ratePct decimal.Decimal) decimal.Decimal {
		if given != nil {
			return utils.Money(*given)
		}
		return utils.TaxFromInclusive(rate, ratePct, totalPct)
	}

	item := models.SaleItem{
		UnitID:  unit.ID,
		Code:    unit.Code,
		Rate:    rate,
		CGSTAmt: taxOr(line.CGSTAmt, batch.CGSTRate),
		SGSTAmt: taxOr(line.SGSTAmt, batch.SGSTRate),
		IGSTAmt: taxOr(line.IGSTAmt, batch.IGSTRate),
	}
	if batch.Group != nil {
		item.ItemName = batch.Group.Name
	}
	return item
}

// applyTotals sets the header amounts from the items. Rates are tax inclusive, so the
// subtotal is the taxable value and the total is the sum of rates less discount plus freight.
func applyTotals(sale *models.Sale, items []models.SaleItem) error {
	gross := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		if item.Rate.IsNegative() || item.TaxAmount().IsNegative() {
			return apperror.Validation("invalid_amount", fmt.Sprintf("amounts of unit %s cannot be negative", item.Code))
		}
		if item.TaxAmount().GreaterThan(item.Rate) {
			return apperror.Validation("invalid_amount", fmt.Sprintf("tax of unit %s exceeds its rate", item.Code))
		}
		gross = gross.Add(item.Rate)
		tax = tax.Add(item.TaxAmount())
	}
	total := gross.Sub(sale.Discount).Add(sale.FreightCharge)
	if total.IsNegative() {
		return apperror.Validation("discount_exceeds_total", "discount is larger than the bill amount")
	}
	sale.Subtotal = utils.Money(gross.Sub(tax))
	sale.TaxTotal = utils.Money(tax)
	sale.TotalAmount = utils.Money(total)
	return nil
}

func (s *SaleService) view(id uint) (*models.SaleView, error) {
	view, err := s.saleRepo.GetByID(id)
	if err != nil {
		return nil, apperror.Storage("load sale", err)
	}
	return view, nil
}

// ListSales lists bills newest first. Staff only see their own.
func (s *SaleService) ListSales(actor policy.Actor, page, pageSize int) ([]models.SaleView, int64, error) {
	if err := policy.Authorize(actor, policy.OpViewSales); err != nil {
		return nil, 0, err
	}
	soldBy := ""
	if !policy.IsAdminOrSuperuser(actor) {
		soldBy = actor.ID
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	sales, total, err := s.saleRepo.List(soldBy, page, pageSize)
	if err != nil {
		return nil, 0, apperror.Storage("list sales", err)
	}
	return sales, total, nil
}

// GetByBillNo returns one bill. Staff only see bills they sold.
func (s *SaleService) GetByBillNo(actor policy.Actor, billNo string) (*models.SaleView, error) {
	if err := policy.Authorize(actor, policy.OpViewSales); err != nil {
		return nil, err
	}
	billNo = strings.TrimSpace(billNo)
	if billNo == "" {
		return nil, apperror.Validation("bill_no_required", "bill number is required")
	}
	view, err := s.saleRepo.GetByBillNo(billNo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errSaleNotFound()
	}
	if err != nil {
		return nil, apperror.Storage("load sale", err)
	}
	if !policy.IsAdminOrSuperuser(actor) && utils.Deref(view.SoldByID) != actor.ID {
		return nil, errSaleNotFound()
	}
	return view, nil
}

func errSaleNotFound() *apperror.Error {
	return apperror.NotFound("sale_not_found", "sale not found")
}
