package repository

import (
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesScope narrows sales queries. Zero value means every sale.
type SalesScope struct {
	SoldByID   string
	LocationID *uint
}

func (s SalesScope) apply(query *gorm.DB) *gorm.DB {
	if s.SoldByID != "" {
		query = query.Where("sales.sold_by_id = ?", s.SoldByID)
	}
	if s.LocationID != nil {
		query = query.Where("sales.location_id = ?", *s.LocationID)
	}
	return query
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

type salesTotalsRow struct {
	Revenue  decimal.NullDecimal
	Discount decimal.NullDecimal
	Bills    int64
}

// SalesTotals sums revenue and discount of the sales billed in [from, to)
func (r *ReportRepository) SalesTotals(scope SalesScope, from, to time.Time) (decimal.Decimal, decimal.Decimal, int64, error) {
	var row salesTotalsRow
	query := r.db.Table("sales").
		Select("SUM(sales.total_amount) AS revenue, SUM(sales.discount) AS discount, COUNT(*) AS bills").
		Where("sales.bill_date >= ? AND sales.bill_date < ?", from, to)
	err := scope.apply(query).Scan(&row).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, err
	}
	return row.Revenue.Decimal, row.Discount.Decimal, row.Bills, nil
}

// RecentSales returns the latest bills in [from, to)
func (r *ReportRepository) RecentSales(scope SalesScope, from, to time.Time, limit int) ([]models.RecentSale, error) {
	var rows []models.RecentSale
	query := r.db.Table("sales").
		Select("sales.bill_no, sales.customer_name, sales.total_amount, sales.bill_date, sales.payment_mode").
		Where("sales.bill_date >= ? AND sales.bill_date < ?", from, to)
	err := scope.apply(query).
		Order("sales.bill_date DESC, sales.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// SalesRows returns one row per sold unit billed in [from, to)
func (r *ReportRepository) SalesRows(scope SalesScope, from, to time.Time) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	query := r.db.Table("sale_items").
		Select(`sales.bill_no AS bill_no, sales.customer_name AS customer_name, sale_items.code AS code,
			sale_items.rate AS price, sales.bill_date AS date, product_groups.name AS item_name,
			locations.name AS location_name, users.username AS sold_by, stock_batches.hsn_code AS hsn`).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN barcoded_units ON barcoded_units.id = sale_items.unit_id").
		Joins("JOIN stock_batches ON stock_batches.id = barcoded_units.batch_id").
		Joins("JOIN product_groups ON product_groups.id = stock_batches.group_id").
		Joins("LEFT JOIN locations ON locations.id = sales.location_id").
		Joins("LEFT JOIN users ON users.id = sales.sold_by_id").
		Where("sales.bill_date >= ? AND sales.bill_date < ?", from, to)
	err := scope.apply(query).
		Order("sales.bill_date, sale_items.id").
		Scan(&rows).Error
	return rows, err
}

type inventoryRow struct {
	Code         string
	IsActive     bool
	Price        decimal.Decimal
	Date         time.Time
	ItemName     string
	LocationName string
	HSN          string
}

// InventoryRows returns one row per unit of the batches received in [from, to)
func (r *ReportRepository) InventoryRows(locationID *uint, from, to time.Time) ([]models.ReportRow, error) {
	var rows []inventoryRow
	query := r.db.Table("barcoded_units").
		Select(`barcoded_units.code AS code, barcoded_units.is_active AS is_active,
			stock_batches.price_with_gst AS price, stock_batches.created_at AS date,
			product_groups.name AS item_name, locations.name AS location_name, stock_batches.hsn_code AS hsn`).
		Joins("JOIN stock_batches ON stock_batches.id = barcoded_units.batch_id").
		Joins("JOIN product_groups ON product_groups.id = stock_batches.group_id").
		Joins("LEFT JOIN locations ON locations.id = stock_batches.location_id").
		Where("stock_batches.created_at >= ? AND stock_batches.created_at < ?", from, to)
	if locationID != nil {
		query = query.Where("stock_batches.location_id = ?", *locationID)
	}
	if err := query.Order("stock_batches.created_at, barcoded_units.id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]models.ReportRow, len(rows))
	for i, row := range rows {
		status := "SOLD"
		if row.IsActive {
			status = "IN STOCK"
		}
		result[i] = models.ReportRow{
			Code:         row.Code,
			Status:       status,
			Price:        row.Price,
			Date:         row.Date,
			ItemName:     row.ItemName,
			LocationName: row.LocationName,
			SoldBy:       "System",
			HSN:          row.HSN,
		}
	}
	return result, nil
}
