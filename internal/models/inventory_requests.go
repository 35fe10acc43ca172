package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationRequest creates or renames a location
type LocationRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CategoryRequest creates or updates an inventory category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// ProductGroupRequest creates or updates a product group
type ProductGroupRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	HSNCode     string          `json:"hsn_code" binding:"max=20"`
	SGSTRate    decimal.Decimal `json:"sgst_rate"`
	CGSTRate    decimal.Decimal `json:"cgst_rate"`
	IGSTRate    decimal.Decimal `json:"igst_rate"`
	Description string          `json:"description"`
}

// ProductSubGroupRequest creates a sub-group inside a group
type ProductSubGroupRequest struct {
	GroupID uint   `json:"group" binding:"required"`
	Name    string `json:"name" binding:"required,max=100"`
}

// ReceiveBatchRequest records received stock and generates one code per piece
type ReceiveBatchRequest struct {
	GroupID      uint            `json:"group" binding:"required"`
	SubGroupID   uint            `json:"sub_group" binding:"required"`
	LocationID   *uint           `json:"location"`
	NoOfPieces   int             `json:"no_of_pieces" binding:"required,min=1,max=10000"`
	PcsPerUnit   int             `json:"pcs_per_unit" binding:"omitempty,min=1"`
	PriceWithGST decimal.Decimal `json:"price_with_gst"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SGSTRate     decimal.Decimal `json:"sgst_rate"`
	CGSTRate     decimal.Decimal `json:"cgst_rate"`
	IGSTRate     decimal.Decimal `json:"igst_rate"`
	HSNCode      string          `json:"hsn_code" binding:"max=20"`
}

// SaleItemRequest is one scanned unit of a sale. Missing amounts are derived from the batch.
type SaleItemRequest struct {
	Code    string           `json:"barcode" binding:"required"`
	Rate    *decimal.Decimal `json:"rate"`
	CGSTAmt *decimal.Decimal `json:"cgst_amt"`
	SGSTAmt *decimal.Decimal `json:"sgst_amt"`
	IGSTAmt *decimal.Decimal `json:"igst_amt"`
}

// CreateSaleRequest is a bill submitted from the counter
type CreateSaleRequest struct {
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerName   string            `json:"customer_name" binding:"max=100"`
	CustomerMobile string            `json:"customer_mobile" binding:"max=15"`
	Discount       decimal.Decimal   `json:"discount"`
	FreightCharge  decimal.Decimal   `json:"freight_charge"`
	PaymentMode    string            `json:"payment_mode" binding:"max=20"`
}

// ReportRow is one line of the detailed report
type ReportRow struct {
	BillNo       string          `json:"bill_no,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Code         string          `json:"barcode,omitempty"`
	Status       string          `json:"status,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Date         time.Time       `json:"date"`
	ItemName     string          `json:"item_name"`
	LocationName string          `json:"location_name"`
	SoldBy       string          `json:"sold_by"`
	HSN          string          `json:"hsn"`
}

// RecentSale is a short bill line on the dashboard
type RecentSale struct {
	BillNo       string          `json:"bill_no"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	BillDate     time.Time       `json:"bill_date"`
	PaymentMode  string          `json:"payment_mode"`
}

// SalesDashboard summarises today's trade and current stock
type SalesDashboard struct {
	UserRole      Role            `json:"user_role"`
	CurrentStock  int64           `json:"current_stock"`
	ItemsSold     int64           `json:"items_sold"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalDiscount decimal.Decimal `json:"total_discount_amt"`
	BillCount     int64           `json:"bill_count"`
	RecentSales   []RecentSale    `json:"recent_sales"`
}

const (
	ReportTypeSales     = "sales"
	ReportTypeInventory = "inventory"
)

// ReportQuery selects the detailed report. Dates are YYYY-MM-DD and both ends are inclusive.
type ReportQuery struct {
	Type       string `form:"type" example:"sales"`
	StartDate  string `form:"start_date" example:"2026-01-01"`
	EndDate    string `form:"end_date" example:"2026-01-31"`
	LocationID *uint  `form:"-"`
}

// DetailedReport is the row listing behind the report screen and its Excel export
type DetailedReport struct {
	Type        string          `json:"type"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Rows        []ReportRow     `json:"rows"`
}
