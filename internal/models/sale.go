package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an immutable bill aggregating one or more sold units
type Sale struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	BillNo         string          `json:"bill_no" gorm:"type:varchar(50);not null;uniqueIndex"`
	BillDate       time.Time       `json:"bill_date" gorm:"not null;index"`
	SoldByID       *string         `json:"sold_by_id" gorm:"type:varchar(36);index"`
	LocationID     *uint           `json:"location_id" gorm:"index"`
	CustomerName   string          `json:"customer_name" gorm:"type:varchar(100);not null"`
	CustomerMobile string          `json:"customer_mobile" gorm:"type:varchar(15)"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	TaxTotal       decimal.Decimal `json:"tax_total" gorm:"type:decimal(10,2);not null"`
	Discount       decimal.Decimal `json:"discount" gorm:"type:decimal(10,2);not null"`
	FreightCharge  decimal.Decimal `json:"freight_charge" gorm:"type:decimal(10,2);not null"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	PaymentMode    string          `json:"payment_mode" gorm:"type:varchar(20);not null"`
	// Relationships
	SoldBy   *User      `json:"-" gorm:"foreignKey:SoldByID;constraint:OnDelete:SET NULL"`
	Location *Location  `json:"-" gorm:"foreignKey:LocationID;constraint:OnDelete:RESTRICT"`
	Items    []SaleItem `json:"items" gorm:"-"`
}

func (Sale) TableName() string {
	return "sales"
}

// SaleItem captures the price of one unit at the time it was sold
type SaleItem struct {
	ID      uint            `json:"id" gorm:"primaryKey"`
	SaleID  uint            `json:"sale_id" gorm:"not null;index"`
	UnitID  uint            `json:"unit_id" gorm:"not null;uniqueIndex"`
	Code    string          `json:"barcode_number" gorm:"type:varchar(50);not null"`
	Rate    decimal.Decimal `json:"rate" gorm:"type:decimal(10,2);not null"`
	CGSTAmt decimal.Decimal `json:"cgst_amt" gorm:"type:decimal(10,2);not null"`
	SGSTAmt decimal.Decimal `json:"sgst_amt" gorm:"type:decimal(10,2);not null"`
	IGSTAmt decimal.Decimal `json:"igst_amt" gorm:"type:decimal(10,2);not null"`
	// Relationships
	Sale *Sale         `json:"-" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Unit *BarcodedUnit `json:"-" gorm:"foreignKey:UnitID;constraint:OnDelete:RESTRICT"`

	ItemName string `json:"item_name" gorm:"-"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

// TaxAmount is the sum of the item's tax components
func (i SaleItem) TaxAmount() decimal.Decimal {
	return i.CGSTAmt.Add(i.SGSTAmt).Add(i.IGSTAmt)
}

// BillCounter is a named monotonic sequence, locked per allocation
type BillCounter struct {
	Name  string `gorm:"primaryKey;type:varchar(50)"`
	Value int64  `gorm:"not null"`
}

func (BillCounter) TableName() string {
	return "bill_counters"
}

// SaleBillCounter names the counter that numbers sale bills
const SaleBillCounter = "sale_bill"

// SaleView is a sale with the display names the bill print needs
type SaleView struct {
	Sale
	SoldByName    string `json:"sold_by_name"`
	LocationName  string `json:"location_name"`
	AmountInWords string `json:"amount_in_words"`
}
