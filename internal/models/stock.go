package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBatch is a received quantity of one product variant at one location
type StockBatch struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
	GroupID      uint            `json:"group_id" gorm:"not null;index"`
	SubGroupID   uint            `json:"sub_group_id" gorm:"not null;index"`
	LocationID   *uint           `json:"location_id" gorm:"index"`
	CreatedByID  *string         `json:"created_by_id" gorm:"type:varchar(36)"`
	NoOfPieces   int             `json:"no_of_pieces" gorm:"not null"`
	PcsPerUnit   int             `json:"pcs_per_unit" gorm:"not null;default:1"`
	PriceWithGST decimal.Decimal `json:"price_with_gst" gorm:"type:decimal(10,2);not null"`
	CostPrice    decimal.Decimal `json:"cost_price" gorm:"type:decimal(10,2);not null"`
	SGSTRate     decimal.Decimal `json:"sgst_rate" gorm:"type:decimal(5,2);not null"`
	CGSTRate     decimal.Decimal `json:"cgst_rate" gorm:"type:decimal(5,2);not null"`
	IGSTRate     decimal.Decimal `json:"igst_rate" gorm:"type:decimal(5,2);not null"`
	HSNCode      string          `json:"hsn_code" gorm:"type:varchar(20);not null"`
	// Relationships
	Group     *ProductGroup    `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:RESTRICT"`
	SubGroup  *ProductSubGroup `json:"sub_group,omitempty" gorm:"foreignKey:SubGroupID;constraint:OnDelete:RESTRICT"`
	Location  *Location        `json:"location,omitempty" gorm:"foreignKey:LocationID;constraint:OnDelete:RESTRICT"`
	CreatedBy *User            `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Units     []BarcodedUnit   `json:"units,omitempty" gorm:"-"`
}

func (StockBatch) TableName() string {
	return "stock_batches"
}

// Codes returns the unit codes of the batch in insertion order
func (b *StockBatch) Codes() []string {
	codes := make([]string, len(b.Units))
	for i, u := range b.Units {
		codes[i] = u.Code
	}
	return codes
}

// BarcodedUnit is one sellable physical unit of a batch
type BarcodedUnit struct {
	ID       uint        `json:"id" gorm:"primaryKey"`
	BatchID  uint        `json:"batch_id" gorm:"not null;index"`
	Code     string      `json:"code" gorm:"type:varchar(50);not null;uniqueIndex"`
	IsActive bool        `json:"is_active" gorm:"not null;index"`
	Batch    *StockBatch `json:"-" gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
}

func (BarcodedUnit) TableName() string {
	return "barcoded_units"
}

// UnitInfo is the pricing snapshot of a sellable unit shown at the counter
type UnitInfo struct {
	UnitID       uint            `json:"barcode_id"`
	Code         string          `json:"code"`
	GroupName    string          `json:"group_name"`
	SubGroupName string          `json:"sub_group_name"`
	HSNCode      string          `json:"hsn_code"`
	Rate         decimal.Decimal `json:"rate"`
	CGSTRate     decimal.Decimal `json:"cgst_rate"`
	SGSTRate     decimal.Decimal `json:"sgst_rate"`
	IGSTRate     decimal.Decimal `json:"igst_rate"`
}
