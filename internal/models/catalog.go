package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a store or warehouse that holds stock and records sales
type Location struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
}

func (Location) TableName() string {
	return "locations"
}

// InventoryCategory is a free-form label for grouping inventory
type InventoryCategory struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
}

func (InventoryCategory) TableName() string {
	return "inventory_categories"
}

// ProductGroup is a product family with its HSN code and default tax rates
type ProductGroup struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	HSNCode     string          `json:"hsn_code" gorm:"type:varchar(20)"`
	SGSTRate    decimal.Decimal `json:"sgst_rate" gorm:"type:decimal(5,2);not null"`
	CGSTRate    decimal.Decimal `json:"cgst_rate" gorm:"type:decimal(5,2);not null"`
	IGSTRate    decimal.Decimal `json:"igst_rate" gorm:"type:decimal(5,2);not null"`
	Description string          `json:"description" gorm:"type:text"`
}

func (ProductGroup) TableName() string {
	return "product_groups"
}

// ProductSubGroup is a variant inside a product group
type ProductSubGroup struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time     `json:"created_at"`
	GroupID   uint          `json:"group_id" gorm:"not null;uniqueIndex:idx_subgroup_group_name"`
	Name      string        `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_subgroup_group_name"`
	Group     *ProductGroup `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (ProductSubGroup) TableName() string {
	return "product_sub_groups"
}
