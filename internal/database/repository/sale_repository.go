package repository

import (
	"fmt"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) WithTx(tx *gorm.DB) *SaleRepository {
	return &SaleRepository{db: tx}
}

// NextSequence increments a named counter and returns the new value. The update holds the
// counter row lock until the surrounding transaction ends, so concurrent callers queue up.
func (r *SaleRepository) NextSequence(name string) (int64, error) {
	res := r.db.Model(&models.BillCounter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("counter %q is not seeded", name)
	}
	var counter models.BillCounter
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (r *SaleRepository) CreateSale(sale *models.Sale) error {
	return r.db.Omit(clause.Associations).Create(sale).Error
}

func (r *SaleRepository) CreateItems(items []models.SaleItem) error {
	return r.db.Omit(clause.Associations).Create(&items).Error
}

type saleNamesRow struct {
	ID           uint
	SoldByName   string
	SoldByUser   string
	LocationName string
}

// GetByBillNo retrieves a sale with its items and display names
func (r *SaleRepository) GetByBillNo(billNo string) (*models.SaleView, error) {
	var sale models.Sale
	if err := r.db.Where("bill_no = ?", billNo).First(&sale).Error; err != nil {
		return nil, err
	}
	views, err := r.toViews([]models.Sale{sale})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetByID retrieves a sale with its items and display names
func (r *SaleRepository) GetByID(id uint) (*models.SaleView, error) {
	var sale models.Sale
	if err := r.db.First(&sale, id).Error; err != nil {
		return nil, err
	}
	views, err := r.toViews([]models.Sale{sale})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns sales newest first. When soldBy is set only that seller's sales are returned.
func (r *SaleRepository) List(soldBy string, page, pageSize int) ([]models.SaleView, int64, error) {
	var sales []models.Sale
	var total int64
	query := r.db.Model(&models.Sale{})
	if soldBy != "" {
		query = query.Where("sold_by_id = ?", soldBy)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("bill_date DESC, id DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&sales).Error
	if err != nil {
		return nil, 0, err
	}
	views, err := r.toViews(sales)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *SaleRepository) toViews(sales []models.Sale) ([]models.SaleView, error) {
	views := make([]models.SaleView, len(sales))
	if len(sales) == 0 {
		return views, nil
	}
	ids := make([]uint, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}

	var names []saleNamesRow
	err := r.db.Table("sales").
		Select("sales.id, users.name AS sold_by_name, users.username AS sold_by_user, locations.name AS location_name").
		Joins("LEFT JOIN users ON users.id = sales.sold_by_id").
		Joins("LEFT JOIN locations ON locations.id = sales.location_id").
		Where("sales.id IN ?", ids).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]saleNamesRow, len(names))
	for _, n := range names {
		byID[n.ID] = n
	}

	items, err := r.ItemsOfSales(ids)
	if err != nil {
		return nil, err
	}

	for i, s := range sales {
		s.Items = items[s.ID]
		if s.Items == nil {
			s.Items = []models.SaleItem{}
		}
		n := byID[s.ID]
		seller := n.SoldByName
		if seller == "" {
			seller = n.SoldByUser
		}
		views[i] = models.SaleView{
			Sale:          s,
			SoldByName:    seller,
			LocationName:  n.LocationName,
			AmountInWords: utils.AmountInWords(s.TotalAmount),
		}
	}
	return views, nil
}

// ItemsOfSales loads items grouped by sale id with the product group name of each unit
func (r *SaleRepository) ItemsOfSales(saleIDs []uint) (map[uint][]models.SaleItem, error) {
	result := make(map[uint][]models.SaleItem, len(saleIDs))
	var items []models.SaleItem
	if err := r.db.Where("sale_id IN ?", saleIDs).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return result, nil
	}

	unitIDs := make([]uint, len(items))
	for i, it := range items {
		unitIDs[i] = it.UnitID
	}
	type unitGroup struct {
		UnitID    uint
		GroupName string
	}
	var groups []unitGroup
	err := r.db.Table("barcoded_units").
		Select("barcoded_units.id AS unit_id, product_groups.name AS group_name").
		Joins("JOIN stock_batches ON stock_batches.id = barcoded_units.batch_id").
		Joins("JOIN product_groups ON product_groups.id = stock_batches.group_id").
		Where("barcoded_units.id IN ?", unitIDs).
		Scan(&groups).Error
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(groups))
	for _, g := range groups {
		names[g.UnitID] = g.GroupName
	}

	for _, it := range items {
		it.ItemName = names[it.UnitID]
		result[it.SaleID] = append(result[it.SaleID], it)
	}
	return result, nil
}

// CountSales counts every persisted sale header
func (r *SaleRepository) CountSales() (int64, error) {
	var count int64
	err := r.db.Model(&models.Sale{}).Count(&count).Error
	return count, err
}
