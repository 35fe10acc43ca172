package repository

import (
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) WithTx(tx *gorm.DB) *StockRepository {
	return &StockRepository{db: tx}
}

func (r *StockRepository) CreateBatch(batch *models.StockBatch) error {
	return r.db.Omit(clause.Associations).Create(batch).Error
}

// CreateUnits inserts units in chunks
func (r *StockRepository) CreateUnits(units []models.BarcodedUnit) error {
	return r.db.Omit(clause.Associations).CreateInBatches(units, 500).Error
}

// ExistingCodes returns which of the given codes are already taken
func (r *StockRepository) ExistingCodes(codes []string) ([]string, error) {
	var taken []string
	if len(codes) == 0 {
		return taken, nil
	}
	for start := 0; start < len(codes); start += 500 {
		end := start + 500
		if end > len(codes) {
			end = len(codes)
		}
		var chunk []string
		err := r.db.Model(&models.BarcodedUnit{}).
			Where("code IN ?", codes[start:end]).
			Pluck("code", &chunk).Error
		if err != nil {
			return nil, err
		}
		taken = append(taken, chunk...)
	}
	return taken, nil
}

// GetBatch retrieves a batch with its catalog references and units
func (r *StockRepository) GetBatch(id uint) (*models.StockBatch, error) {
	var batch models.StockBatch
	err := r.db.Preload("Group").Preload("SubGroup").Preload("Location").First(&batch, id).Error
	if err != nil {
		return nil, err
	}
	units, err := r.UnitsOfBatches([]uint{batch.ID})
	if err != nil {
		return nil, err
	}
	batch.Units = units[batch.ID]
	return &batch, nil
}

// ListBatches lists batches newest first, optionally for one location
func (r *StockRepository) ListBatches(locationID *uint, page, pageSize int) ([]models.StockBatch, int64, error) {
	var batches []models.StockBatch
	var total int64
	query := r.db.Model(&models.StockBatch{})
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Group").Preload("SubGroup").Preload("Location").
		Order("created_at DESC, id DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	units, err := r.UnitsOfBatches(ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range batches {
		batches[i].Units = units[batches[i].ID]
	}
	return batches, total, nil
}

// UnitsOfBatches loads units grouped by batch id, in insertion order
func (r *StockRepository) UnitsOfBatches(batchIDs []uint) (map[uint][]models.BarcodedUnit, error) {
	result := make(map[uint][]models.BarcodedUnit, len(batchIDs))
	if len(batchIDs) == 0 {
		return result, nil
	}
	var units []models.BarcodedUnit
	if err := r.db.Where("batch_id IN ?", batchIDs).Order("id").Find(&units).Error; err != nil {
		return nil, err
	}
	for _, u := range units {
		result[u.BatchID] = append(result[u.BatchID], u)
	}
	return result, nil
}

func (r *StockRepository) GetUnitByCode(code string) (*models.BarcodedUnit, error) {
	var unit models.BarcodedUnit
	if err := r.db.Where("code = ?", code).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetUnitWithBatch retrieves a unit with its batch and catalog references
func (r *StockRepository) GetUnitWithBatch(code string) (*models.BarcodedUnit, error) {
	var unit models.BarcodedUnit
	err := r.db.Preload("Batch").Preload("Batch.Group").Preload("Batch.SubGroup").
		Where("code = ?", code).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// LockUnitsByCode loads units with a row lock held until the transaction ends
func (r *StockRepository) LockUnitsByCode(codes []string) ([]models.BarcodedUnit, error) {
	var units []models.BarcodedUnit
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Batch").Preload("Batch.Group").
		Where("code IN ?", codes).
		Order("id").
		Find(&units).Error
	return units, err
}

// DeactivateUnits flips active units to sold and returns how many rows changed
func (r *StockRepository) DeactivateUnits(ids []uint) (int64, error) {
	res := r.db.Model(&models.BarcodedUnit{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// HasSoldUnits reports whether any unit of the batch backs a sale item
func (r *StockRepository) HasSoldUnits(batchID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.SaleItem{}).
		Joins("JOIN barcoded_units ON barcoded_units.id = sale_items.unit_id").
		Where("barcoded_units.batch_id = ?", batchID).
		Count(&count).Error
	return count > 0, err
}

// DeleteBatch removes a batch and its units
func (r *StockRepository) DeleteBatch(id uint) error {
	if err := r.db.Where("batch_id = ?", id).Delete(&models.BarcodedUnit{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.StockBatch{}, id).Error
}

// LocationFilter restricts a query to one location. A nil ID matches rows without a location.
type LocationFilter struct {
	ID *uint
}

func (f *LocationFilter) apply(query *gorm.DB, column string) *gorm.DB {
	if f == nil {
		return query
	}
	if f.ID == nil {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", *f.ID)
}

// CountUnits counts units by state, optionally limited to one location
func (r *StockRepository) CountUnits(filter *LocationFilter, active bool) (int64, error) {
	var count int64
	query := r.db.Model(&models.BarcodedUnit{}).Where("barcoded_units.is_active = ?", active)
	if filter != nil {
		query = query.Joins("JOIN stock_batches ON stock_batches.id = barcoded_units.batch_id")
		query = filter.apply(query, "stock_batches.location_id")
	}
	err := query.Count(&count).Error
	return count, err
}
