package repository

import (
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(location *models.Location) error {
	return r.db.Create(location).Error
}

func (r *LocationRepository) GetByID(id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.First(&location, id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) Update(location *models.Location) error {
	return r.db.Save(location).Error
}

func (r *LocationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Location{}, id).Error
}

// List returns locations ordered by name, optionally filtered by a name fragment
func (r *LocationRepository) List(search string) ([]models.Location, error) {
	var locations []models.Location
	query := r.db.Model(&models.Location{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	err := query.Order("name").Find(&locations).Error
	return locations, err
}

// IsReferenced reports whether stock or sales still point at the location
func (r *LocationRepository) IsReferenced(id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.StockBatch{}).Where("location_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.Model(&models.Sale{}).Where("location_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *models.InventoryCategory) error {
	return r.db.Create(category).Error
}

func (r *CategoryRepository) GetByID(id uint) (*models.InventoryCategory, error) {
	var category models.InventoryCategory
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Update(category *models.InventoryCategory) error {
	return r.db.Save(category).Error
}

func (r *CategoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.InventoryCategory{}, id).Error
}

// List returns categories ordered by name, optionally filtered by a name fragment
func (r *CategoryRepository) List(search string) ([]models.InventoryCategory, error) {
	var categories []models.InventoryCategory
	query := r.db.Model(&models.InventoryCategory{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	err := query.Order("name").Find(&categories).Error
	return categories, err
}

type ProductGroupRepository struct {
	db *gorm.DB
}

func NewProductGroupRepository(db *gorm.DB) *ProductGroupRepository {
	return &ProductGroupRepository{db: db}
}

func (r *ProductGroupRepository) Create(group *models.ProductGroup) error {
	return r.db.Create(group).Error
}

func (r *ProductGroupRepository) GetByID(id uint) (*models.ProductGroup, error) {
	var group models.ProductGroup
	if err := r.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *ProductGroupRepository) Update(group *models.ProductGroup) error {
	return r.db.Save(group).Error
}

// Delete removes a group and its sub-groups
func (r *ProductGroupRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.ProductSubGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ProductGroup{}, id).Error
	})
}

// List returns groups matching a name or HSN fragment
func (r *ProductGroupRepository) List(search string, page, pageSize int) ([]models.ProductGroup, int64, error) {
	var groups []models.ProductGroup
	var total int64
	query := r.db.Model(&models.ProductGroup{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(hsn_code) LIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("name").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&groups).Error
	return groups, total, err
}

// HasBatches reports whether any stock batch uses the group
func (r *ProductGroupRepository) HasBatches(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.StockBatch{}).Where("group_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *ProductGroupRepository) CreateSubGroup(sub *models.ProductSubGroup) error {
	return r.db.Create(sub).Error
}

func (r *ProductGroupRepository) GetSubGroup(id uint) (*models.ProductSubGroup, error) {
	var sub models.ProductSubGroup
	if err := r.db.Preload("Group").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubGroups lists sub-groups, all or those of one group
func (r *ProductGroupRepository) ListSubGroups(groupID uint) ([]models.ProductSubGroup, error) {
	var subs []models.ProductSubGroup
	query := r.db.Preload("Group")
	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	}
	err := query.Order("name").Find(&subs).Error
	return subs, err
}

func (r *ProductGroupRepository) DeleteSubGroup(id uint) error {
	return r.db.Delete(&models.ProductSubGroup{}, id).Error
}

// SubGroupHasBatches reports whether any stock batch uses the sub-group
func (r *ProductGroupRepository) SubGroupHasBatches(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.StockBatch{}).Where("sub_group_id = ?", id).Count(&count).Error
	return count > 0, err
}
