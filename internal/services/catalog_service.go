package services

import (
	"errors"
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CatalogService manages locations, inventory categories, product groups and sub-groups
type CatalogService struct {
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	groupRepo    *repository.ProductGroupRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		locationRepo: repository.NewLocationRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		groupRepo:    repository.NewProductGroupRepository(db),
	}
}

// ListLocations lists locations, optionally filtered by a name fragment
func (s *CatalogService) ListLocations(actor policy.Actor, search string) ([]models.Location, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, err
	}
	locations, err := s.locationRepo.List(strings.TrimSpace(search))
	if err != nil {
		return nil, apperror.Storage("list locations", err)
	}
	return locations, nil
}

func (s *CatalogService) CreateLocation(actor policy.Actor, req *models.LocationRequest) (*models.Location, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	location := &models.Location{Name: strings.TrimSpace(req.Name)}
	if location.Name == "" {
		return nil, apperror.Validation("name_required", "name is required")
	}
	if err := s.locationRepo.Create(location); err != nil {
		return nil, catalogWriteError("create location", "location_exists", "a location with this name already exists", err)
	}
	logrus.WithField("actor", actor.ID).Infof("Location %s created", location.Name)
	return location, nil
}

func (s *CatalogService) UpdateLocation(actor policy.Actor, id uint, req *models.LocationRequest) (*models.Location, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	location, err := s.getLocation(id)
	if err != nil {
		return nil, err
	}
	location.Name = strings.TrimSpace(req.Name)
	if location.Name == "" {
		return nil, apperror.Validation("name_required", "name is required")
	}
	if err := s.locationRepo.Update(location); err != nil {
		return nil, catalogWriteError("update location", "location_exists", "a location with this name already exists", err)
	}
	return location, nil
}

// DeleteLocation removes a location no batch or sale refers to
func (s *CatalogService) DeleteLocation(actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return err
	}
	if _, err := s.getLocation(id); err != nil {
		return err
	}
	used, err := s.locationRepo.IsReferenced(id)
	if err != nil {
		return apperror.Storage("check location usage", err)
	}
	if used {
		return apperror.Conflict("location_in_use", "location has stock or sales and cannot be deleted")
	}
	if err := s.locationRepo.Delete(id); err != nil {
		return apperror.Storage("delete location", err)
	}
	return nil
}

func (s *CatalogService) getLocation(id uint) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("location_not_found", "location not found")
	}
	if err != nil {
		return nil, apperror.Storage("load location", err)
	}
	return location, nil
}

// ListCategories lists inventory categories, optionally filtered by a name fragment
func (s *CatalogService) ListCategories(actor policy.Actor, search string) ([]models.InventoryCategory, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(strings.TrimSpace(search))
	if err != nil {
		return nil, apperror.Storage("list categories", err)
	}
	return categories, nil
}

func (s *CatalogService) GetCategory(actor policy.Actor, id uint) (*models.InventoryCategory, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, err
	}
	return s.getCategory(id)
}

func (s *CatalogService) CreateCategory(actor policy.Actor, req *models.CategoryRequest) (*models.InventoryCategory, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	category := &models.InventoryCategory{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if category.Name == "" {
		return nil, apperror.Validation("name_required", "name is required")
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, catalogWriteError("create category", "category_exists", "a category with this name already exists", err)
	}
	logrus.WithField("actor", actor.ID).Infof("Inventory category %s created", category.Name)
	return category, nil
}

func (s *CatalogService) UpdateCategory(actor policy.Actor, id uint, req *models.CategoryRequest) (*models.InventoryCategory, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	category, err := s.getCategory(id)
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)
	if category.Name == "" {
		return nil, apperror.Validation("name_required", "name is required")
	}
	if err := s.categoryRepo.Update(category); err != nil {
		return nil, catalogWriteError("update category", "category_exists", "a category with this name already exists", err)
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return err
	}
	if _, err := s.getCategory(id); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(id); err != nil {
		return apperror.Storage("delete category", err)
	}
	return nil
}

func (s *CatalogService) getCategory(id uint) (*models.InventoryCategory, error) {
	category, err := s.categoryRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("category_not_found", "category not found")
	}
	if err != nil {
		return nil, apperror.Storage("load category", err)
	}
	return category, nil
}

// ListGroups lists product groups matching a name or HSN fragment
func (s *CatalogService) ListGroups(actor policy.Actor, search string, page, pageSize int) ([]models.ProductGroup, int64, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	groups, total, err := s.groupRepo.List(strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return nil, 0, apperror.Storage("list product groups", err)
	}
	return groups, total, nil
}

func (s *CatalogService) GetGroup(actor policy.Actor, id uint) (*models.ProductGroup, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, err
	}
	return s.getGroup(id)
}

func (s *CatalogService) CreateGroup(actor policy.Actor, req *models.ProductGroupRequest) (*models.ProductGroup, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	group := &models.ProductGroup{}
	if err := applyGroupRequest(group, req); err != nil {
		return nil, err
	}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, catalogWriteError("create product group", "group_exists", "a product group with this name already exists", err)
	}
	logrus.WithField("actor", actor.ID).Infof("Product group %s created", group.Name)
	return group, nil
}

func (s *CatalogService) UpdateGroup(actor policy.Actor, id uint, req *models.ProductGroupRequest) (*models.ProductGroup, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	group, err := s.getGroup(id)
	if err != nil {
		return nil, err
	}
	if err := applyGroupRequest(group, req); err != nil {
		return nil, err
	}
	if err := s.groupRepo.Update(group); err != nil {
		return nil, catalogWriteError("update product group", "group_exists", "a product group with this name already exists", err)
	}
	return group, nil
}

func applyGroupRequest(group *models.ProductGroup, req *models.ProductGroupRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperror.Validation("name_required", "name is required")
	}
	if req.SGSTRate.IsNegative() || req.CGSTRate.IsNegative() || req.IGSTRate.IsNegative() {
		return apperror.Validation("invalid_tax_rate", "tax rates cannot be negative")
	}
	group.Name = name
	group.HSNCode = strings.TrimSpace(req.HSNCode)
	group.SGSTRate = req.SGSTRate
	group.CGSTRate = req.CGSTRate
	group.IGSTRate = req.IGSTRate
	group.Description = req.Description
	return nil
}

// DeleteGroup removes a group and its sub-groups when no batch uses it
func (s *CatalogService) DeleteGroup(actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return err
	}
	if _, err := s.getGroup(id); err != nil {
		return err
	}
	used, err := s.groupRepo.HasBatches(id)
	if err != nil {
		return apperror.Storage("check group usage", err)
	}
	if used {
		return apperror.Conflict("group_in_use", "product group has stock batches and cannot be deleted")
	}
	if err := s.groupRepo.Delete(id); err != nil {
		return apperror.Storage("delete product group", err)
	}
	return nil
}

func (s *CatalogService) getGroup(id uint) (*models.ProductGroup, error) {
	group, err := s.groupRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("group_not_found", "product group not found")
	}
	if err != nil {
		return nil, apperror.Storage("load product group", err)
	}
	return group, nil
}

// ListSubGroups lists sub-groups of one group, or all when groupID is 0
func (s *CatalogService) ListSubGroups(actor policy.Actor, groupID uint) ([]models.ProductSubGroup, error) {
	if err := policy.Authorize(actor, policy.OpViewCatalog); err != nil {
		return nil, err
	}
	subs, err := s.groupRepo.ListSubGroups(groupID)
	if err != nil {
		return nil, apperror.Storage("list sub-groups", err)
	}
	return subs, nil
}

func (s *CatalogService) CreateSubGroup(actor policy.Actor, req *models.ProductSubGroupRequest) (*models.ProductSubGroup, error) {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return nil, err
	}
	group, err := s.getGroup(req.GroupID)
	if err != nil {
		return nil, err
	}
	sub := &models.ProductSubGroup{GroupID: group.ID, Name: strings.TrimSpace(req.Name)}
	if sub.Name == "" {
		return nil, apperror.Validation("name_required", "name is required")
	}
	if err := s.groupRepo.CreateSubGroup(sub); err != nil {
		return nil, catalogWriteError("create sub-group", "subgroup_exists", "this group already has a sub-group with that name", err)
	}
	sub.Group = group
	return sub, nil
}

func (s *CatalogService) DeleteSubGroup(actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.OpManageCatalog); err != nil {
		return err
	}
	if _, err := s.getSubGroup(id); err != nil {
		return err
	}
	used, err := s.groupRepo.SubGroupHasBatches(id)
	if err != nil {
		return apperror.Storage("check sub-group usage", err)
	}
	if used {
		return apperror.Conflict("subgroup_in_use", "sub-group has stock batches and cannot be deleted")
	}
	if err := s.groupRepo.DeleteSubGroup(id); err != nil {
		return apperror.Storage("delete sub-group", err)
	}
	return nil
}

func (s *CatalogService) getSubGroup(id uint) (*models.ProductSubGroup, error) {
	sub, err := s.groupRepo.GetSubGroup(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("subgroup_not_found", "sub-group not found")
	}
	if err != nil {
		return nil, apperror.Storage("load sub-group", err)
	}
	return sub, nil
}

func catalogWriteError(op, code, message string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(code, message)
	}
	return apperror.Storage(op, err)
}
