package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	unitCodeLength = 8
	maxBatchPieces = 10000
	// generate-and-check rounds per insert attempt
	maxCodeRounds = 10
	// insert attempts when a concurrent batch takes one of our codes
	maxCodeInsertAttempts = 3
)

// StockService receives stock batches and resolves unit codes at the counter
type StockService struct {
	db           *gorm.DB
	stockRepo    *repository.StockRepository
	groupRepo    *repository.ProductGroupRepository
	locationRepo *repository.LocationRepository
	genCode      func() (string, error)
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{
		db:           db,
		stockRepo:    repository.NewStockRepository(db),
		groupRepo:    repository.NewProductGroupRepository(db),
		locationRepo: repository.NewLocationRepository(db),
		genCode: func() (string, error) {
			return gonanoid.Generate(digits, unitCodeLength)
		},
	}
}

// ReceiveBatch records a received batch and generates one unique code per piece.
// The batch and all of its units are written in one transaction.
func (s *StockService) ReceiveBatch(actor policy.Actor, req *models.ReceiveBatchRequest) (*models.StockBatch, error) {
	if err := policy.Authorize(actor, policy.OpReceiveStock); err != nil {
		return nil, err
	}
	if req.NoOfPieces < 1 || req.NoOfPieces > maxBatchPieces {
		return nil, apperror.Validation("invalid_pieces", fmt.Sprintf("no_of_pieces must be between 1 and %d", maxBatchPieces))
	}
	if req.PriceWithGST.IsNegative() || req.CostPrice.IsNegative() {
		return nil, apperror.Validation("invalid_price", "prices cannot be negative")
	}

	sub, err := s.groupRepo.GetSubGroup(req.SubGroupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("subgroup_not_found", "sub-group not found")
	}
	if err != nil {
		return nil, apperror.Storage("load sub-group", err)
	}
	if sub.GroupID != req.GroupID {
		return nil, apperror.Validation("subgroup_mismatch", "sub-group does not belong to the selected group")
	}
	group := sub.Group

	locationID := req.LocationID
	if locationID == nil {
		locationID = actor.LocationID
	}
	var location *models.Location
	if locationID != nil {
		location, err = s.locationRepo.GetByID(*locationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("location_not_found", "location not found")
		}
		if err != nil {
			return nil, apperror.Storage("load location", err)
		}
	}

	batch := &models.StockBatch{
		GroupID:      group.ID,
		SubGroupID:   sub.ID,
		LocationID:   locationID,
		CreatedByID:  utils.StringPtr(actor.ID),
		NoOfPieces:   req.NoOfPieces,
		PcsPerUnit:   req.PcsPerUnit,
		PriceWithGST: utils.Money(req.PriceWithGST),
		CostPrice:    utils.Money(req.CostPrice),
		SGSTRate:     req.SGSTRate,
		CGSTRate:     req.CGSTRate,
		IGSTRate:     req.IGSTRate,
		HSNCode:      strings.TrimSpace(req.HSNCode),
	}
	if batch.PcsPerUnit < 1 {
		batch.PcsPerUnit = 1
	}
	// rates and HSN fall back to the group defaults
	if batch.SGSTRate.IsZero() && batch.CGSTRate.IsZero() && batch.IGSTRate.IsZero() {
		batch.SGSTRate, batch.CGSTRate, batch.IGSTRate = group.SGSTRate, group.CGSTRate, group.IGSTRate
	}
	if batch.HSNCode == "" {
		batch.HSNCode = group.HSNCode
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.stockRepo.WithTx(tx)
		if err := repo.CreateBatch(batch); err != nil {
			return err
		}
		units, err := s.insertUnits(tx, batch.ID, batch.NoOfPieces)
		if err != nil {
			return err
		}
		batch.Units = units
		return nil
	})
	if err != nil {
		return nil, wrapStorage("receive batch", err)
	}

	batch.Group = group
	batch.SubGroup = sub
	batch.Location = location
	logrus.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"actor":    actor.ID,
	}).Infof("Received %d pieces of %s", batch.NoOfPieces, sub.Name)
	return batch, nil
}

// insertUnits generates n codes free at generation time and inserts them under a savepoint.
// A uniqueness conflict means a concurrent batch took a code in between; the whole set is
// regenerated a bounded number of times.
func (s *StockService) insertUnits(tx *gorm.DB, batchID uint, n int) ([]models.BarcodedUnit, error) {
	repo := s.stockRepo.WithTx(tx)
	for attempt := 1; attempt <= maxCodeInsertAttempts; attempt++ {
		codes, err := s.freeCodes(repo, n)
		if err != nil {
			return nil, err
		}
		units := make([]models.BarcodedUnit, n)
		for i, code := range codes {
			units[i] = models.BarcodedUnit{BatchID: batchID, Code: code, IsActive: true}
		}

		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.stockRepo.WithTx(sp).CreateUnits(units)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logrus.Warnf("Unit code collision on insert for batch %d, attempt %d", batchID, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return units, nil
	}
	return nil, errCodeSpaceExhausted()
}

// freeCodes returns n distinct codes not present in the store
func (s *StockService) freeCodes(repo *repository.StockRepository, n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	draws, maxDraws := 0, n*maxCodeRounds
	for round := 0; round < maxCodeRounds && len(codes) < n; round++ {
		candidates := make([]string, 0, n-len(codes))
		for len(candidates) < n-len(codes) {
			if draws == maxDraws {
				return nil, errCodeSpaceExhausted()
			}
			draws++
			code, err := s.genCode()
			if err != nil {
				return nil, apperror.Storage("generate unit code", err)
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			candidates = append(candidates, code)
		}

		taken, err := repo.ExistingCodes(candidates)
		if err != nil {
			return nil, err
		}
		takenSet := make(map[string]struct{}, len(taken))
		for _, code := range taken {
			takenSet[code] = struct{}{}
		}
		for _, code := range candidates {
			if _, ok := takenSet[code]; !ok {
				codes = append(codes, code)
			}
		}
	}
	if len(codes) < n {
		return nil, errCodeSpaceExhausted()
	}
	return codes, nil
}

func errCodeSpaceExhausted() *apperror.Error {
	return apperror.Conflict("code_generation_failed", "could not generate unique unit codes, please retry")
}

// ListBatches lists batches newest first. Staff with a location only see that location.
func (s *StockService) ListBatches(actor policy.Actor, locationID *uint, page, pageSize int) ([]models.StockBatch, int64, error) {
	if err := policy.Authorize(actor, policy.OpViewStock); err != nil {
		return nil, 0, err
	}
	if !policy.IsAdminOrSuperuser(actor) && actor.LocationID != nil {
		locationID = actor.LocationID
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	batches, total, err := s.stockRepo.ListBatches(locationID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.Storage("list batches", err)
	}
	return batches, total, nil
}

func (s *StockService) GetBatch(actor policy.Actor, id uint) (*models.StockBatch, error) {
	if err := policy.Authorize(actor, policy.OpViewStock); err != nil {
		return nil, err
	}
	return s.getBatch(id)
}

func (s *StockService) getBatch(id uint) (*models.StockBatch, error) {
	batch, err := s.stockRepo.GetBatch(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("batch_not_found", "stock batch not found")
	}
	if err != nil {
		return nil, apperror.Storage("load batch", err)
	}
	return batch, nil
}

// DeleteBatch removes a batch and its units unless one of them has been sold
func (s *StockService) DeleteBatch(actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.OpDeleteStock); err != nil {
		return err
	}
	if _, err := s.getBatch(id); err != nil {
		return err
	}
	sold, err := s.stockRepo.HasSoldUnits(id)
	if err != nil {
		return apperror.Storage("check sold units", err)
	}
	if sold {
		return apperror.Conflict("batch_has_sales", "units of this batch have been sold, it cannot be deleted")
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.stockRepo.WithTx(tx).DeleteBatch(id)
	})
	if err != nil {
		return apperror.Storage("delete batch", err)
	}
	logrus.WithField("actor", actor.ID).Infof("Stock batch %d deleted", id)
	return nil
}

// LookupSellableUnit returns the pricing snapshot of an active unit. Unknown and sold
// codes fail with different errors.
func (s *StockService) LookupSellableUnit(actor policy.Actor, code string) (*models.UnitInfo, error) {
	if err := policy.Authorize(actor, policy.OpLookupUnit); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.Validation("code_required", "code is required")
	}
	unit, err := s.stockRepo.GetUnitWithBatch(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUnitNotFound(code)
	}
	if err != nil {
		return nil, apperror.Storage("load unit", err)
	}
	if !unit.IsActive {
		return nil, apperror.Conflict("unit_inactive", fmt.Sprintf("unit %s has already been sold", code))
	}

	batch := unit.Batch
	info := &models.UnitInfo{
		UnitID:   unit.ID,
		Code:     unit.Code,
		HSNCode:  batch.HSNCode,
		Rate:     batch.PriceWithGST,
		CGSTRate: batch.CGSTRate,
		SGSTRate: batch.SGSTRate,
		IGSTRate: batch.IGSTRate,
	}
	if batch.Group != nil {
		info.GroupName = batch.Group.Name
	}
	if batch.SubGroup != nil {
		info.SubGroupName = batch.SubGroup.Name
	}
	return info, nil
}

func errUnitNotFound(code string) *apperror.Error {
	return apperror.NotFound("unit_not_found", fmt.Sprintf("no unit with code %s", code))
}
