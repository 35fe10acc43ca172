package services

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/testutil"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

var unitCodePattern = regexp.MustCompile(`^[0-9]{8}$`)

type stockFixture struct {
	db       *gorm.DB
	svc      *StockService
	admin    *models.User
	staff    *models.User
	location *models.Location
	group    *models.ProductGroup
	sub      *models.ProductSubGroup
}

func newStockFixture(t *testing.T) *stockFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	location := createLocation(t, db, "Main")
	admin := createUser(t, db, "boss", models.RoleAdmin, nil, nil)
	staff := createUser(t, db, "clerk", models.RoleStaff, &admin.ID, &location.ID)
	group, sub := createCatalog(t, db, "Shirts")
	return &stockFixture{
		db:       db,
		svc:      NewStockService(db),
		admin:    admin,
		staff:    staff,
		location: location,
		group:    group,
		sub:      sub,
	}
}

func (f *stockFixture) request(pieces int) *models.ReceiveBatchRequest {
	return &models.ReceiveBatchRequest{
		GroupID:      f.group.ID,
		SubGroupID:   f.sub.ID,
		NoOfPieces:   pieces,
		PriceWithGST: decimal.RequireFromString("1050"),
		CostPrice:    decimal.RequireFromString("700"),
	}
}

func (f *stockFixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestReceiveBatchGeneratesUniqueCodes(t *testing.T) {
	f := newStockFixture(t)

	batch, err := f.svc.ReceiveBatch(actorOf(f.staff), f.request(25))
	require.NoError(t, err)
	require.Len(t, batch.Units, 25)

	seen := map[string]bool{}
	for _, u := range batch.Units {
		assert.Regexp(t, unitCodePattern, u.Code)
		assert.True(t, u.IsActive)
		assert.False(t, seen[u.Code], "duplicate code %s", u.Code)
		seen[u.Code] = true
	}
	assert.Equal(t, int64(25), f.countRows(t, &models.BarcodedUnit{}))

	require.NotNil(t, batch.LocationID, "location defaults to the receiver's")
	assert.Equal(t, f.location.ID, *batch.LocationID)
	assert.Equal(t, "6109", batch.HSNCode)
	assert.Equal(t, "2.50", batch.SGSTRate.StringFixed(2), "rates default to the group's")
	assert.Equal(t, 1, batch.PcsPerUnit)
}

func TestReceiveBatchCodesAreUniqueAcrossBatches(t *testing.T) {
	f := newStockFixture(t)
	f.svc.genCode = codeSeq("11111111")
	_, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(1))
	require.NoError(t, err)

	f.svc.genCode = codeSeq("11111111", "22222222", "33333333")
	batch, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"22222222", "33333333"}, batch.Codes())
}

func TestReceiveBatchSkipsDuplicateDraws(t *testing.T) {
	f := newStockFixture(t)
	f.svc.genCode = codeSeq("44444444", "44444444", "55555555")

	batch, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"44444444", "55555555"}, batch.Codes())
}

func TestReceiveBatchIsAtomic(t *testing.T) {
	f := newStockFixture(t)
	f.svc.genCode = codeSeq("11111111")
	_, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(1))
	require.NoError(t, err)

	// the generator can only produce a code that is already taken
	_, err = f.svc.ReceiveBatch(actorOf(f.admin), f.request(3))
	assert.True(t, apperror.HasCode(err, "code_generation_failed"))

	assert.Equal(t, int64(1), f.countRows(t, &models.StockBatch{}), "failed batch is rolled back")
	assert.Equal(t, int64(1), f.countRows(t, &models.BarcodedUnit{}))
}

func TestReceiveBatchValidation(t *testing.T) {
	f := newStockFixture(t)
	other, _ := createCatalog(t, f.db, "Trousers")

	_, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(0))
	assert.True(t, apperror.HasCode(err, "invalid_pieces"))

	req := f.request(1)
	req.GroupID = other.ID
	_, err = f.svc.ReceiveBatch(actorOf(f.admin), req)
	assert.True(t, apperror.HasCode(err, "subgroup_mismatch"))

	req = f.request(1)
	req.SubGroupID = 999
	_, err = f.svc.ReceiveBatch(actorOf(f.admin), req)
	assert.True(t, apperror.HasCode(err, "subgroup_not_found"))

	req = f.request(1)
	req.LocationID = uintPtr(999)
	_, err = f.svc.ReceiveBatch(actorOf(f.admin), req)
	assert.True(t, apperror.HasCode(err, "location_not_found"))

	assert.Equal(t, int64(0), f.countRows(t, &models.StockBatch{}))
}

func TestReceiveBatchKeepsExplicitRates(t *testing.T) {
	f := newStockFixture(t)
	req := f.request(1)
	req.IGSTRate = decimal.RequireFromString("5")
	req.HSNCode = "6205"
	req.PcsPerUnit = 2

	batch, err := f.svc.ReceiveBatch(actorOf(f.admin), req)
	require.NoError(t, err)
	assert.Nil(t, batch.LocationID, "admin without a location and no explicit location")
	assert.Equal(t, "5.00", batch.IGSTRate.StringFixed(2))
	assert.True(t, batch.SGSTRate.IsZero())
	assert.Equal(t, "6205", batch.HSNCode)
	assert.Equal(t, 2, batch.PcsPerUnit)
}

func TestLookupSellableUnit(t *testing.T) {
	f := newStockFixture(t)
	f.svc.genCode = codeSeq("12345678", "87654321")
	_, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(2))
	require.NoError(t, err)

	info, err := f.svc.LookupSellableUnit(actorOf(f.staff), "12345678")
	require.NoError(t, err)
	assert.Equal(t, "Shirts", info.GroupName)
	assert.Equal(t, "Shirts M", info.SubGroupName)
	assert.Equal(t, "1050.00", info.Rate.StringFixed(2))
	assert.Equal(t, "2.50", info.CGSTRate.StringFixed(2))

	require.NoError(t, f.db.Model(&models.BarcodedUnit{}).Where("code = ?", "87654321").Update("is_active", false).Error)

	_, err = f.svc.LookupSellableUnit(actorOf(f.staff), "87654321")
	assert.True(t, apperror.HasCode(err, "unit_inactive"))
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = f.svc.LookupSellableUnit(actorOf(f.staff), "00000000")
	assert.True(t, apperror.HasCode(err, "unit_not_found"))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListAndDeleteBatches(t *testing.T) {
	f := newStockFixture(t)
	elsewhere := createLocation(t, f.db, "Warehouse")

	_, err := f.svc.ReceiveBatch(actorOf(f.staff), f.request(2))
	require.NoError(t, err)
	req := f.request(3)
	req.LocationID = &elsewhere.ID
	other, err := f.svc.ReceiveBatch(actorOf(f.admin), req)
	require.NoError(t, err)

	all, total, err := f.svc.ListBatches(actorOf(f.admin), nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all[0].Units, 3, "newest first with its codes")

	mine, total, err := f.svc.ListBatches(actorOf(f.staff), nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "staff only see their location")
	assert.Equal(t, "Main", mine[0].Location.Name)

	got, err := f.svc.GetBatch(actorOf(f.staff), other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.Codes(), got.Codes())

	err = f.svc.DeleteBatch(actorOf(f.staff), other.ID)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	require.NoError(t, f.svc.DeleteBatch(actorOf(f.admin), other.ID))
	_, err = f.svc.GetBatch(actorOf(f.admin), other.ID)
	assert.True(t, apperror.HasCode(err, "batch_not_found"))
	assert.Equal(t, int64(2), f.countRows(t, &models.BarcodedUnit{}), "units go with their batch")
}

func TestUnitLabel(t *testing.T) {
	f := newStockFixture(t)
	f.svc.genCode = codeSeq("12345678")
	_, err := f.svc.ReceiveBatch(actorOf(f.admin), f.request(1))
	require.NoError(t, err)

	img, err := f.svc.UnitLabel(actorOf(f.staff), "12345678")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	_, err = f.svc.UnitLabel(actorOf(f.staff), "99999999")
	assert.True(t, apperror.HasCode(err, "unit_not_found"))
}
