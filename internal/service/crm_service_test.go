package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/service"
	"github.com/tork-crm/tork-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDealService(db *gorm.DB) *service.DealService {
	return service.NewDealService(
		repository.NewDealRepository(db),
		repository.NewDealStageHistoryRepository(db),
		repository.NewPipelineStageRepository(db),
		zap.NewNop(),
		db,
	)
}

func TestContactService_GetListDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewContactService(repository.NewContactRepository(db), repository.NewDealRepository(db), zap.NewNop())
	ctx := testutil.UserContext("Corretor", domain.UserRoleBroker)

	ana := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "ana@example.com")
	testutil.CreateTestContact(t, db, "Bruno", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, ana, "AUTO - Ana", "NOVO")
	testutil.CreateTestDeal(t, db, ana, "VIDA - Ana", "COTACAO")
	require.NoError(t, repository.NewDealStageHistoryRepository(db).Create(context.Background(), &domain.DealStageHistory{
		DealID:      deal.ID,
		ToStage:     "NOVO",
		ChangedByID: "system",
	}))

	dto, err := svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.DealCount)
	assert.Equal(t, "ana@example.com", dto.Email)

	page, err := svc.List(ctx, 1, 20, nil, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Data, 2)

	require.NoError(t, svc.Delete(ctx, ana.ID))
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.Contact{}))
	assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.Deal{}))
	assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.DealStageHistory{}))

	_, err = svc.GetByID(ctx, ana.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), service.ErrNotFound)
}

func TestDealService_MoveStage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := testutil.UserContext("Paula", domain.UserRoleBroker)

	contact := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, contact, "AUTO - Ana", "NOVO")

	moved, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: "cotacao", Notes: "Cliente pediu cotação"})
	require.NoError(t, err)
	assert.Equal(t, "COTACAO", moved.Stage)

	// terminal stages are not locked
	_, err = svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: "GANHO"})
	require.NoError(t, err)
	_, err = svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: "NOVO"})
	require.NoError(t, err)

	// moving to the current stage records nothing
	_, err = svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: "NOVO"})
	require.NoError(t, err)

	history, err := svc.GetStageHistory(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	stages := []string{history[0].ToStage, history[1].ToStage, history[2].ToStage}
	assert.ElementsMatch(t, []string{"COTACAO", "GANHO", "NOVO"}, stages)
	for _, h := range history {
		assert.Equal(t, "Paula", h.ChangedByName)
		require.NotNil(t, h.FromStage)
	}
}

func TestDealService_MoveStageUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := context.Background()

	contact := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, contact, "AUTO - Ana", "NOVO")

	_, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: "ARQUIVADO"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	got, err := svc.GetByID(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "NOVO", got.Stage)
	assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.DealStageHistory{}))

	_, err = svc.MoveStage(ctx, uuid.New(), &domain.MoveDealStageRequest{Stage: "NOVO"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDealService_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := context.Background()

	contact := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, contact, "AUTO - Ana", "NOVO")

	updated, err := svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{
		Title:         "Seguro auto Ana",
		Value:         decimal.NewNullDecimal(decimal.NewFromInt(2500)),
		InsuranceType: domain.InsuranceTypeAuto,
		Priority:      domain.DealPriorityMedium,
		Status:        domain.DealStatusActive,
		RenewalDate:   testutil.StrPtr("2026-01-10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Seguro auto Ana", updated.Title)
	require.NotNil(t, updated.Value)
	assert.InDelta(t, 2500.0, *updated.Value, 0.001)
	require.NotNil(t, updated.RenewalDate)
	assert.Equal(t, "2026-01-10", *updated.RenewalDate)
	assert.Equal(t, "NOVO", updated.Stage)

	_, err = svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{
		Title:         "x",
		InsuranceType: "BARCO",
		Priority:      domain.DealPriorityLow,
		Status:        domain.DealStatusActive,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{
		Title:         "x",
		Value:         decimal.NewNullDecimal(decimal.NewFromInt(-1)),
		InsuranceType: domain.InsuranceTypeAuto,
		Priority:      domain.DealPriorityLow,
		Status:        domain.DealStatusActive,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, deal.ID))
	assert.ErrorIs(t, svc.Delete(ctx, deal.ID), service.ErrNotFound)
}

func TestDealService_UpdateKeepsExactCents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := context.Background()

	contact := testutil.CreateTestContact(t, db, "Caio", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, contact, "VIDA - Caio", "NOVO")

	var req domain.UpdateDealRequest
	body := `{"title":"Vida Caio","value":1234567890123.45,"insuranceType":"VIDA","priority":"HIGH","status":"ACTIVE"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.True(t, req.Value.Valid)
	assert.Equal(t, "1234567890123.45", req.Value.Decimal.String())

	_, err := svc.Update(ctx, deal.ID, &req)
	require.NoError(t, err)

	var stored domain.Deal
	require.NoError(t, db.First(&stored, "id = ?", deal.ID).Error)
	require.True(t, stored.Value.Valid)
	assert.True(t, stored.Value.Decimal.Equal(decimal.RequireFromString("1234567890123.45")), stored.Value.Decimal.String())

	req = domain.UpdateDealRequest{}
	body = `{"title":"Vida Caio","value":null,"insuranceType":"VIDA","priority":"HIGH","status":"ACTIVE"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	updated, err := svc.Update(ctx, deal.ID, &req)
	require.NoError(t, err)
	assert.Nil(t, updated.Value)
}

func TestDealService_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)

	contact := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "")
	testutil.CreateTestDeal(t, db, contact, "AUTO - Ana", "NOVO")
	testutil.CreateTestDeal(t, db, contact, "VIDA - Ana", "GANHO")

	page, err := svc.List(context.Background(), 1, 20, &repository.DealFilters{Stage: testutil.StrPtr("GANHO")}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	deals, ok := page.Data.([]domain.DealDTO)
	require.True(t, ok)
	require.Len(t, deals, 1)
	assert.Equal(t, "VIDA - Ana", deals[0].Title)
}

func TestPipelineStageService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewPipelineStageService(repository.NewPipelineStageRepository(db), repository.NewDealRepository(db), zap.NewNop(), db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreatePipelineStageRequest{Name: "Em negociação", Slug: "em negociacao"})
	require.NoError(t, err)
	assert.Equal(t, "EM_NEGOCIACAO", created.Slug)
	assert.Equal(t, 4, created.Order)
	assert.Equal(t, domain.StageTypeNeutral, created.Type)
	assert.Equal(t, "#6B7280", created.Color)

	_, err = svc.Create(ctx, &domain.CreatePipelineStageRequest{Name: "Duplicado", Slug: "EM_NEGOCIACAO"})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = svc.Create(ctx, &domain.CreatePipelineStageRequest{Name: "", Slug: ""})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	order := 1
	name := "Negociação"
	updated, err := svc.Update(ctx, created.ID, &domain.UpdatePipelineStageRequest{Name: &name, Order: &order})
	require.NoError(t, err)
	assert.Equal(t, "Negociação", updated.Name)
	assert.Equal(t, "EM_NEGOCIACAO", updated.Slug)
	assert.Equal(t, 1, updated.Order)

	contact := testutil.CreateTestContact(t, db, "Ana", testutil.UniquePhone(), "")
	deal := testutil.CreateTestDeal(t, db, contact, "AUTO - Ana", "EM_NEGOCIACAO")

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrConflict)

	require.NoError(t, db.Delete(deal).Error)
	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrNotFound)

	stages, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "NOVO", stages[0].Slug)
}

func TestPipelineStageService_DeleteInUseRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	stageRepo := repository.NewPipelineStageRepository(db)
	svc := service.NewPipelineStageService(stageRepo, repository.NewDealRepository(db), zap.NewNop(), db)
	ctx := context.Background()

	stage, err := svc.Create(ctx, &domain.CreatePipelineStageRequest{Name: "Vistoria", Slug: "VISTORIA"})
	require.NoError(t, err)
	contact := testutil.CreateTestContact(t, db, "Bia", testutil.UniquePhone(), "")
	testutil.CreateTestDeal(t, db, contact, "AUTO - Bia", "VISTORIA")

	assert.ErrorIs(t, svc.Delete(ctx, stage.ID), service.ErrConflict)

	kept, err := stageRepo.GetBySlug(ctx, "VISTORIA")
	require.NoError(t, err)
	assert.Equal(t, stage.ID, kept.ID)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), service.ErrNotFound)
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "FECHADO", service.NormalizeSlug("fechado"))
	assert.Equal(t, "AGUARDANDO_DOCS", service.NormalizeSlug("  aguardando   docs "))
	assert.Equal(t, "", service.NormalizeSlug("   "))
}
