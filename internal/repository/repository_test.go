package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/testutil"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func createContact(t *testing.T, repo *repository.ContactRepository, name, phone, email string) *domain.Contact {
	contact := &domain.Contact{Name: name, Type: domain.ContactTypeIndividual}
	if phone != "" {
		contact.Phone = testutil.StrPtr(phone)
	}
	if email != "" {
		contact.Email = testutil.StrPtr(email)
	}
	require.NoError(t, repo.Create(context.Background(), contact))
	return contact
}

func TestContactRepository_CreateDuplicatePhone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewContactRepository(db)
	ctx := context.Background()

	createContact(t, repo, "Ana", "5511999990001", "")

	err := repo.Create(ctx, &domain.Contact{Name: "Other", Phone: testutil.StrPtr("5511999990001")})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestContactRepository_DuplicateInsideTransactionKeepsTxUsable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	createContact(t, repository.NewContactRepository(db), "Ana", "5511999990001", "")

	err := db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewContactRepository(db).WithTx(tx)
		dupErr := repo.Create(ctx, &domain.Contact{Name: "Dup", Phone: testutil.StrPtr("5511999990001")})
		require.ErrorIs(t, dupErr, gorm.ErrDuplicatedKey)

		found, err := repo.GetByPhone(ctx, "5511999990001")
		require.NoError(t, err)
		assert.Equal(t, "Ana", found.Name)

		return repo.Create(ctx, &domain.Contact{Name: "Bia", Phone: testutil.StrPtr("5511999990002")})
	})
	require.NoError(t, err)

	count, err := repository.NewContactRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestContactRepository_ListSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewContactRepository(db)
	ctx := context.Background()

	createContact(t, repo, "Ana Souza", "5511999990001", "ana@example.com")
	createContact(t, repo, "Bruno Lima", "5511999990002", "")
	createContact(t, repo, "Carla", "", "carla@example.com")

	contacts, total, err := repo.List(ctx, 1, 20, &repository.ContactFilters{Search: "souza"}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana Souza", contacts[0].Name)

	contacts, total, err = repo.List(ctx, 1, 2, nil, repository.SortConfig{Field: "name", Order: repository.SortOrderAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Ana Souza", contacts[0].Name)
}

func TestContactRepository_DeleteCascadesToDeals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	contacts := repository.NewContactRepository(db)
	deals := repository.NewDealRepository(db)
	history := repository.NewDealStageHistoryRepository(db)
	ctx := context.Background()

	contact := createContact(t, contacts, "Ana", "5511999990001", "")
	deal := &domain.Deal{Title: "Auto - Ana", ContactID: contact.ID, Stage: "NOVO", InsuranceType: domain.InsuranceTypeAuto, Priority: domain.DealPriorityHigh, Status: domain.DealStatusActive, InsuranceData: "{}"}
	require.NoError(t, deals.Create(ctx, deal))
	require.NoError(t, history.Create(ctx, &domain.DealStageHistory{DealID: deal.ID, ToStage: "NOVO", ChangedByID: "system", ChangedAt: time.Now()}))

	require.NoError(t, contacts.Delete(ctx, contact.ID))

	_, err := deals.GetByID(ctx, deal.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	entries, err := history.GetByDealID(ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, contacts.Delete(ctx, uuid.New()), gorm.ErrRecordNotFound)
}

func TestDealRepository_FiltersAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	contacts := repository.NewContactRepository(db)
	deals := repository.NewDealRepository(db)
	ctx := context.Background()

	ana := createContact(t, contacts, "Ana", "5511999990001", "")
	bia := createContact(t, contacts, "Bia", "5511999990002", "")

	for _, d := range []domain.Deal{
		{Title: "a1", ContactID: ana.ID, Stage: "NOVO", InsuranceType: domain.InsuranceTypeAuto},
		{Title: "a2", ContactID: ana.ID, Stage: "GANHO", InsuranceType: domain.InsuranceTypeLife},
		{Title: "b1", ContactID: bia.ID, Stage: "NOVO", InsuranceType: domain.InsuranceTypeAuto},
	} {
		deal := d
		deal.Priority = domain.DealPriorityHigh
		deal.Status = domain.DealStatusActive
		deal.InsuranceData = "{}"
		require.NoError(t, deals.Create(ctx, &deal))
	}

	stage := "NOVO"
	list, total, err := deals.List(ctx, 1, 20, &repository.DealFilters{Stage: &stage}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, d := range list {
		require.NotNil(t, d.Contact)
	}

	count, err := deals.CountByStage(ctx, "GANHO")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	counts, err := deals.CountByContacts(ctx, []uuid.UUID{ana.ID, bia.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[ana.ID])
	assert.Equal(t, 1, counts[bia.ID])
}

func TestPipelineStageRepository_InitialAndNextOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPipelineStageRepository(db)
	ctx := context.Background()

	initial, err := repo.GetInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NOVO", initial.Slug)

	next, err := repo.NextSortOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestPipelineStageRepository_LockByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPipelineStageRepository(db)
	ctx := context.Background()

	initial, err := repo.GetInitial(ctx)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).LockByID(ctx, initial.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "NOVO", locked.Slug)
		return nil
	})
	require.NoError(t, err)

	_, err = repo.LockByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSyncTaskRepository_ClaimLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSyncTaskRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	due := &domain.HelpdeskSyncTask{Name: "Ana", Phone: "5511999990001", Status: domain.SyncTaskPending, NextRetryAt: now.Add(-time.Second)}
	later := &domain.HelpdeskSyncTask{Name: "Bia", Phone: "5511999990002", Status: domain.SyncTaskPending, NextRetryAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, due))
	require.NoError(t, repo.Create(ctx, later))

	claimed, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, due.ID, claimed.ID)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, domain.SyncTaskProcessing, claimed.Status)

	none, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, none, "processing and future tasks are not claimable")

	require.NoError(t, repo.MarkFailed(ctx, claimed.ID, "boom", now.Add(-time.Millisecond)))
	again, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)

	require.NoError(t, repo.MarkDone(ctx, again.ID, now))
	stored, err := repo.GetByID(ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncTaskDone, stored.Status)
	require.NotNil(t, stored.ProcessedAt)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.SyncTaskDone])
	assert.Equal(t, int64(1), counts[domain.SyncTaskPending])
}

func TestSyncTaskRepository_ExpiredClaimIsReclaimed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSyncTaskRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	task := &domain.HelpdeskSyncTask{Name: "Ana", Phone: "5511999990001", Status: domain.SyncTaskPending, NextRetryAt: now.Add(-time.Second)}
	require.NoError(t, repo.Create(ctx, task))

	claimed, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NotNil(t, claimed.ClaimedAt)

	// the worker died without recording a result
	within, err := repo.ClaimNextDue(ctx, now.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, within, "a live claim is not taken over")

	expired, err := repo.ClaimNextDue(ctx, now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, expired)
	assert.Equal(t, task.ID, expired.ID)
	assert.Equal(t, 2, expired.Attempts)
	assert.Equal(t, domain.SyncTaskProcessing, expired.Status)
}

func TestSyncTaskRepository_Release(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSyncTaskRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	task := &domain.HelpdeskSyncTask{Name: "Ana", Phone: "5511999990001", Status: domain.SyncTaskFailed, Attempts: 2, NextRetryAt: now.Add(-time.Second)}
	require.NoError(t, repo.Create(ctx, task))

	claimed, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 3, claimed.Attempts)

	require.NoError(t, repo.Release(ctx, claimed.ID, now))

	stored, err := repo.GetByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncTaskPending, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Nil(t, stored.ClaimedAt)

	again, err := repo.ClaimNextDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, again, "a released task is due right away")
}

func TestUserRepository_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, &domain.User{Email: " Broker@Example.com ", Name: "Broker", Role: domain.UserRoleBroker}, func(*domain.User) {})
	require.NoError(t, err)
	assert.Equal(t, "broker@example.com", created.Email)

	updated, err := repo.Upsert(ctx, &domain.User{Email: "broker@example.com", Name: "Renamed"}, func(existing *domain.User) {
		existing.Name = "Renamed"
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, domain.UserRoleBroker, updated.Role)
}

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"name": "name"}
	assert.Equal(t, "name ASC", repository.BuildOrderClause(repository.SortConfig{Field: "name", Order: repository.SortOrderAsc}, fields, "created_at"))
	assert.Equal(t, "created_at DESC", repository.BuildOrderClause(repository.SortConfig{Field: "; drop", Order: "x"}, fields, "created_at"))

	page, size := repository.NormalizePagination(0, 1000)
	assert.Equal(t, 1, page)
	assert.Equal(t, repository.MaxPageSize, size)
}

func TestLockRows(t *testing.T) {
	id := uuid.New()
	stageByID := func(strength string) func(tx *gorm.DB) *gorm.DB {
		return func(tx *gorm.DB) *gorm.DB {
			return repository.LockRows(tx, strength).First(&domain.PipelineStage{}, "id = ?", id)
		}
	}

	t.Run("postgres locks the row", func(t *testing.T) {
		db, err := gorm.Open(postgres.Open("host=localhost user=tork dbname=tork sslmode=disable"), &gorm.Config{
			DisableAutomaticPing: true,
			DryRun:               true,
		})
		require.NoError(t, err)

		assert.Contains(t, db.ToSQL(stageByID(clause.LockingStrengthUpdate)), "FOR UPDATE")
		assert.Contains(t, db.ToSQL(stageByID(clause.LockingStrengthShare)), "FOR SHARE")

		claim := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return repository.LockRows(tx, clause.LockingStrengthUpdate, clause.LockingOptionsSkipLocked).
				First(&domain.HelpdeskSyncTask{})
		})
		assert.Contains(t, claim, "FOR UPDATE SKIP LOCKED")
	})

	t.Run("sqlite is left unchanged", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		sql := db.ToSQL(stageByID(clause.LockingStrengthUpdate))
		assert.NotContains(t, sql, "FOR UPDATE")
		assert.Contains(t, sql, "pipeline_stages")
	})
}
