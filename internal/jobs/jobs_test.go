package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_AddAndRemove(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("nightly", "0 0 3 * * *", func() {}))
	assert.Error(t, s.AddJob("nightly", "0 0 3 * * *", func() {}), "duplicate name")
	assert.Error(t, s.AddJob("broken", "not a cron", func() {}))
	assert.Equal(t, []string{"nightly"}, s.JobNames())

	require.NoError(t, s.RemoveJob("nightly"))
	assert.Error(t, s.RemoveJob("nightly"))
	assert.Empty(t, s.JobNames())
}

func TestScheduler_RunsJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

type stubImporter struct {
	result      *domain.ImportResult
	err         error
	hadDeadline bool
	calls       int
}

func (s *stubImporter) ImportContacts(ctx context.Context) (*domain.ImportResult, error) {
	s.calls++
	_, s.hadDeadline = ctx.Deadline()
	return s.result, s.err
}

func TestHelpdeskImportJob_Run(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	importer := &stubImporter{result: &domain.ImportResult{Success: true, Imported: 3, TotalScanned: 10}}

	NewHelpdeskImportJob(importer, zap.New(core), time.Minute).Run()
	assert.Equal(t, 1, importer.calls)
	assert.True(t, importer.hadDeadline)
	require.Equal(t, 1, logs.FilterMessage("scheduled helpdesk import completed").Len())
	assert.Equal(t, int64(3), logs.FilterMessage("scheduled helpdesk import completed").All()[0].ContextMap()["imported"])

	importer.err = errors.New("helpdesk down")
	NewHelpdeskImportJob(importer, zap.New(core), 0).Run()
	assert.Equal(t, 1, logs.FilterMessage("scheduled helpdesk import failed").Len())
}

func TestRegisterHelpdeskImportJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, RegisterHelpdeskImportJob(s, &stubImporter{}, zap.NewNop(), "0 0 3 * * *", time.Minute))
	assert.Equal(t, []string{HelpdeskImportJobName}, s.JobNames())
}

type stubCounter struct {
	counts map[domain.SyncTaskStatus]int64
	err    error
}

func (s stubCounter) CountByStatus(context.Context) (map[domain.SyncTaskStatus]int64, error) {
	return s.counts, s.err
}

func TestSyncBacklogJob_WarnsOnDeadTasks(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	NewSyncBacklogJob(stubCounter{counts: map[domain.SyncTaskStatus]int64{
		domain.SyncTaskPending: 2,
	}}, zap.New(core), time.Second).Run()
	assert.Zero(t, logs.Len())

	NewSyncBacklogJob(stubCounter{counts: map[domain.SyncTaskStatus]int64{
		domain.SyncTaskPending: 2,
		domain.SyncTaskDead:    1,
	}}, zap.New(core), time.Second).Run()
	warnings := logs.FilterMessage("helpdesk sync tasks exhausted their retries").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(1), warnings[0].ContextMap()["dead"])

	NewSyncBacklogJob(stubCounter{err: errors.New("db closed")}, zap.New(core), time.Second).Run()
	assert.Equal(t, 1, logs.FilterMessage("failed to count helpdesk sync tasks").Len())
}
