package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDb(t *testing.T) *DbContext {
	t.Helper()

	dbCtx, err := NewDbContext(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())
	t.Cleanup(func() { _ = dbCtx.Close() })
	return dbCtx
}

func addCandidates(t *testing.T, dbCtx *DbContext, ids ...string) {
	t.Helper()

	candidates := NewCandidatesRepository(dbCtx.DB)
	for _, id := range ids {
		require.NoError(t, candidates.Add(context.Background(), entities.Candidate{ID: id, Name: "Candidate " + id}))
	}
}

func Test_Settings_CRUD(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	addCandidates(t, dbCtx, "c1")
	settings := NewSettingsRepository(dbCtx.DB)

	setting := entities.NotificationSetting{
		ID:           uuid.NewString(),
		CandidateID:  "c1",
		CompanyNames: []string{"Acme"},
		JobRoles:     []string{},
		Keywords:     []string{"go", "rust"},
	}
	require.NoError(t, settings.Add(ctx, setting))

	stored, err := settings.GetByCandidate(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, setting.ID, stored[0].ID)
	assert.Equal(t, []string{"Acme"}, stored[0].CompanyNames)
	assert.Equal(t, []string{}, stored[0].JobRoles)
	assert.Equal(t, []string{"go", "rust"}, stored[0].Keywords)

	setting.CompanyNames = []string{}
	setting.JobRoles = []string{"Backend"}
	setting.Keywords = []string{}
	require.NoError(t, settings.Replace(ctx, setting))

	stored, err = settings.GetByCandidate(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, setting.ID, stored[0].ID)
	assert.Empty(t, stored[0].CompanyNames)
	assert.Equal(t, []string{"Backend"}, stored[0].JobRoles)
	assert.Empty(t, stored[0].Keywords)

	require.NoError(t, settings.Remove(ctx, "c1", setting.ID))
	stored, err = settings.GetByCandidate(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func Test_Settings_UnknownCandidateOrFilter_NotFound(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	addCandidates(t, dbCtx, "c1", "c2")
	settings := NewSettingsRepository(dbCtx.DB)

	err := settings.Add(ctx, entities.NotificationSetting{ID: "s1", CandidateID: "missing"})
	assert.True(t, errors.Is(err, ErrCandidateNotFound))

	_, err = settings.GetByCandidate(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCandidateNotFound))

	err = settings.Replace(ctx, entities.NotificationSetting{ID: "absent", CandidateID: "c1"})
	assert.True(t, errors.Is(err, ErrFilterNotFound))

	err = settings.Remove(ctx, "missing", "absent")
	assert.True(t, errors.Is(err, ErrCandidateNotFound))

	require.NoError(t, settings.Add(ctx, entities.NotificationSetting{ID: "s1", CandidateID: "c1"}))

	// a setting is only reachable through its owner
	err = settings.Remove(ctx, "c2", "s1")
	assert.True(t, errors.Is(err, ErrFilterNotFound))
}

func Test_Mailbox_Append_SkipsAlreadyDeliveredJob(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	addCandidates(t, dbCtx, "c1", "c2")
	mailbox := NewMailboxRepository(dbCtx.DB)

	entries := []entities.MailboxEntry{
		{CandidateID: "c1", JobID: "job-1", Date: 1, Sender: "Globex", Context: "first"},
		{CandidateID: "c2", JobID: "job-1", Date: 1, Sender: "Globex", Context: "first"},
	}
	inserted, err := mailbox.Append(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	inserted, err = mailbox.Append(ctx, []entities.MailboxEntry{
		{CandidateID: "c1", JobID: "job-1", Date: 2, Sender: "Globex", Context: "redelivered"},
		{CandidateID: "c1", JobID: "job-2", Date: 3, Sender: "Acme", Context: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	stored, err := mailbox.GetByCandidate(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "first", stored[0].Context)
	assert.Equal(t, "second", stored[1].Context)

	_, err = mailbox.GetByCandidate(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCandidateNotFound))
}

func Test_Mailbox_ConcurrentAppends_NoLostUpdates(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	mailbox := NewMailboxRepository(dbCtx.DB)

	const candidatesCount = 20
	ids := make([]string, candidatesCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%02d", i)
	}
	addCandidates(t, dbCtx, ids...)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(candidateID string) {
			defer wg.Done()
			_, err := mailbox.Append(ctx, []entities.MailboxEntry{
				{CandidateID: candidateID, JobID: "job-1", Date: time.Now().UnixMilli(), Sender: "Globex"},
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		stored, err := mailbox.GetByCandidate(ctx, id)
		require.NoError(t, err)
		assert.Len(t, stored, 1, id)
	}
}

func Test_Candidates_GetWithSettings_PagesByIDAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	addCandidates(t, dbCtx, "a", "b", "c")
	settings := NewSettingsRepository(dbCtx.DB)
	require.NoError(t, settings.Add(ctx, entities.NotificationSetting{ID: "s1", CandidateID: "b", Keywords: []string{"go"}}))

	candidates := NewCandidatesRepository(dbCtx.DB)

	page, err := candidates.GetWithSettings(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Empty(t, page[0].NotificationSettings)
	assert.Equal(t, "b", page[1].ID)
	require.Len(t, page[1].NotificationSettings, 1)
	assert.Equal(t, []string{"go"}, page[1].NotificationSettings[0].Keywords)

	require.NoError(t, dbCtx.DB.Delete(&entities.NotificationSetting{}, "candidate_id = ?", "a").Error)
	require.NoError(t, dbCtx.DB.Delete(&entities.Candidate{}, "id = ?", "a").Error)

	page, err = candidates.GetWithSettings(ctx, page[len(page)-1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)

	exists, err := candidates.Exists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, exists)
}

func Test_FailedDeliveries_RemoveOld(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	failed := NewFailedDeliveriesRepository(dbCtx.DB)

	require.NoError(t, failed.Add(ctx, entities.FailedDelivery{JobID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, failed.Add(ctx, entities.FailedDelivery{JobID: "new"}))

	removed, err := failed.RemoveOld(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := failed.Get(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].JobID)
	assert.Equal(t, 1, left[0].Attempts)
}
