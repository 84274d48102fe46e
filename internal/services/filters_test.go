package services

import (
	"context"
	"strings"
	"testing"

	"github.com/maxaizer/job-alerts/internal/repositories"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilters(t *testing.T) *Filters {
	dbCtx := newDb(t)
	addCandidate(t, dbCtx, "c1")
	return NewFilters(repositories.NewSettingsRepository(dbCtx.DB), repositories.NewMailboxRepository(dbCtx.DB))
}

func Test_Filters_CreateThenList_RoundTrip(t *testing.T) {
	ctx := context.Background()
	filters := newFilters(t)

	criteria := FilterCriteria{
		CompanyNames: []string{"Acme"},
		JobRoles:     []string{"Backend", "Data Engineer"},
		Keywords:     []string{"go"},
	}
	first, err := filters.Create(ctx, "c1", criteria)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := filters.Create(ctx, "c1", criteria)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	listed, err := filters.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, criteria.CompanyNames, listed[0].CompanyNames)
	assert.Equal(t, criteria.JobRoles, listed[0].JobRoles)
	assert.Equal(t, criteria.Keywords, listed[0].Keywords)

	again, err := filters.List(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, listed, again)
}

func Test_Filters_Create_NormalizesLists(t *testing.T) {
	filters := newFilters(t)

	created, err := filters.Create(context.Background(), "c1", FilterCriteria{
		CompanyNames: []string{"  Acme   Corp ", "", "Acme Corp"},
		Keywords:     []string{" machine learning ", "   "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme Corp"}, created.CompanyNames)
	assert.Equal(t, []string{}, created.JobRoles)
	assert.Equal(t, []string{"machine learning"}, created.Keywords)
}

func Test_Filters_Create_RejectsTooLongEntry(t *testing.T) {
	filters := newFilters(t)

	_, err := filters.Create(context.Background(), "c1", FilterCriteria{Keywords: []string{strings.Repeat("a", 201)}})
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func Test_Filters_Update_ReplacesListsAndKeepsID(t *testing.T) {
	ctx := context.Background()
	filters := newFilters(t)

	created, err := filters.Create(ctx, "c1", FilterCriteria{CompanyNames: []string{"Acme"}, Keywords: []string{"go"}})
	require.NoError(t, err)

	updated, err := filters.Update(ctx, "c1", created.ID, FilterCriteria{JobRoles: []string{"QA"}})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	listed, err := filters.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, []string{}, listed[0].CompanyNames)
	assert.Equal(t, []string{"QA"}, listed[0].JobRoles)
	assert.Equal(t, []string{}, listed[0].Keywords)
}

func Test_Filters_NotFound(t *testing.T) {
	ctx := context.Background()
	filters := newFilters(t)

	_, err := filters.Create(ctx, "missing", FilterCriteria{})
	assert.True(t, errors.Is(err, repositories.ErrCandidateNotFound))

	_, err = filters.Update(ctx, "c1", "missing", FilterCriteria{})
	assert.True(t, errors.Is(err, repositories.ErrFilterNotFound))

	err = filters.Delete(ctx, "c1", "missing")
	assert.True(t, errors.Is(err, repositories.ErrFilterNotFound))

	_, err = filters.Mailbox(ctx, "missing")
	assert.True(t, errors.Is(err, repositories.ErrCandidateNotFound))
}

func Test_Filters_Mailbox_EmptyIsNotNil(t *testing.T) {
	entries, err := newFilters(t).Mailbox(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
