package memory

import (
	"testing"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestStore_StagingLifecycle(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.ClearIssues(ctx))

	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AddIssues(ctx, []domain.Issue{{ID: "1", CreatedOn: d, Category: domain.CategoryOpen}}))
	require.NoError(t, s.AddIssues(ctx, []domain.Issue{{ID: "2", CreatedOn: d.AddDate(0, 0, 1), Category: domain.CategoryOpen}}))
	require.Equal(t, 2, s.StagedCount())

	snaps, err := s.DailyCounts(ctx, domain.NewRange(d, d.AddDate(0, 0, 1)))
	require.NoError(t, err)
	require.Equal(t, 1, snaps[0].Counts[domain.CategoryOpen])
	require.Equal(t, 2, snaps[1].Counts[domain.CategoryOpen])

	_, err = s.DailyCounts(ctx, domain.NewRange(d, d.AddDate(0, 0, -1)))
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	require.NoError(t, s.ClearIssues(ctx))
	require.NoError(t, s.ClearIssues(ctx))
	require.Zero(t, s.StagedCount())
}

func TestStore_UpsertOverwritesByDay(t *testing.T) {
	s := New()
	ctx := t.Context()
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertSnapshots(ctx, []domain.Snapshot{
		{Date: d.AddDate(0, 0, 1), Counts: domain.Counts{domain.CategoryOpen: 4}},
		{Date: d, Counts: domain.Counts{domain.CategoryOpen: 1}},
	}))
	require.NoError(t, s.UpsertSnapshots(ctx, []domain.Snapshot{
		{Date: d.Add(9 * time.Hour), Counts: domain.Counts{domain.CategoryOpen: 5}},
	}))
	require.Equal(t, 2, s.SnapshotCount())

	got, err := s.ListSnapshots(ctx, domain.NewRange(d, d.AddDate(0, 0, 5)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, d, got[0].Date)
	require.Equal(t, 5, got[0].Counts[domain.CategoryOpen])
	require.Zero(t, got[0].Counts[domain.CategoryChangeRequest])
	require.Len(t, got[0].Counts, len(domain.Categories))
}
