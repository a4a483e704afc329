package repo

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSnapshotUpsertIsIdempotent(t *testing.T) {
	require.Contains(t, upsertSnapshotQuery, "ON CONFLICT(day) DO UPDATE SET")
	for _, c := range domain.Categories {
		col, ok := snapshotColumns[c]
		require.True(t, ok, c)
		require.Contains(t, upsertSnapshotQuery, col+"=EXCLUDED."+col)
		require.Contains(t, selectSnapshotsQuery, col)
	}
	require.Contains(t, upsertSnapshotQuery, "VALUES($1,$2,$3,$4,$5,$6,$7, now())")
	require.Contains(t, selectSnapshotsQuery,
		"SELECT day, wp_open, wp_defects, wp_preccb_not_analysed, wp_postccb_not_analysed, wp_pr, wp_cr FROM")
}

func TestStagingQueriesNeverTouchSnapshots(t *testing.T) {
	for _, q := range []string{clearStagedQuery, selectStagedQuery, dailyCountsQuery} {
		require.NotContains(t, q, "daily_snapshots")
	}
	require.Equal(t, "TRUNCATE staged_issues", clearStagedQuery)
	require.Contains(t, dailyCountsQuery, "s.resolved_on > d::date")
	require.Contains(t, dailyCountsQuery, "s.created_on <= d::date")
}

func TestSnapshotArgsFollowCategoryOrder(t *testing.T) {
	s := domain.Snapshot{
		Date:   time.Date(2024, 2, 1, 13, 0, 0, 0, time.UTC),
		Counts: domain.Counts{"open": 1, "defect": 2, "preccb_not_analysed": 3, "postccb_not_analysed": 4, "pr": 5, "cr": 6},
	}
	args := snapshotArgs(s)
	require.Equal(t, []any{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1, 2, 3, 4, 5, 6}, args)
}

func TestAssembleDaily_FillsGaps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := domain.NewRange(start, start.AddDate(0, 0, 2))
	open, defect, junk := "open", "defect", "epic"
	rows := []dailyRow{
		{Day: start, Category: &open, Count: 3},
		{Day: start, Category: &defect, Count: 1},
		{Day: start.AddDate(0, 0, 1), Category: nil, Count: 0},
		{Day: start.AddDate(0, 0, 2), Category: &junk, Count: 9},
		{Day: start.AddDate(0, 0, 2), Category: &open, Count: 2},
	}
	snaps := assembleDaily(rng, rows)
	require.Len(t, snaps, 3)
	require.Equal(t, 3, snaps[0].Counts[domain.CategoryOpen])
	require.Equal(t, 1, snaps[0].Counts[domain.CategoryDefect])
	require.Equal(t, domain.NewCounts(), snaps[1].Counts)
	require.Equal(t, 2, snaps[2].Counts[domain.CategoryOpen])
	require.Len(t, snaps[2].Counts, len(domain.Categories))
}

func TestMigrations(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/census?sslmode=disable", migrateURL("postgres://u:p@db:5432/census?sslmode=disable"))
	require.Equal(t, "pgx5://db/census", migrateURL("postgresql://db/census"))
	require.Equal(t, "pgx5://db/census", migrateURL("pgx5://db/census"))

	names, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	up, err := fs.ReadFile(migrationsFS, names[0])
	require.NoError(t, err)
	for _, table := range []string{"staged_issues", "daily_snapshots", "job_runs"} {
		require.True(t, strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}
