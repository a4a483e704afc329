/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var ErrNoRuns = errors.New("no runs recorded")

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// snapshotColumns maps categories to daily_snapshots columns.
var snapshotColumns = map[domain.Category]string{
	domain.CategoryOpen:               "wp_open",
	domain.CategoryDefect:             "wp_defects",
	domain.CategoryPreCCBNotAnalysed:  "wp_preccb_not_analysed",
	domain.CategoryPostCCBNotAnalysed: "wp_postccb_not_analysed",
	domain.CategoryProblemReport:      "wp_pr",
	domain.CategoryChangeRequest:      "wp_cr",
}

var stagedColumns = []string{"issue_id", "created_on", "resolved_on", "category"}

// Snapshot SQL lists columns in domain.Categories order, the order snapshotArgs uses.
var (
	upsertSnapshotQuery  = buildUpsertSnapshotQuery()
	selectSnapshotsQuery = "SELECT day, " + strings.Join(orderedSnapshotColumns(), ", ") +
		" FROM daily_snapshots WHERE day BETWEEN $1 AND $2 ORDER BY day"
)

func orderedSnapshotColumns() []string {
	cols := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		cols = append(cols, snapshotColumns[c])
	}
	return cols
}

func buildUpsertSnapshotQuery() string {
	cols := orderedSnapshotColumns()
	params := make([]string, 0, len(cols)+1)
	sets := make([]string, 0, len(cols)+1)
	for i := 0; i <= len(cols); i++ {
		params = append(params, fmt.Sprintf("$%d", i+1))
	}
	for _, c := range cols {
		sets = append(sets, c+"=EXCLUDED."+c)
	}
	sets = append(sets, "updated_at=now()")
	return "INSERT INTO daily_snapshots(day, " + strings.Join(cols, ", ") + ", updated_at) VALUES(" +
		strings.Join(params, ",") + ", now()) ON CONFLICT(day) DO UPDATE SET " + strings.Join(sets, ", ")
}

const (
	clearStagedQuery = `TRUNCATE staged_issues`

	selectStagedQuery = `SELECT issue_id, created_on, resolved_on, category FROM staged_issues`

	dailyCountsQuery = `
        SELECT d::date AS day, s.category, COUNT(s.issue_id)
        FROM generate_series($1::date, $2::date, interval '1 day') AS d
        LEFT JOIN staged_issues s
            ON s.created_on <= d::date
           AND (s.resolved_on IS NULL OR s.resolved_on > d::date)
        GROUP BY 1, 2
        ORDER BY 1`

	insertRunQuery = `INSERT INTO job_runs(id, started_at, range_start, range_end, success) VALUES($1, now(), $2, $3, false)`

	finishRunQuery = `UPDATE job_runs SET finished_at=now(), issues_staged=$2, days_written=$3, success=$4, error=$5 WHERE id=$1`

	lastRunQuery = `
        SELECT id::text, started_at, finished_at, range_start, range_end,
            issues_staged, days_written, success, error
        FROM job_runs ORDER BY started_at DESC LIMIT 1`
)

// ---- Staging ----

func (r *Repository) ClearIssues(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, clearStagedQuery); err != nil {
		return fmt.Errorf("clear staged issues: %w", err)
	}
	return nil
}

func (r *Repository) AddIssues(ctx context.Context, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	n, err := r.db.Pool.CopyFrom(ctx, pgx.Identifier{"staged_issues"}, stagedColumns,
		pgx.CopyFromSlice(len(issues), func(i int) ([]any, error) {
			is := issues[i]
			return []any{is.ID, is.CreatedOn, is.ResolvedOn, string(is.Category)}, nil
		}))
	if err != nil {
		return fmt.Errorf("stage issues: %w", err)
	}
	r.log.Debug().Int64("rows", n).Msg("issues staged")
	return nil
}

func (r *Repository) AllIssues(ctx context.Context) ([]domain.Issue, error) {
	rows, err := r.db.Pool.Query(ctx, selectStagedQuery)
	if err != nil {
		return nil, fmt.Errorf("load staged issues: %w", err)
	}
	defer rows.Close()
	var out []domain.Issue
	for rows.Next() {
		var is domain.Issue
		var cat string
		if err := rows.Scan(&is.ID, &is.CreatedOn, &is.ResolvedOn, &cat); err != nil {
			return nil, err
		}
		is.Category = domain.Category(cat)
		out = append(out, is)
	}
	return out, rows.Err()
}

type dailyRow struct {
	Day      time.Time
	Category *string
	Count    int64
}

// DailyCounts lets Postgres count every day of rng in one grouped query.
func (r *Repository) DailyCounts(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, dailyCountsQuery, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()
	var grouped []dailyRow
	for rows.Next() {
		var dr dailyRow
		if err := rows.Scan(&dr.Day, &dr.Category, &dr.Count); err != nil {
			return nil, err
		}
		grouped = append(grouped, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assembleDaily(rng, grouped), nil
}

// assembleDaily turns (day, category, count) rows into one snapshot per day of rng.
// Days or categories without rows are zero.
func assembleDaily(rng domain.Range, rows []dailyRow) []domain.Snapshot {
	byDay := make(map[time.Time]domain.Counts, rng.Days())
	for _, dr := range rows {
		if dr.Category == nil {
			continue
		}
		cat := domain.Category(*dr.Category)
		if !cat.Valid() {
			continue
		}
		day := domain.Day(dr.Day)
		c, ok := byDay[day]
		if !ok {
			c = domain.NewCounts()
			byDay[day] = c
		}
		c[cat] += int(dr.Count)
	}
	out := make([]domain.Snapshot, 0, rng.Days())
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		c, ok := byDay[day]
		if !ok {
			c = domain.NewCounts()
		}
		out = append(out, domain.Snapshot{Date: day, Counts: c})
	}
	return out
}

// ---- Snapshots ----

// UpsertSnapshots writes every snapshot in one transaction; a failure leaves the table untouched.
func (r *Repository) UpsertSnapshots(ctx context.Context, snaps []domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, s := range snaps {
		batch.Queue(upsertSnapshotQuery, snapshotArgs(s)...)
	}
	br := tx.SendBatch(ctx, batch)
	for range snaps {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert snapshot: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

func snapshotArgs(s domain.Snapshot) []any {
	args := []any{domain.Day(s.Date)}
	for _, c := range domain.Categories {
		args = append(args, s.Counts[c])
	}
	return args
}

func (r *Repository) ListSnapshots(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error) {
	rows, err := r.db.Pool.Query(ctx, selectSnapshotsQuery, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []domain.Snapshot
	for rows.Next() {
		var day time.Time
		vals := make([]int, len(domain.Categories))
		dest := []any{&day}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		counts := domain.NewCounts()
		for i, c := range domain.Categories {
			counts[c] = vals[i]
		}
		out = append(out, domain.Snapshot{Date: domain.Day(day), Counts: counts})
	}
	return out, rows.Err()
}

// ---- Job runs ----

func (r *Repository) StartRun(ctx context.Context, rng domain.Range) (string, error) {
	id := uuid.NewString()
	if _, err := r.db.Pool.Exec(ctx, insertRunQuery, id, rng.Start, rng.End); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (r *Repository) FinishRun(ctx context.Context, id string, issuesStaged, daysWritten int, runErr error) error {
	errStr := ""
	if runErr != nil {
		errStr = runErr.Error()
	}
	_, err := r.db.Pool.Exec(ctx, finishRunQuery, id, issuesStaged, daysWritten, runErr == nil, errStr)
	return err
}

func (r *Repository) LastRun(ctx context.Context) (*domain.Run, error) {
	lr := &domain.Run{}
	err := r.db.Pool.QueryRow(ctx, lastRunQuery).Scan(&lr.ID, &lr.StartedAt, &lr.FinishedAt,
		&lr.RangeStart, &lr.RangeEnd, &lr.IssuesStaged, &lr.DaysWritten, &lr.Success, &lr.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return lr, nil
}

// ---- Locking ----

// WithRunLock runs fn while holding a session advisory lock on one pooled connection.
// It returns false without calling fn when another session holds the lock.
func (r *Repository) WithRunLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key); err != nil {
			r.log.Error().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
	}()
	return true, fn(ctx)
}
