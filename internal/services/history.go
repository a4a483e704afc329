/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/census"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/metrics"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// RunLockKey is the Postgres advisory lock key that serializes backfill runs.
const RunLockKey int64 = 424242

var ErrRunInProgress = errors.New("another backfill run is in progress")

type State string

const (
	StateValidating State = "validating"
	StateStaging    State = "staging"
	StateCounting   State = "counting"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
	// StateCleanup tags failures of the final staging clear.
	StateCleanup State = "cleanup"
)

// RunError is a failed run and the state it failed in.
type RunError struct {
	State State
	Err   error
}

func (e *RunError) Error() string { return fmt.Sprintf("backfill %s: %v", e.State, e.Err) }
func (e *RunError) Unwrap() error { return e.Err }

type IssueSource interface {
	FetchAll(ctx context.Context) ([]domain.Issue, error)
}

// Staging is the per-run copy of the fetched issues.
type Staging interface {
	ClearIssues(ctx context.Context) error
	AddIssues(ctx context.Context, issues []domain.Issue) error
	AllIssues(ctx context.Context) ([]domain.Issue, error)
	DailyCounts(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error)
}

type SnapshotStore interface {
	UpsertSnapshots(ctx context.Context, snaps []domain.Snapshot) error
}

type RunRecorder interface {
	StartRun(ctx context.Context, rng domain.Range) (string, error)
	FinishRun(ctx context.Context, id string, issuesStaged, daysWritten int, runErr error) error
}

type Locker interface {
	WithRunLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type RunResult struct {
	Range        domain.Range
	State        State
	IssuesStaged int
	Snapshots    []domain.Snapshot
	Duration     time.Duration
}

type History struct {
	log       zerolog.Logger
	source    IssueSource
	staging   Staging
	snapshots SnapshotStore
	mode      string
	recorder  RunRecorder
	locker    Locker
	notifier  Notifier
	metrics   *metrics.Metrics
	clock     quartz.Clock
}

type Option func(*History)

// WithMode selects where the census runs: config.CensusModeMemory or config.CensusModeServer.
func WithMode(mode string) Option { return func(h *History) { h.mode = mode } }
func WithRecorder(r RunRecorder) Option { return func(h *History) { h.recorder = r } }
func WithLocker(l Locker) Option { return func(h *History) { h.locker = l } }
func WithNotifier(n Notifier) Option { return func(h *History) { h.notifier = n } }
func WithMetrics(m *metrics.Metrics) Option { return func(h *History) { h.metrics = m } }
func WithClock(c quartz.Clock) Option { return func(h *History) { h.clock = c } }

func NewHistory(log zerolog.Logger, source IssueSource, staging Staging, snapshots SnapshotStore, opts ...Option) *History {
	h := &History{
		log:       log.With().Str("component", "history").Logger(),
		source:    source,
		staging:   staging,
		snapshots: snapshots,
		mode:      config.CensusModeMemory,
		clock:     quartz.NewReal(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// BackfillExclusive runs Backfill under the run lock when a Locker is configured.
func (h *History) BackfillExclusive(ctx context.Context, rng domain.Range) (RunResult, error) {
	if h.locker == nil {
		return h.Backfill(ctx, rng)
	}
	var res RunResult
	ok, err := h.locker.WithRunLock(ctx, RunLockKey, func(ctx context.Context) error {
		var runErr error
		res, runErr = h.Backfill(ctx, rng)
		return runErr
	})
	if err != nil {
		return res, err
	}
	if !ok {
		return res, ErrRunInProgress
	}
	return res, nil
}

// Backfill rebuilds and upserts one snapshot per day of rng from freshly fetched issues.
// A nil error means every day of the range was written. Staging is cleared on every exit
// path, including an invalid range.
func (h *History) Backfill(ctx context.Context, rng domain.Range) (res RunResult, err error) {
	res = RunResult{Range: rng, State: StateValidating}
	started := h.clock.Now()
	log := h.log.With().Str("range", rng.String()).Logger()
	runID := ""

	defer func() {
		// cleanup must run even when ctx is already cancelled
		cleanupCtx := context.WithoutCancel(ctx)
		if cerr := h.staging.ClearIssues(cleanupCtx); cerr != nil {
			err = errors.Join(err, &RunError{State: StateCleanup, Err: cerr})
		}
		res.Duration = h.clock.Now().Sub(started)
		failedIn := res.State
		if err != nil {
			res.State = StateFailed
			res.Snapshots = nil
			log.Error().Err(err).Str("state", string(failedIn)).Dur("took", res.Duration).Msg("backfill failed")
		} else {
			res.State = StateDone
			log.Info().Int("issues", res.IssuesStaged).Int("days", len(res.Snapshots)).Dur("took", res.Duration).Msg("backfill done")
		}
		h.finish(cleanupCtx, runID, failedIn, res, err)
	}()

	if verr := rng.Validate(); verr != nil {
		return res, &RunError{State: StateValidating, Err: verr}
	}
	if h.recorder != nil {
		id, rerr := h.recorder.StartRun(ctx, rng)
		if rerr != nil {
			log.Warn().Err(rerr).Msg("could not record run start")
		}
		runID = id
	}

	res.State = StateStaging
	log.Info().Str("state", string(res.State)).Msg("backfill")
	if serr := h.stage(ctx, &res); serr != nil {
		return res, &RunError{State: StateStaging, Err: serr}
	}

	res.State = StateCounting
	log.Info().Str("state", string(res.State)).Str("mode", h.mode).Int("issues", res.IssuesStaged).Msg("backfill")
	snaps, cerr := h.count(ctx, rng)
	if cerr != nil {
		return res, &RunError{State: StateCounting, Err: cerr}
	}

	res.State = StatePersisting
	log.Info().Str("state", string(res.State)).Int("days", len(snaps)).Msg("backfill")
	if perr := h.snapshots.UpsertSnapshots(ctx, snaps); perr != nil {
		return res, &RunError{State: StatePersisting, Err: perr}
	}
	res.Snapshots = snaps
	return res, nil
}

func (h *History) stage(ctx context.Context, res *RunResult) error {
	if err := h.staging.ClearIssues(ctx); err != nil {
		return err
	}
	issues, err := h.source.FetchAll(ctx)
	if err != nil {
		return err
	}
	if err := h.staging.AddIssues(ctx, issues); err != nil {
		return err
	}
	res.IssuesStaged = len(issues)
	h.metrics.SetStaged(len(issues))
	return nil
}

func (h *History) count(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error) {
	if h.mode == config.CensusModeServer {
		return h.staging.DailyCounts(ctx, rng)
	}
	issues, err := h.staging.AllIssues(ctx)
	if err != nil {
		return nil, err
	}
	return census.Sweep(issues, rng), nil
}

func (h *History) finish(ctx context.Context, runID string, failedIn State, res RunResult, err error) {
	result := "success"
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		result = "invalid_range"
	case err != nil:
		result = "failure"
	}
	h.metrics.ObserveRun(result, res.Duration)
	if err == nil {
		h.metrics.SnapshotsWritten(res.Snapshots)
	}

	if h.recorder != nil && runID != "" {
		if ferr := h.recorder.FinishRun(ctx, runID, res.IssuesStaged, len(res.Snapshots), err); ferr != nil {
			h.log.Warn().Err(ferr).Str("run_id", runID).Msg("could not record run finish")
		}
	}
	if h.notifier != nil {
		if nerr := h.notifier.Notify(ctx, runMessage(failedIn, res, err)); nerr != nil {
			h.log.Warn().Err(nerr).Msg("run notification failed")
		}
	}
}

func runMessage(failedIn State, res RunResult, err error) string {
	if err != nil {
		return fmt.Sprintf("WP census backfill %s FAILED in %s after %s: %v", res.Range, failedIn, res.Duration.Round(time.Second), err)
	}
	return fmt.Sprintf("WP census backfill %s done: %d issues staged, %d days written in %s",
		res.Range, res.IssuesStaged, len(res.Snapshots), res.Duration.Round(time.Second))
}
