/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

type TotalsSource interface {
	CurrentTotals(ctx context.Context, day time.Time) (domain.Snapshot, error)
}

// Current reports today's per-category totals straight from the tracker.
type Current struct {
	log       zerolog.Logger
	src       TotalsSource
	snapshots SnapshotStore
	clock     quartz.Clock
}

func NewCurrent(log zerolog.Logger, src TotalsSource, snapshots SnapshotStore, clock quartz.Clock) *Current {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Current{log: log.With().Str("component", "current").Logger(), src: src, snapshots: snapshots, clock: clock}
}

func (c *Current) Totals(ctx context.Context) (domain.Snapshot, error) {
	snap, err := c.src.CurrentTotals(ctx, c.clock.Now())
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("current totals: %w", err)
	}
	return snap, nil
}

// Save fetches today's totals and upserts them as today's snapshot row.
func (c *Current) Save(ctx context.Context) (domain.Snapshot, error) {
	snap, err := c.Totals(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if c.snapshots == nil {
		return snap, nil
	}
	if err := c.snapshots.UpsertSnapshots(ctx, []domain.Snapshot{snap}); err != nil {
		return domain.Snapshot{}, fmt.Errorf("save current totals: %w", err)
	}
	c.log.Info().Str("day", domain.FormatDate(snap.Date)).Msg("current totals saved")
	return snap, nil
}
