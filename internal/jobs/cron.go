/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/services"
	"github.com/coder/quartz"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const runTimeout = 30 * time.Minute

type backfiller interface {
	BackfillExclusive(ctx context.Context, rng domain.Range) (services.RunResult, error)
}

// Cron re-runs the backfill for the trailing BackfillDays window on CRON_SPEC.
type Cron struct {
	cfg   config.Config
	log   zerolog.Logger
	svc   backfiller
	clock quartz.Clock
	loc   *time.Location
	c     *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc backfiller, clock quartz.Clock) (*Cron, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log.With().Str("component", "cron").Logger(), svc: svc, clock: clock, loc: loc, c: c}
	if _, err := c.AddFunc(cfg.CronSpec, cr.daily); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", cfg.CronSpec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running job to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

// Window is the range the next scheduled run covers, ending today.
func (cr *Cron) Window() domain.Range {
	days := cr.cfg.BackfillDays
	if days < 1 {
		days = 1
	}
	today := domain.Day(cr.clock.Now().In(cr.loc))
	return domain.Range{Start: today.AddDate(0, 0, -(days - 1)), End: today}
}

// RunOnce backfills the current window. A run already holding the lock elsewhere is not an error.
func (cr *Cron) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	rng := cr.Window()
	cr.log.Info().Str("range", rng.String()).Msg("cron: daily backfill")
	_, err := cr.svc.BackfillExclusive(ctx, rng)
	if errors.Is(err, services.ErrRunInProgress) {
		cr.log.Info().Msg("cron: already running elsewhere")
		return nil
	}
	return err
}

func (cr *Cron) daily() {
	if err := cr.RunOnce(context.Background()); err != nil {
		cr.log.Error().Err(err).Msg("cron: backfill failed")
	}
}
