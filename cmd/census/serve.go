/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihttp "github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/http"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/jobs"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/metrics"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"
)

var errServerStopped = errors.New("http server stopped")

func serveCmd() *Command {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	noCron := fs.Bool("no-cron", false, "do not schedule the daily backfill")
	return &Command{
		Flags: fs,
		Usage: "serve [--no-cron]",
		Short: "Run the HTTP API and the scheduled daily backfill",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			a, err := newApp(o.Err, true)
			if err != nil {
				return err
			}
			return a.serve(ctx, !*noCron)
		},
	}
}

func (a *app) serve(ctx context.Context, withCron bool) error {
	db, rp, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cls := a.classifier()
	hist := services.NewHistory(a.log, cls, rp, rp,
		services.WithMode(a.cfg.CensusMode),
		services.WithRecorder(rp),
		services.WithLocker(rp),
		services.WithNotifier(a.telegram()),
		services.WithMetrics(m),
	)
	cur := services.NewCurrent(a.log, cls, rp, nil)

	if withCron {
		cr, err := jobs.NewCron(a.cfg, a.log, hist, nil)
		if err != nil {
			return err
		}
		cr.Start()
		defer cr.Stop()
		a.log.Info().Str("spec", a.cfg.CronSpec).Int("days", a.cfg.BackfillDays).Msg("cron scheduled")
	}

	router, handlers := apihttp.NewRouter(a.cfg, a.log, apihttp.Deps{
		History:   hist,
		Snapshots: rp,
		Runs:      rp,
		Current:   cur,
		Gatherer:  reg,
	})
	srv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info().Str("addr", a.cfg.HTTPAddr).Str("mode", a.cfg.CensusMode).Msg("listening")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", errServerStopped, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	handlers.Wait()
	return nil
}
