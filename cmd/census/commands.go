/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"fmt"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/export"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/repo"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/repo/memory"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/services"
	flag "github.com/spf13/pflag"
)

func commands() []*Command {
	return []*Command{serveCmd(), backfillCmd(), currentCmd(), exportCmd(), migrateCmd()}
}

func parseRange(startFlag, endFlag, start, end string) (domain.Range, error) {
	if start == "" || end == "" {
		return domain.Range{}, fmt.Errorf("--%s and --%s are required", startFlag, endFlag)
	}
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.Range{}, err
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return domain.Range{}, err
	}
	return domain.NewRange(s, e), nil
}

func backfillCmd() *Command {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD")
	dryRun := fs.Bool("dry-run", false, "stage and count in memory, print instead of writing to the database")
	mode := fs.String("mode", "", "census mode: memory or server (default CENSUS_MODE)")
	return &Command{
		Flags: fs,
		Usage: "backfill --start <date> --end <date> [flags]",
		Short: "Rebuild daily snapshots for a range of days",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			rng, err := parseRange("start", "end", *start, *end)
			if err != nil {
				return err
			}
			a, err := newApp(o.Err, true)
			if err != nil {
				return err
			}
			m := a.cfg.CensusMode
			if *mode != "" {
				m = *mode
			}
			if err := a.checkMode(m); err != nil {
				return err
			}

			if *dryRun {
				st := memory.New()
				h := services.NewHistory(a.log, a.classifier(), st, st, services.WithMode(m))
				res, err := h.Backfill(ctx, rng)
				if err != nil {
					return err
				}
				export.RenderTable(o.Out, "WP census "+rng.String()+" (dry run)", res.Snapshots)
				return nil
			}

			db, rp, err := a.openRepo(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			h := services.NewHistory(a.log, a.classifier(), rp, rp,
				services.WithMode(m),
				services.WithRecorder(rp),
				services.WithLocker(rp),
				services.WithNotifier(a.telegram()),
			)
			res, err := h.BackfillExclusive(ctx, rng)
			if err != nil {
				return err
			}
			fmt.Fprintf(o.Out, "backfill %s: %d issues staged, %d days written\n", rng, res.IssuesStaged, len(res.Snapshots))
			return nil
		},
	}
}

func currentCmd() *Command {
	fs := flag.NewFlagSet("current", flag.ContinueOnError)
	save := fs.Bool("save", false, "also upsert the totals as today's snapshot")
	return &Command{
		Flags: fs,
		Usage: "current [--save]",
		Short: "Print today's per-category totals from Jira",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			a, err := newApp(o.Err, true)
			if err != nil {
				return err
			}
			if !*save {
				snap, err := services.NewCurrent(a.log, a.classifier(), nil, nil).Totals(ctx)
				if err != nil {
					return err
				}
				export.RenderTable(o.Out, "WP totals", []domain.Snapshot{snap})
				return nil
			}
			db, rp, err := a.openRepo(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			snap, err := services.NewCurrent(a.log, a.classifier(), rp, nil).Save(ctx)
			if err != nil {
				return err
			}
			export.RenderTable(o.Out, "WP totals (saved)", []domain.Snapshot{snap})
			return nil
		},
	}
}

func exportCmd() *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	out := fs.StringP("out", "o", "-", "CSV file to write, - for stdout")
	return &Command{
		Flags: fs,
		Usage: "export --from <date> --to <date> [-o file]",
		Short: "Export stored daily snapshots as CSV",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			rng, err := parseRange("from", "to", *from, *to)
			if err != nil {
				return err
			}
			if err := rng.Validate(); err != nil {
				return err
			}
			a, err := newApp(o.Err, false)
			if err != nil {
				return err
			}
			db, rp, err := a.openRepo(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			snaps, err := rp.ListSnapshots(ctx, rng)
			if err != nil {
				return err
			}
			if *out == "-" {
				return export.WriteCSV(o.Out, snaps)
			}
			if err := export.WriteFile(*out, snaps); err != nil {
				return err
			}
			a.log.Info().Str("file", *out).Int("days", len(snaps)).Msg("snapshots exported")
			return nil
		},
	}
}

func migrateCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("migrate", flag.ContinueOnError),
		Usage: "migrate",
		Short: "Apply pending database migrations",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			a, err := newApp(o.Err, false)
			if err != nil {
				return err
			}
			if err := repo.Migrate(a.cfg.DBDSN); err != nil {
				return err
			}
			a.log.Info().Msg("migrations applied")
			return nil
		},
	}
}
