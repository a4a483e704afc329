/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/adapters/jira"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/adapters/telegram"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/classifier"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/logger"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/repo"
	"github.com/rs/zerolog"
)

// app holds the configuration and logger shared by every command.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func newApp(logOut io.Writer, withQueries bool) (*app, error) {
	cfg := config.Load()
	if withQueries {
		if err := cfg.LoadQueries(); err != nil {
			return nil, err
		}
	}
	return &app{cfg: cfg, log: logger.NewWithWriter(cfg, logOut)}, nil
}

func (a *app) classifier() *classifier.Classifier {
	return classifier.New(jira.NewClient(a.cfg, a.log), a.cfg.JiraQueries, a.cfg.WorkersJira)
}

func (a *app) telegram() *telegram.Client {
	tg := telegram.NewClient(a.cfg, a.log)
	if !tg.Enabled() {
		a.log.Debug().Msg("telegram notifications disabled")
	}
	return tg
}

// openRepo migrates the schema and connects. The caller closes the DB.
func (a *app) openRepo(ctx context.Context) (*repo.DB, *repo.Repository, error) {
	if err := repo.Migrate(a.cfg.DBDSN); err != nil {
		return nil, nil, err
	}
	db, err := repo.Open(ctx, a.cfg.DBDSN, a.log)
	if err != nil {
		return nil, nil, err
	}
	return db, repo.NewRepository(db, a.log), nil
}

func (a *app) checkMode(mode string) error {
	if mode != config.CensusModeMemory && mode != config.CensusModeServer {
		return fmt.Errorf("unknown census mode %q (want %s or %s)", mode, config.CensusModeMemory, config.CensusModeServer)
	}
	return nil
}
