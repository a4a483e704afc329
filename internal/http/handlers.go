/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/repo"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const runTimeout = 30 * time.Minute

type backfiller interface {
	BackfillExclusive(ctx context.Context, rng domain.Range) (services.RunResult, error)
}

type snapshotLister interface {
	ListSnapshots(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error)
}

type runReader interface {
	LastRun(ctx context.Context) (*domain.Run, error)
}

type totals interface {
	Totals(ctx context.Context) (domain.Snapshot, error)
}

type Handlers struct {
	cfg  config.Config
	log  zerolog.Logger
	deps Deps
	wg   sync.WaitGroup
}

func NewHandlers(cfg config.Config, log zerolog.Logger, deps Deps) *Handlers {
	return &Handlers{cfg: cfg, log: log, deps: deps}
}

// Wait blocks until queued runs have finished.
func (h *Handlers) Wait() { h.wg.Wait() }

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.deps.Runs.LastRun(c.Request.Context())
	if errors.Is(err, repo.ErrNoRuns) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lr)
}

// RunNow queues a backfill of ?start=&end= and returns before it finishes.
func (h *Handlers) RunNow(c *gin.Context) {
	rng, ok := rangeParams(c, "start", "end")
	if !ok {
		return
	}
	h.wg.Add(1)
	// detached from the request so the run outlives it
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := h.deps.History.BackfillExclusive(ctx, rng); err != nil {
			h.log.Error().Err(err).Str("range", rng.String()).Msg("admin run failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "range": rng.String()})
}

func (h *Handlers) Snapshots(c *gin.Context) {
	rng, ok := rangeParams(c, "from", "to")
	if !ok {
		return
	}
	snaps, err := h.deps.Snapshots.ListSnapshots(c.Request.Context(), rng)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snaps == nil {
		snaps = []domain.Snapshot{}
	}
	c.JSON(http.StatusOK, snaps)
}

func (h *Handlers) Current(c *gin.Context) {
	snap, err := h.deps.Current.Totals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// rangeParams reads two YYYY-MM-DD query params and writes a 400 when they do not form a valid range.
func rangeParams(c *gin.Context, startKey, endKey string) (domain.Range, bool) {
	start, err := domain.ParseDate(c.Query(startKey))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": startKey + ": " + err.Error()})
		return domain.Range{}, false
	}
	end, err := domain.ParseDate(c.Query(endKey))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": endKey + ": " + err.Error()})
		return domain.Range{}, false
	}
	rng := domain.NewRange(start, end)
	if err := rng.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.Range{}, false
	}
	return rng, true
}
