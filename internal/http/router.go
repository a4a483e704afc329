/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the services behind the routes. Nil Runs or Current disable their routes.
type Deps struct {
	History   backfiller
	Snapshots snapshotLister
	Runs      runReader
	Current   totals
	Gatherer  prometheus.Gatherer
}

func NewRouter(cfg config.Config, log zerolog.Logger, deps Deps) (*gin.Engine, *Handlers) {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, deps)

	r.GET("/healthz", h.Healthz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/snapshots", h.Snapshots)
	if deps.Current != nil {
		r.GET("/current", h.Current)
	}
	if deps.Runs != nil {
		r.GET("/admin/last-run", h.LastRun)
	}
	r.POST("/admin/run", h.RunNow)

	return r, h
}
