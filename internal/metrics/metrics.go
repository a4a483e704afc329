/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wpcensus"

// Metrics collects backfill run statistics. A nil *Metrics is a no-op.
type Metrics struct {
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	issuesStaged     prometheus.Gauge
	snapshotsWritten prometheus.Counter
	openIssues       *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Backfill runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of backfill runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		issuesStaged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "issues_staged",
			Help:      "Issues staged by the last run.",
		}),
		snapshotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_written_total",
			Help:      "Daily snapshot rows upserted.",
		}),
		openIssues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_issues",
			Help:      "Open issues per category on the most recent day written.",
		}, []string{"category"}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.issuesStaged, m.snapshotsWritten, m.openIssues)
	return m
}

func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) SetStaged(n int) {
	if m == nil {
		return
	}
	m.issuesStaged.Set(float64(n))
}

// SnapshotsWritten records written rows and exports the counts of the latest day.
func (m *Metrics) SnapshotsWritten(snaps []domain.Snapshot) {
	if m == nil || len(snaps) == 0 {
		return
	}
	m.snapshotsWritten.Add(float64(len(snaps)))
	latest := snaps[len(snaps)-1]
	for _, c := range domain.Categories {
		m.openIssues.WithLabelValues(string(c)).Set(float64(latest.Counts[c]))
	}
}
