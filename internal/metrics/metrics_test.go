package metrics

import (
	"testing"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("success", 2*time.Second)
	m.ObserveRun("failure", time.Second)
	m.ObserveRun("success", time.Second)
	m.SetStaged(12)
	m.SnapshotsWritten([]domain.Snapshot{
		{Counts: domain.Counts{domain.CategoryOpen: 1}},
		{Counts: domain.Counts{domain.CategoryOpen: 3, domain.CategoryDefect: 2}},
	})

	require.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))
	require.Equal(t, 12.0, testutil.ToFloat64(m.issuesStaged))
	require.Equal(t, 2.0, testutil.ToFloat64(m.snapshotsWritten))
	require.Equal(t, 3.0, testutil.ToFloat64(m.openIssues.WithLabelValues("open")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.openIssues.WithLabelValues("cr")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun("success", time.Second)
	m.SetStaged(1)
	m.SnapshotsWritten([]domain.Snapshot{{}})
}
