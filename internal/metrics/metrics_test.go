package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.AddEvents("syslog", "matched", 3)
	m.AddEvents("syslog", "unmatched", 1)
	m.AddVerdict("exact")
	m.AddMissingStateDocuments()
	m.SetDedupClaimed(3)
	m.ObserveRun("success", 1.5)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("syslog", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missingDocs))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.dedupClaimed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
}
