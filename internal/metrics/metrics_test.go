package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.JobSubmitted()
		c.QuotaRejected()
		c.DispatchPublished()
		c.DispatchError("publish")
		c.JobRedispatched()
		c.JobFinished("SUCCEEDED", 3)
		c.JobPublished()
		c.SetStuckRunning(2)
		c.StreamOpened()()
	})
	assert.Nil(t, c.Registry())
}

func TestCounters(t *testing.T) {
	c := NewCollector()
	c.JobSubmitted()
	c.JobSubmitted()
	c.DispatchError("trigger")
	c.JobFinished("FAILED", 0)
	c.SetStuckRunning(3)
	done := c.StreamOpened()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchErrors.WithLabelValues("trigger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsFinished.WithLabelValues("FAILED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.jobsStuck))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.streamsOpen))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.streamsOpen))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.JobPublished()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "genvid_jobs_published_total 1"))
}
