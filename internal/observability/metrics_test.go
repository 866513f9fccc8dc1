package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveTable("fetch", "ok", time.Millisecond)
		c.SetRows(3)
		c.AddExpired(2)
		c.ObserveHTTP(http.MethodGet, http.StatusOK)
	})
}

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("test")
	c.ObserveTable("replace", "throttled", 0)
	c.ObserveTable("replace", "ok", time.Millisecond)
	c.SetRows(4)
	c.AddExpired(2)
	c.AddExpired(0)
	c.ObserveHTTP(http.MethodPost, http.StatusTooManyRequests)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.TableOps.WithLabelValues("replace", "throttled")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.TableRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EventsExpired))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "429")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_events_expired_total 2")
}
