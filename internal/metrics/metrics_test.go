package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
)

func TestCounters(t *testing.T) {
	m := New()
	m.SeatToggled(true)
	m.SeatToggled(true)
	m.SeatToggled(false)
	m.Submission("succeeded")
	m.Payment(nil)
	m.Payment(errors.New("boom"))
	m.ExpiryRefetch()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.seatToggles.WithLabelValues("changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seatToggles.WithLabelValues("ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expiryRefetches))
}

func TestStreamsGauge(t *testing.T) {
	m := New()
	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketStreams))
}

func TestHandlerExposesScrapeTimeValues(t *testing.T) {
	m := New()
	stats := querycache.Stats{Hits: 3, Misses: 1}
	m.ObserveCache(func() querycache.Stats { return stats })
	subs := 2
	m.ObserveGauge("gateway_clock_subscribers", "Clock subscribers", func() float64 { return float64(subs) })
	m.HTTPRequest("GET", "/v1/sessions/:id", 200, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "gateway_query_cache_hits_total 3")
	assert.Contains(t, out, "gateway_clock_subscribers 2")
	assert.Contains(t, out, `gateway_http_requests_total{method="GET",route="/v1/sessions/:id",status="200"} 1`)
}
