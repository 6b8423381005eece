package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordLead(t *testing.T) {
	before := testutil.ToFloat64(leadsIngested.WithLabelValues("created"))
	RecordLead("created")
	assert.Equal(t, before+1, testutil.ToFloat64(leadsIngested.WithLabelValues("created")))
}

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/leads", "200"))
	ObserveHTTP(http.MethodPost, "/api/leads", http.StatusOK, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/leads", "200")))
}

func TestTrackInFlight(t *testing.T) {
	before := testutil.ToFloat64(activeRequests)
	done := TrackInFlight()
	assert.Equal(t, before+1, testutil.ToFloat64(activeRequests))
	done()
	assert.Equal(t, before, testutil.ToFloat64(activeRequests))
}

func TestSetSyncBacklog(t *testing.T) {
	SetSyncBacklog("dead", 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(syncBacklog.WithLabelValues("dead")))
}
