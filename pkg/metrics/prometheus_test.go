package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordCache("signals", "hit")
		r.RecordSignal("buy")
		r.RecordAlert("created")
		r.RecordUpstreamError("binance")
		r.RecordFallback("candles")
		r.RecordNotification("telegram", nil)
		r.ObserveSince("check_alerts", time.Now())
	})
}

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.RecordCache("signals", "hit")
	r.RecordCache("signals", "hit")
	r.RecordCache("signals", "miss")
	r.RecordNotification("nats", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheOutcomes.WithLabelValues("signals", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheOutcomes.WithLabelValues("signals", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifyTotal.WithLabelValues("nats", "error")))
}
