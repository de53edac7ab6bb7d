package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecording(t *testing.T) {
	before := testutil.ToFloat64(KeysMoved)

	CommandsTotal.WithLabelValues("cluster", "ok").Inc()
	CommandDuration.WithLabelValues("cluster").Observe(float64(10*time.Millisecond) / float64(time.Second))
	SlotsProcessed.WithLabelValues("completed").Inc()
	KeysMoved.Inc()

	if got := testutil.ToFloat64(KeysMoved); got != before+1 {
		t.Errorf("keys_moved_total = %v, want %v", got, before+1)
	}
}
