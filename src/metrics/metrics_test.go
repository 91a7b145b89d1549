package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRead("balanceOf", "ok", time.Now())
	m.CacheHit()
	m.Action("vote", "prepared")
	m.Decision("allow")
	assert.Nil(t, New(nil))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRead("balanceOf", "ok", time.Now())
	m.ObserveRead("balanceOf", "ok", time.Now())
	m.Decision("require_wallet")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.readsTotal.WithLabelValues("balanceOf", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("require_wallet")))
}
