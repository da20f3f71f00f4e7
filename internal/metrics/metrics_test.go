package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	require.NotNil(t, m.Registry())

	m.SessionsCreatedTotal.Inc()
	m.SessionsActive.Set(2)
	m.SendsTotal.WithLabelValues("success").Inc()
	m.SendsTotal.WithLabelValues("error").Inc()
	m.TranscodesTotal.Inc()
	m.SendDuration.Observe(1.5)
	m.DownloadedBytes.Add(1024)
	m.QRGeneratedTotal.Inc()
	m.LogoutsTotal.Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.SessionsCreatedTotal.Inc()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "wagate_sessions_created_total")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration
	a := NewMetrics()
	b := NewMetrics()
	assert.NotSame(t, a.Registry(), b.Registry())
}
