package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the sample of name whose labels include the given pair.
// An empty label matches an unlabelled sample.
func value(t *testing.T, m *Metrics, name, label, labelValue string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			match := label == ""
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == labelValue {
					match = true
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	pending := 3
	m := New(Gauges{DedupPending: func() int { return pending }})

	m.Event("eligible")
	m.Event("eligible")
	m.Event("blocked_origin")
	m.Transaction("recorded")
	m.Classified()
	m.Interrupted()

	assert.Equal(t, 2.0, value(t, m, "replyguard_events_total", "verdict", "eligible"))
	assert.Equal(t, 1.0, value(t, m, "replyguard_events_total", "verdict", "blocked_origin"))
	assert.Equal(t, 1.0, value(t, m, "replyguard_transactions_total", "result", "recorded"))
	assert.Equal(t, 1.0, value(t, m, "replyguard_classifications_total", "", ""))
	assert.Equal(t, 1.0, value(t, m, "replyguard_interrupts_total", "", ""))
	assert.Equal(t, 3.0, value(t, m, "replyguard_dedup_pending", "", ""))
	assert.Equal(t, 0.0, value(t, m, "replyguard_dedup_size", "", ""))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Event("eligible")
	m.Transaction("recorded")
	m.Classified()
	m.Interrupted()
	m.FeedError()
	m.JournalError()
}

func TestServer_Routes(t *testing.T) {
	m := New(Gauges{})
	m.Event("self")
	srv := httptest.NewServer(NewServer("", m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `replyguard_events_total{verdict="self"} 1`)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewServer(addr, New(Gauges{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = NewServer(l.Addr().String(), New(Gauges{})).Run(context.Background())
	assert.Error(t, err)
}
