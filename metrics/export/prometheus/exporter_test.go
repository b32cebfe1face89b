package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/MrEthical07/jwtAuth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot jwtAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() jwtAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: jwtAuth.MetricsSnapshot{
			Counters:   map[jwtAuth.MetricID]uint64{},
			Histograms: map[jwtAuth.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("expected no series for disabled metrics, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: jwtAuth.MetricsSnapshot{
			Counters: map[jwtAuth.MetricID]uint64{
				jwtAuth.MetricSessionIssued: 7,
			},
			Histograms: map[jwtAuth.MetricID][]uint64{
				jwtAuth.MetricResolveLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if n := testutil.CollectAndCount(c); n != want {
		t.Fatalf("expected %d series, got %d", want, n)
	}

	out := scrape(t, c)
	for _, line := range []string{
		`jwtauth_session_issued_total{flow="session"} 7`,
		`jwtauth_confirmation_sent_total{flow="confirmation"} 0`,
		`jwtauth_notification_failure_total{flow="delivery"} 0`,
		`jwtauth_resolve_latency_seconds_bucket{flow="session",le="0.005"} 1`,
		`jwtauth_resolve_latency_seconds_bucket{flow="session",le="+Inf"} 36`,
		`jwtauth_resolve_latency_seconds_count{flow="session"} 36`,
		"jwtauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("expected %q in output, got:\n%s", line, out)
		}
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: jwtAuth.MetricsSnapshot{
			Counters: map[jwtAuth.MetricID]uint64{
				jwtAuth.MetricLoginSuccess:         1000,
				jwtAuth.MetricLoginFailure:         40,
				jwtAuth.MetricSessionIssued:        800,
				jwtAuth.MetricConfirmationSent:     10,
				jwtAuth.MetricRecoveryResetSuccess: 3,
			},
			Histograms: map[jwtAuth.MetricID][]uint64{
				jwtAuth.MetricResolveLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(c)
	}
}
