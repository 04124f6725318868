package obs

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBatch(t *testing.T) {
	m := NewMetrics()
	m.ObserveBatch("ingested", 3, 10*time.Millisecond)
	m.ObserveBatch("ingested", 2, 5*time.Millisecond)
	m.ObserveBatch("skipped", 0, 0)
	m.ObserveBatch("failed", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.Batches.WithLabelValues("ingested")); got != 2 {
		t.Fatalf("ingested: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.Batches.WithLabelValues("skipped")); got != 1 {
		t.Fatalf("skipped: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.RowsWritten); got != 5 {
		t.Fatalf("rows: expected 5, got %v", got)
	}
	if n := testutil.CollectAndCount(m.IngestDuration); n != 1 {
		t.Fatalf("expected one histogram, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveBatch("ingested", 1, time.Second)
	m.MarkRunCompleted()
}

func TestPushToGateway(t *testing.T) {
	var gotPath string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := NewMetrics()
	m.ObserveBatch("ingested", 1, time.Millisecond)
	m.MarkRunCompleted()
	if err := m.Push(gw.URL, "batch_loader"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if gotPath != "/metrics/job/batch_loader" {
		t.Fatalf("unexpected push path %q", gotPath)
	}
}

func TestHTTPMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Requests.WithLabelValues("batch_data", "404").Inc()
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("batch_data", "404")); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWith(&buf, ParseLevel("warn"))
	Logger.Info("hidden")
	Logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("nope") != slog.LevelInfo {
		t.Fatalf("ParseLevel mapping")
	}
}
