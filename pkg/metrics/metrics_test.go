package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestManagerOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithHistogramBuckets([]float64{0.1, 1, 10}),
		WithRegistry(reg),
	)
	if m.namespace != "testns" || m.subsystem != "testsub" {
		t.Fatalf("options not applied: %s/%s", m.namespace, m.subsystem)
	}
	if m.registry != reg {
		t.Fatal("registry option not applied")
	}
}

func TestGlobalHelpers(t *testing.T) {
	// These must never panic, enabled or not.
	RecordChallengeIngested()
	RecordPredictionIngested()
	RecordIngestDuplicate()
	RecordIngestError("queue", "full")
	UpdateQueueSize(3)
	UpdateQueueCapacity(100)
	RecordReconcileRun()
	ObserveReconcileDuration(0.5)
	RecordDroppedChallenges(2)
	RecordOrphanPredictions(1)
	UpdateInvalidPredictions(4)
	UpdateMinersTracked(7)
	UpdateStoreCounts(10, 50)
	RecordMediaDownload()
	RecordMediaDownloadError()
	RecordGalleryRender()
	RecordHTTPRequest("summary", "GET", 200)
	ObserveHTTPRequestDuration("summary", 0.01)
}

func TestHandlerExposition(t *testing.T) {
	RecordChallengeIngested()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "minerscope_reconcile_challenges_ingested_total") {
		t.Errorf("exposition missing ingest counter:\n%s", body)
	}
}
