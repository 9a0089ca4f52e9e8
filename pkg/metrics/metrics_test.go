package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerWithOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithPrometheusRegistry(reg),
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithHistogramBuckets([]float64{1, 5, 10}),
		WithMetricsEnabled(true),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}
	if m.namespace != "testns" || m.subsystem != "testsub" {
		t.Errorf("options not applied: %s/%s", m.namespace, m.subsystem)
	}
}

func TestRecordingHelpers(t *testing.T) {
	// Helpers must not panic regardless of state.
	RecordEntry()
	RecordSubmission(true)
	RecordSubmission(false)
	RecordHighScoreUpdate()
	RecordClaimSettled(big.NewInt(1_000_000_000_000_000))
	RecordClaimAborted()
	RecordBankTransfer("collect")
	RecordBankTransfer("credit")
	UpdatePoolAmount(big.NewInt(2_000_000_000_000_000))
	UpdatePoolAmount(nil)
	UpdatePlayersToday(10)
	UpdateTrackedDays(3)
	RecordStoreUpdateLatency(0.4)
	RecordStoreQueryLatency(0.1)
	RecordClaimSettleLatency(2.0)
	RecordErrorByComponent("repository", "not_entered")

	if Registry() == nil {
		t.Fatal("registry is nil")
	}
}
