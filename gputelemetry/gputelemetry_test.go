package gputelemetry

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSampleMarshalLogObjectFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	s := Sample{DeviceIndex: 0, VRAMUsedMB: 4096, VRAMTotalMB: 8192, UtilizationPct: 55.5, TemperatureC: 71}
	logger.Info("gpu sample", zap.Object("gpu", s))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	gpu, ok := fields["gpu"].(map[string]interface{})
	if !ok {
		t.Fatalf("gpu field not a map: %#v", fields["gpu"])
	}
	if gpu["vram_used_mb"] != int64(4096) {
		t.Errorf("vram_used_mb = %v, want 4096", gpu["vram_used_mb"])
	}
	if gpu["gpu_utilization"] != 55.5 {
		t.Errorf("gpu_utilization = %v, want 55.5", gpu["gpu_utilization"])
	}
}

// TestCloseWithoutOpenIsSafe documents that a zero-value Monitor (never
// Open'd) never touches NVML on Close.
func TestCloseWithoutOpenIsSafe(t *testing.T) {
	m := &Monitor{}
	m.Close() // must not panic
	if m.Available() {
		t.Error("zero-value Monitor reports Available()==true")
	}
}

func TestSampleDeviceUnavailableReturnsError(t *testing.T) {
	m := &Monitor{}
	if _, err := m.SampleDevice(0); err == nil {
		t.Error("SampleDevice on unavailable monitor: want error, got nil")
	}
}
