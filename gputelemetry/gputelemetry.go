// Package gputelemetry samples supplementary VRAM/utilization/temperature
// figures via NVML while the detection engine benchmarks a config.
//
// This is informational only (§AMBIENT STACK A4 in SPEC_FULL.md): it never
// gates a detection decision. hasGpu, the thing that actually drives the
// detection engine's search branch, comes from the installation's CLI
// version output containing "CUDA" (see installprobe.Handle.HasCUDA);
// NVML telemetry is logged alongside that decision, never in place of it.
package gputelemetry

import (
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap/zapcore"
)

// Sample is a point-in-time GPU reading. Implements zapcore.ObjectMarshaler
// so it can be attached to a structured log entry alongside a benchmark.
type Sample struct {
	DeviceIndex    int     `json:"device_index"`
	VRAMUsedMB     int64   `json:"vram_used_mb"`
	VRAMTotalMB    int64   `json:"vram_total_mb"`
	UtilizationPct float64 `json:"gpu_utilization"`
	TemperatureC   float64 `json:"temperature"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Sample) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("device_index", s.DeviceIndex)
	enc.AddInt64("vram_used_mb", s.VRAMUsedMB)
	enc.AddInt64("vram_total_mb", s.VRAMTotalMB)
	enc.AddFloat64("gpu_utilization", s.UtilizationPct)
	enc.AddFloat64("temperature", s.TemperatureC)
	return nil
}

// Monitor wraps an NVML session. Init is cheap to call repeatedly-by-value
// at the call sites that need it (detection logs a sample per probe), but
// the session itself is opened once and must be closed by the caller.
type Monitor struct {
	mu        sync.Mutex
	available bool
}

// Open initializes the NVML library. If NVML is unavailable (no driver, no
// GPU), Open returns a Monitor with Available()==false rather than an
// error: GPU telemetry is optional scaffolding, never a hard dependency.
func Open() *Monitor {
	m := &Monitor{}
	if ret := nvml.Init(); ret == nvml.SUCCESS {
		m.available = true
	}
	return m
}

// Available reports whether NVML initialized successfully.
func (m *Monitor) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Close shuts down the NVML session. Safe to call even if Open failed.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.available {
		nvml.Shutdown()
		m.available = false
	}
}

// SampleDevice reads a single point-in-time Sample from device index idx
// (0 for the first/only GPU, the common case for a single-host inference
// box). Returns an error if NVML isn't available or the device query fails;
// callers treat this as "no telemetry this round" and proceed regardless.
func (m *Monitor) SampleDevice(idx int) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.available {
		return Sample{}, fmt.Errorf("gputelemetry: NVML not available")
	}

	device, ret := nvml.DeviceGetHandleByIndex(idx)
	if ret != nvml.SUCCESS {
		return Sample{}, fmt.Errorf("gputelemetry: DeviceGetHandleByIndex(%d): %v", idx, ret)
	}

	sample := Sample{DeviceIndex: idx}

	if mem, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
		sample.VRAMUsedMB = int64(mem.Used / (1024 * 1024))
		sample.VRAMTotalMB = int64(mem.Total / (1024 * 1024))
	}
	if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
		sample.UtilizationPct = float64(util.Gpu)
	}
	if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		sample.TemperatureC = float64(temp)
	}

	return sample, nil
}
