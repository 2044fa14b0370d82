package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProbeFieldsMarshalLogObject(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	layers := 32
	logger.Info("probe result", Probe(ProbeFields{
		ContextSize:    8192,
		GPULayers:      &layers,
		NCPUMoe:        4,
		FlashAttention: "on",
		Success:        true,
		PromptTps:      120.5,
		GenerationTps:  30.2,
	}))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()["probe"].(map[string]interface{})
	if fields["context_size"] != int64(8192) {
		t.Errorf("context_size = %v, want 8192", fields["context_size"])
	}
	if fields["gpu_layers"] != int64(32) {
		t.Errorf("gpu_layers = %v, want 32", fields["gpu_layers"])
	}
	if fields["success"] != true {
		t.Errorf("success = %v, want true", fields["success"])
	}
}

func TestProbeFieldsOmitsNilGPULayers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("probe result", Probe(ProbeFields{ContextSize: 4096, Success: false}))

	fields := logs.All()[0].ContextMap()["probe"].(map[string]interface{})
	if _, present := fields["gpu_layers"]; present {
		t.Errorf("gpu_layers present with nil pointer: %v", fields["gpu_layers"])
	}
}

func TestProbeFieldsCarriesRedactedArgs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("probe result", Probe(ProbeFields{
		ContextSize: 4096,
		Args:        []string{"--lora", "[REDACTED]"},
	}))

	fields := logs.All()[0].ContextMap()["probe"].(map[string]interface{})
	args, ok := fields["args"].([]interface{})
	if !ok || len(args) != 2 || args[1] != "[REDACTED]" {
		t.Errorf("args = %v, want [--lora [REDACTED]]", fields["args"])
	}
}

func TestProbeFieldsOmitsEmptyArgs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("probe result", Probe(ProbeFields{ContextSize: 4096}))

	fields := logs.All()[0].ContextMap()["probe"].(map[string]interface{})
	if _, present := fields["args"]; present {
		t.Errorf("args present with empty slice: %v", fields["args"])
	}
}
