package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProbeFields is logged once per detection probe (§4.5): every attempted
// config, success or failure, gets one structured entry so a detection run
// can be reconstructed from logs alone. Args/OverrideTensors are expected
// to already have passed through logging.RedactPathsOutsideDir at the call
// site before being stored here.
type ProbeFields struct {
	ContextSize     int      `json:"context_size"`
	GPULayers       *int     `json:"gpu_layers,omitempty"`
	NCPUMoe         int      `json:"n_cpu_moe"`
	FlashAttention  string   `json:"flash_attention"`
	Success         bool     `json:"success"`
	PromptTps       float64  `json:"prompt_tps,omitempty"`
	GenerationTps   float64  `json:"generation_tps,omitempty"`
	Args            []string `json:"args,omitempty"`
	OverrideTensors []string `json:"override_tensors,omitempty"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (p ProbeFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("context_size", p.ContextSize)
	if p.GPULayers != nil {
		enc.AddInt("gpu_layers", *p.GPULayers)
	}
	enc.AddInt("n_cpu_moe", p.NCPUMoe)
	enc.AddString("flash_attention", p.FlashAttention)
	enc.AddBool("success", p.Success)
	enc.AddFloat64("prompt_tps", p.PromptTps)
	enc.AddFloat64("generation_tps", p.GenerationTps)
	if len(p.Args) > 0 {
		_ = enc.AddReflected("args", p.Args)
	}
	if len(p.OverrideTensors) > 0 {
		_ = enc.AddReflected("override_tensors", p.OverrideTensors)
	}
	return nil
}

// Probe returns a zap.Field wrapping fields, ready for logger.Info/Debug.
func Probe(fields ProbeFields) zap.Field {
	return zap.Object("probe", fields)
}

// GPU wraps a gputelemetry.Sample (or any zapcore.ObjectMarshaler) as a
// zap.Field under the "gpu" key, logged alongside a probe result. Taking
// the interface rather than the concrete type keeps logging importable
// without pulling in NVML for callers who only want probe logging.
func GPU(sample zapcore.ObjectMarshaler) zap.Field {
	return zap.Object("gpu", sample)
}
