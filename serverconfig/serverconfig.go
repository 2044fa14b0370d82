// Package serverconfig defines the immutable Server Config value type and
// the acceptance pre-order used to decide whether a running server can
// satisfy a pending request.
package serverconfig

// FlashAttention is a tri-state: on, off, or auto (unspecified).
type FlashAttention string

const (
	FlashAttentionAuto FlashAttention = ""
	FlashAttentionOn   FlashAttention = "on"
	FlashAttentionOff  FlashAttention = "off"
)

// Default values used by Effective when a field is unset.
const (
	DefaultHost        = "0.0.0.0"
	DefaultContextSize = 4096
	DefaultEmbeddings  = false
)

// Config is an immutable, structurally-comparable value describing how to
// launch llama-server. ModelPath is the only required field; every other
// field is optional and falls back to its documented default via Effective.
type Config struct {
	Host            string         `json:"host,omitempty"`
	Port            int            `json:"port,omitempty"`
	ModelPath       string         `json:"modelPath"`
	Threads         int            `json:"threads,omitempty"`
	ContextSize     int            `json:"contextSize,omitempty"`
	Embeddings      bool           `json:"embeddings,omitempty"`
	FlashAttention  FlashAttention `json:"flashAttention,omitempty"`
	Mlock           bool           `json:"mlock,omitempty"`
	GPULayers       *int           `json:"gpuLayers,omitempty"`
	NCPUMoe         *int           `json:"nCpuMoe,omitempty"`
	OverrideTensors []string       `json:"overrideTensors,omitempty"`
	Args            []string       `json:"args,omitempty"`
}

// EffectiveHost returns Host or DefaultHost if unset.
func (c Config) EffectiveHost() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

// EffectiveContextSize returns ContextSize or DefaultContextSize if unset (zero).
func (c Config) EffectiveContextSize() int {
	if c.ContextSize == 0 {
		return DefaultContextSize
	}
	return c.ContextSize
}

// EffectiveFlashAttention returns FlashAttention, normalizing the empty
// value to FlashAttentionAuto (they are equal, but this is the canonical read).
func (c Config) EffectiveFlashAttention() FlashAttention {
	return c.FlashAttention
}

// EffectiveEmbeddings returns Embeddings (default false, so the raw field suffices).
func (c Config) EffectiveEmbeddings() bool {
	return c.Embeddings
}

// EffectiveGPULayers returns the GPU layer count, or nil if unset (CPU-only semantics).
func (c Config) EffectiveGPULayers() *int {
	return c.GPULayers
}

// EffectiveNCPUMoe returns the count of MoE experts kept on CPU, default 0.
func (c Config) EffectiveNCPUMoe() int {
	if c.NCPUMoe == nil {
		return 0
	}
	return *c.NCPUMoe
}

// Equal reports structural equality across all fields.
func (c Config) Equal(other Config) bool {
	if c.EffectiveHost() != other.EffectiveHost() ||
		c.Port != other.Port ||
		c.ModelPath != other.ModelPath ||
		c.Threads != other.Threads ||
		c.EffectiveContextSize() != other.EffectiveContextSize() ||
		c.EffectiveEmbeddings() != other.EffectiveEmbeddings() ||
		c.FlashAttention != other.FlashAttention ||
		c.Mlock != other.Mlock {
		return false
	}
	if !intPtrEqual(c.GPULayers, other.GPULayers) {
		return false
	}
	if !intPtrEqual(c.NCPUMoe, other.NCPUMoe) {
		return false
	}
	return stringSliceEqual(c.OverrideTensors, other.OverrideTensors) &&
		stringSliceEqual(c.Args, other.Args)
}

func intPtrEqual(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Accept implements the §4.2 compatibility relation: does a server already
// running with config c satisfy a pending request described by other?
//
// The relation is reflexive but not symmetric — it is a pre-order suitable
// for "can this host serve this demand?", not an equivalence.
func (c Config) Accept(other Config) bool {
	if c.Equal(other) {
		return true
	}
	if c.ModelPath != other.ModelPath {
		return false
	}
	if c.EffectiveContextSize() < other.EffectiveContextSize() {
		return false
	}
	if c.EffectiveFlashAttention() != other.EffectiveFlashAttention() {
		return false
	}
	if c.EffectiveEmbeddings() != other.EffectiveEmbeddings() {
		return false
	}

	thisGPU, otherGPU := c.EffectiveGPULayers(), other.EffectiveGPULayers()
	switch {
	case thisGPU == nil && otherGPU != nil:
		return false
	case thisGPU != nil && otherGPU == nil:
		// running host has GPU layers set, pending doesn't require any: fine.
	case thisGPU != nil && otherGPU != nil:
		if *thisGPU < *otherGPU {
			return false
		}
	}

	if c.EffectiveNCPUMoe() > other.EffectiveNCPUMoe() {
		return false
	}
	if !stringSliceEqual(c.OverrideTensors, other.OverrideTensors) {
		return false
	}
	if !stringSliceEqual(c.Args, other.Args) {
		return false
	}
	return true
}
