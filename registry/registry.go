// Package registry maps a model identifier (content hash, alias, filename,
// or quantization-stripped basename) to a pre-validated Server Config drawn
// from a detection run, in insertion order. Grounded on the teacher's
// in-memory lookup idiom (no external store; Non-goals assign persistence
// to the consumer).
package registry

import (
	"path/filepath"
	"regexp"
	"strings"

	"llamahost/detection"
	"llamahost/serverconfig"
)

// quantSuffix strips a trailing quantization tag such as "-q4_k_m" or
// "-q8_0" from a lowercased, extension-stripped basename, applied once.
var quantSuffix = regexp.MustCompile(`-q\d+[_k].*$`)

// Entry is one registered benchmark, addressable by sha256, alias,
// filename, or quant-stripped filename.
type Entry struct {
	Config  serverconfig.Config
	SHA256  string
	Aliases []string

	filenameForm     string
	quantStrippedForm string
}

// Registry holds entries in insertion order; selection always resolves to
// the first matching entry (§4.6 "Ties: first match wins").
type Registry struct {
	entries []Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// AddDetectionResult iterates result.Benchmarks, appending one Entry per
// benchmark holding (config, sha256, aliases). Insertion order is preserved.
func (r *Registry) AddDetectionResult(result detection.Result, aliases []string) {
	sha := result.FileInfo.SHA256
	filename, quantStripped := basenameForms(firstModelPath(result))

	for _, b := range result.Benchmarks {
		path := b.Config.ModelPath
		fn, qs := filename, quantStripped
		if path != "" {
			fn, qs = basenameForms(path)
		}
		r.entries = append(r.entries, Entry{
			Config:            b.Config,
			SHA256:            sha,
			Aliases:           aliases,
			filenameForm:      fn,
			quantStrippedForm: qs,
		})
	}
}

func firstModelPath(result detection.Result) string {
	if len(result.Benchmarks) == 0 {
		return ""
	}
	return result.Benchmarks[0].Config.ModelPath
}

// basenameForms returns (full basename with .gguf stripped and lowercased,
// the same with the quantization suffix stripped once).
func basenameForms(modelPath string) (string, string) {
	base := strings.ToLower(filepath.Base(modelPath))
	base = strings.TrimSuffix(base, ".gguf")
	stripped := quantSuffix.ReplaceAllString(base, "")
	return base, stripped
}

// SelectSpec returns the first entry (insertion order) whose effective
// context size is ≥ contextSize and whose identifying forms match input,
// or nil if none qualify. contextSize defaults to 4096 when 0.
func (r *Registry) SelectSpec(input string, contextSize int) *serverconfig.Config {
	if contextSize == 0 {
		contextSize = serverconfig.DefaultContextSize
	}

	for i := range r.entries {
		e := &r.entries[i]
		if e.Config.EffectiveContextSize() < contextSize {
			continue
		}
		if entryMatches(e, input) {
			cfg := e.Config
			return &cfg
		}
	}
	return nil
}

func entryMatches(e *Entry, input string) bool {
	if input == e.SHA256 {
		return true
	}
	for _, alias := range e.Aliases {
		if input == alias {
			return true
		}
	}
	if input == e.filenameForm {
		return true
	}
	if input == e.quantStrippedForm {
		return true
	}
	return false
}
