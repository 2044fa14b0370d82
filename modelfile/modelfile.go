// Package modelfile inspects a GGUF model file: its size, a streamed
// SHA-256 digest, and GGUF metadata (architecture, context length, block
// count, parameter count).
package modelfile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	gguf "github.com/gpustack/gguf-parser-go"

	"llamahost/errs"
)

// maxMetadataValueBytes is the cutoff past which a metadata entry's
// JSON-encoded value is dropped, except for tokenizer.chat_template.
const maxMetadataValueBytes = 200

// chatTemplateKey is always kept regardless of size.
const chatTemplateKey = "tokenizer.chat_template"

// Info is the immutable result of inspecting a single GGUF file.
type Info struct {
	FileSize       int64
	SHA256         string
	Architecture   *string
	ContextLength  *int64
	BlockCount     int64
	ParameterCount *int64
	Metadata       map[string]any
}

// Inspect reads path, computing its size and streamed SHA-256 digest, then
// parses GGUF metadata via the external parser. A GGUF parse failure does
// not fail the whole operation: Architecture, ContextLength, BlockCount,
// and ParameterCount are left at their zero/nil values, matching §4.4 and
// §7 (Parse errors from GGUF parsing are reported via the returned error,
// but fileSize/sha256 are always populated first).
func Inspect(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, errs.New("modelfile.Inspect", errs.NotFound, err)
	}

	sum, err := streamedSHA256(path)
	if err != nil {
		return Info{}, errs.New("modelfile.Inspect", errs.Parse, err)
	}

	info := Info{
		FileSize: stat.Size(),
		SHA256:   sum,
	}

	gf, err := gguf.ParseGGUFFile(path)
	if err != nil {
		return info, errs.New("modelfile.Inspect", errs.Parse, err)
	}

	meta := gf.Metadata()
	arch := gf.Architecture()

	if meta.Architecture != "" {
		a := meta.Architecture
		info.Architecture = &a
	}
	if arch.MaximumContextLength > 0 {
		cl := int64(arch.MaximumContextLength)
		info.ContextLength = &cl
	}
	info.BlockCount = int64(arch.BlockCount)
	if uint64(meta.Parameters) > 0 {
		pc := int64(meta.Parameters)
		info.ParameterCount = &pc
	}
	info.Metadata = trimMetadata(rawMetadataBag(meta, arch))

	return info, nil
}

func streamedSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// rawMetadataBag assembles a small, representative bag of metadata entries
// worth surfacing to a consumer (name, license, quantization version,
// chat template, etc.) ahead of size-trimming.
func rawMetadataBag(meta gguf.GGUFMetadata, arch gguf.GGUFArchitectureMetadata) map[string]any {
	bag := map[string]any{
		"general.architecture": meta.Architecture,
	}
	if meta.Name != "" {
		bag["general.name"] = meta.Name
	}
	if meta.License != "" {
		bag["general.license"] = meta.License
	}
	if meta.Author != "" {
		bag["general.author"] = meta.Author
	}
	if arch.AttentionHeadCount > 0 {
		bag[meta.Architecture+".attention.head_count"] = arch.AttentionHeadCount
	}
	return bag
}

// trimMetadata drops entries whose JSON-encoded length exceeds
// maxMetadataValueBytes, unless the key is chatTemplateKey.
func trimMetadata(bag map[string]any) map[string]any {
	trimmed := make(map[string]any, len(bag))
	for k, v := range bag {
		if k == chatTemplateKey {
			trimmed[k] = v
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if len(encoded) > maxMetadataValueBytes {
			continue
		}
		trimmed[k] = v
	}
	return trimmed
}
