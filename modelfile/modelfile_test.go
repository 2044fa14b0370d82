package modelfile

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStreamedSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	content := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := streamedSHA256(path)
	if err != nil {
		t.Fatalf("streamedSHA256() error = %v", err)
	}

	want := sha256.Sum256(content)
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("streamedSHA256() = %q, want %q", got, hex.EncodeToString(want[:]))
	}
}

func TestStreamedSHA256_MissingFile(t *testing.T) {
	if _, err := streamedSHA256(filepath.Join(t.TempDir(), "missing.gguf")); err == nil {
		t.Error("streamedSHA256() on missing file: expected error, got nil")
	}
}

func TestInspect_NotFound(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing.gguf"))
	if err == nil {
		t.Fatal("Inspect() on missing file: expected error, got nil")
	}
}

func TestInspect_FileSizeAndHashPopulatedBeforeParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-really-gguf.gguf")
	content := []byte("not a real GGUF container")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	info, err := Inspect(path)
	if err == nil {
		t.Fatal("Inspect() on a non-GGUF file: expected a parse error, got nil")
	}
	if info.FileSize != int64(len(content)) {
		t.Errorf("FileSize = %d, want %d (populated even though GGUF parse failed)", info.FileSize, len(content))
	}
	want := sha256.Sum256(content)
	if info.SHA256 != hex.EncodeToString(want[:]) {
		t.Errorf("SHA256 = %q, want %q", info.SHA256, hex.EncodeToString(want[:]))
	}
}

func TestTrimMetadata_DropsOversizedValuesExceptChatTemplate(t *testing.T) {
	longValue := strings.Repeat("x", maxMetadataValueBytes+10)
	bag := map[string]any{
		"general.architecture":  "llama",
		"general.oversized_key": longValue,
		chatTemplateKey:         longValue,
	}

	trimmed := trimMetadata(bag)

	if _, ok := trimmed["general.architecture"]; !ok {
		t.Error("expected small entry general.architecture to survive trimming")
	}
	if _, ok := trimmed["general.oversized_key"]; ok {
		t.Error("expected oversized entry to be dropped")
	}
	if _, ok := trimmed[chatTemplateKey]; !ok {
		t.Error("expected chat template to survive trimming regardless of size")
	}
}
