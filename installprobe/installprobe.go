// Package installprobe locates an installed llama-server/llama-cli pair on
// disk and extracts version and capability information from their
// command-line output.
package installprobe

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"llamahost/errs"
)

const (
	serverBinaryName = "llama-server"
	cliBinaryName    = "llama-cli"

	// flashAttnEnumHelp is the substring indicating the installed llama-cli
	// advertises the --flash-attn [on|off|auto] enum form rather than a
	// bare boolean flag.
	flashAttnEnumHelp = " --flash-attn [on|off|auto]"
)

var (
	versionWithCodename = regexp.MustCompile(`version:\s*(\d+)\s*\([^)]+\)`)
	versionBare         = regexp.MustCompile(`version:\s*(\d+)`)
)

// Handle refers to a fixed installation directory for its lifetime. If the
// files it names later disappear, subsequent operations fail — it does not
// re-scan.
type Handle struct {
	rootPath string

	mu          sync.Mutex
	versionText string
	versionErr  error
	versionDone bool

	helpText string
	helpErr  error
	helpDone bool
}

// Detect recursively scans root and returns a Handle rooted at the first
// directory containing both llama-server and llama-cli as regular files
// with any executable bit set (owner/group/other). Permission errors during
// traversal are swallowed; traversal continues. Returns nil, nil if no
// directory qualifies.
func Detect(root string) (*Handle, error) {
	var found string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return nil
		}
		if found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() {
			return nil
		}
		if hasExecutable(path, serverBinaryName) && hasExecutable(path, cliBinaryName) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return nil, errs.New("installprobe.Detect", errs.NotFound, walkErr)
	}
	if found == "" {
		return nil, nil
	}
	return &Handle{rootPath: found}, nil
}

func hasExecutable(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// RootPath returns the directory this handle is bound to.
func (h *Handle) RootPath() string {
	return h.rootPath
}

// ServerPath returns the joined path to llama-server, or "" if it no longer exists.
func (h *Handle) ServerPath() string {
	return h.existingPath(serverBinaryName)
}

// CLIPath returns the joined path to llama-cli, or "" if it no longer exists.
func (h *Handle) CLIPath() string {
	return h.existingPath(cliBinaryName)
}

func (h *Handle) existingPath(name string) string {
	p := filepath.Join(h.rootPath, name)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// VersionOutput runs `llama-cli --version` once, capturing stderr, and
// memoizes the result for the handle's lifetime.
func (h *Handle) VersionOutput(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.versionDone {
		return h.versionText, h.versionErr
	}
	h.versionDone = true

	cli := h.CLIPath()
	if cli == "" {
		h.versionErr = errs.New("installprobe.VersionOutput", errs.NotFound, nil)
		return "", h.versionErr
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cli, "--version")
	cmd.Stderr = &stderr
	_ = cmd.Run() // llama-cli --version may exit non-zero; output is what matters

	h.versionText = stderr.String()
	return h.versionText, nil
}

// HelpOutput runs `llama-cli --help` once, capturing stdout, and memoizes
// the result for the handle's lifetime.
func (h *Handle) HelpOutput(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.helpDone {
		return h.helpText, h.helpErr
	}
	h.helpDone = true

	cli := h.CLIPath()
	if cli == "" {
		h.helpErr = errs.New("installprobe.HelpOutput", errs.NotFound, nil)
		return "", h.helpErr
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, cli, "--help")
	cmd.Stdout = &stdout
	_ = cmd.Run()

	h.helpText = stdout.String()
	return h.helpText, nil
}

// Version parses the numeric build version from VersionOutput, preferring
// the "version: N (codename)" form and falling back to "version: N".
func (h *Handle) Version(ctx context.Context) (int, error) {
	text, err := h.VersionOutput(ctx)
	if err != nil {
		return 0, err
	}

	if m := versionWithCodename.FindStringSubmatch(text); m != nil {
		return strconv.Atoi(m[1])
	}
	if m := versionBare.FindStringSubmatch(text); m != nil {
		return strconv.Atoi(m[1])
	}
	return 0, errs.New("installprobe.Version", errs.Parse, nil)
}

// HasCUDA reports whether the version output mentions CUDA support.
func (h *Handle) HasCUDA(ctx context.Context) (bool, error) {
	text, err := h.VersionOutput(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(text, "CUDA"), nil
}

// FlashAttnIsEnum reports whether --help advertises the enum form of
// --flash-attn ([on|off|auto]) rather than a bare boolean flag.
func (h *Handle) FlashAttnIsEnum(ctx context.Context) (bool, error) {
	text, err := h.HelpOutput(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(text, flashAttnEnumHelp), nil
}
