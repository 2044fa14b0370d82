// Package release installs a fetched llama.cpp release archive into a
// target directory and verifies it against an expected version, in the
// idiom of the teacher's ModelManager.EnsureModelAvailable
// download-then-verify flow generalized from "download a model" to
// "install a server release" (§6.5).
package release

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"llamahost/errs"
	"llamahost/installprobe"
)

// Fetcher is the narrow external collaborator that retrieves a release
// archive for a given version; out of scope for this module per §1.
type Fetcher interface {
	Fetch(ctx context.Context, version string) (archivePath string, err error)
}

// Install fetches the named version via fetcher, and unless targetDir
// already holds an installation, unzips the archive into targetDir and
// probes the result.
//
// If targetDir already holds an installation (detect succeeds) whose
// version differs from the requested one, Install fails with
// errs.VersionMismatch and leaves targetDir untouched (scenario S5).
func Install(ctx context.Context, fetcher Fetcher, targetDir, version string) (*installprobe.Handle, error) {
	if existing, err := installprobe.Detect(targetDir); err == nil && existing != nil {
		installedVersion, verErr := existing.Version(ctx)
		if verErr == nil && fmt.Sprint(installedVersion) != version {
			return nil, errs.New("release.Install", errs.VersionMismatch,
				fmt.Errorf("targetDir already holds version %d, requested %s", installedVersion, version))
		}
		return existing, nil
	}

	archivePath, err := fetcher.Fetch(ctx, version)
	if err != nil {
		return nil, errs.New("release.Install", errs.NotFound, err)
	}

	if err := unzip(archivePath, targetDir); err != nil {
		return nil, errs.New("release.Install", errs.StartFailed, err)
	}

	handle, err := installprobe.Detect(targetDir)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, errs.New("release.Install", errs.NotFound, fmt.Errorf("no llama-server/llama-cli found after unzip into %s", targetDir))
	}
	return handle, nil
}

func unzip(archivePath, targetDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	for _, f := range r.File {
		destPath := filepath.Join(targetDir, f.Name)
		if !isWithinDir(targetDir, destPath) {
			return fmt.Errorf("release: zip entry %q escapes target directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, f.Mode()); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func isWithinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

func extractFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
