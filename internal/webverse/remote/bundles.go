// Package remote installs lab bundles published by the authority.
// Bundles are zip archives verified against a pinned sha256 before
// anything touches the labs directory.
package remote

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/api"
	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
)

// maxBundleBytes caps a single extracted bundle
const maxBundleBytes = 512 << 20

// Downloader fetches remote lab metadata and bundle bytes.
// Implemented by api.Client.
type Downloader interface {
	CheckLabs(ctx context.Context, installed []string) ([]api.RemoteLab, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Installer downloads and unpacks lab bundles into one labs directory
type Installer struct {
	client  Downloader
	labsDir string
}

// NewInstaller creates an installer writing under labsDir
func NewInstaller(client Downloader, labsDir string) *Installer {
	return &Installer{client: client, labsDir: labsDir}
}

// Check returns the labs the authority has that are not in installed
func (i *Installer) Check(ctx context.Context, installed []string) ([]api.RemoteLab, error) {
	return i.client.CheckLabs(ctx, installed)
}

// Install downloads one bundle, verifies its checksum and extracts it
// into <labsDir>/<id>. A failed verification or extraction leaves no
// partial lab behind.
func (i *Installer) Install(ctx context.Context, rl api.RemoteLab) error {
	log.InfoH2("Downloading %s (%s)", rl.Name, rl.Version)

	data, err := i.client.Download(ctx, rl.DownloadURL)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, rl.SHA256) {
		return wverrors.Wrapf(wverrors.ErrChecksumMismatch, "bundle %s: got %s want %s", rl.ID, got, rl.SHA256)
	}

	dest := filepath.Join(i.labsDir, rl.ID)
	staging := dest + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	if err := extractZip(data, staging); err != nil {
		os.RemoveAll(staging)
		return err
	}

	if err := os.RemoveAll(dest); err != nil {
		os.RemoveAll(staging)
		return err
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return err
	}

	log.InfoH3("Installed %s", rl.ID)
	return nil
}

// extractZip unpacks the archive under dest, rejecting entries that
// would escape it.
func extractZip(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return wverrors.Wrapf(wverrors.ErrInvalidManifest, "bad bundle archive: %v", err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	var written int64
	for _, f := range zr.File {
		target, err := sanitizePath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return wverrors.Wrapf(wverrors.ErrUnsafeArchive, "symlink entry %q", f.Name)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeEntry(f, target, &written); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string, written *int64) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, maxBundleBytes-*written+1))
	if err != nil {
		return err
	}
	*written += n
	if *written > maxBundleBytes {
		return wverrors.Wrapf(wverrors.ErrUnsafeArchive, "bundle exceeds %d bytes", int64(maxBundleBytes))
	}
	return nil
}

// sanitizePath resolves name under dest and rejects traversal
func sanitizePath(dest, name string) (string, error) {
	if strings.Contains(name, "..") || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", wverrors.Wrapf(wverrors.ErrUnsafeArchive, "entry %q escapes bundle root", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", wverrors.Wrapf(wverrors.ErrUnsafeArchive, "entry %q escapes bundle root", name)
	}
	return target, nil
}
