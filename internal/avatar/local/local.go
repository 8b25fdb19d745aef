// Package local stores avatars as files in one upload directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sultanmr/aws-grocery/internal/avatar"
)

// Backend implements avatar.Backend on the local filesystem. References are
// bare filenames under dir.
type Backend struct {
	dir string
}

// New creates dir if needed and returns a backend rooted there.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	return &Backend{dir: abs}, nil
}

// Dir returns the absolute upload directory.
func (b *Backend) Dir() string { return b.dir }

// Name identifies the backend in logs and metrics.
func (b *Backend) Name() string { return "local" }

// Ref is the bare filename; objects live directly in Dir.
func (b *Backend) Ref(filename string) string { return filename }

// path resolves ref inside dir. Anything that is not a single plain path
// component is rejected.
func (b *Backend) path(ref string) (string, error) {
	clean := filepath.Clean(ref)
	if ref == "" || clean != ref || strings.ContainsAny(ref, `/\`) || clean == "." || clean == ".." {
		return "", fmt.Errorf("invalid avatar reference %q: %w", ref, avatar.ErrObjectNotFound)
	}
	return filepath.Join(b.dir, clean), nil
}

// Put writes to a temp file in dir and renames it into place.
func (b *Backend) Put(_ context.Context, ref string, data []byte, _ string) error {
	path, err := b.path(ref)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	ok = true
	return nil
}

// Get reads the object at ref. A missing file or an invalid reference wraps
// avatar.ErrObjectNotFound; other read errors are transient.
func (b *Backend) Get(_ context.Context, ref string) (*avatar.Object, error) {
	path, err := b.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, avatar.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	return &avatar.Object{Data: data, ContentType: avatar.ContentType(ref, data)}, nil
}

// Delete removes the object at ref. A missing file wraps
// avatar.ErrObjectNotFound.
func (b *Backend) Delete(_ context.Context, ref string) error {
	path, err := b.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", ref, avatar.ErrObjectNotFound)
		}
		return fmt.Errorf("delete avatar: %w", err)
	}
	return nil
}
