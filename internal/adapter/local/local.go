package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
)

// Adapter implements adapter.Adapter for one local directory.
//
// Listing policy: only regular files directly inside root are returned.
// Subdirectories, symlinks (never followed), sockets, devices and named pipes
// are skipped.
type Adapter struct {
	fs   afero.Fs
	root string
	log  logger.Logger

	// osBacked enables device/inode lookups; other filesystems have no identity
	osBacked bool
}

// Option configures an Adapter
type Option func(*Adapter)

// WithFs replaces the backing filesystem (tests use afero.MemMapFs)
func WithFs(fsys afero.Fs) Option {
	return func(a *Adapter) {
		a.fs = fsys
	}
}

// WithLogger sets the logger used for skipped entries
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		a.log = l
	}
}

// New creates a local adapter rooted at dir.
// dir must name an existing directory; failures wrap domain.ErrScan.
func New(dir string, opts ...Option) (*Adapter, error) {
	a := &Adapter{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get()
	}
	_, a.osBacked = a.fs.(*afero.OsFs)

	absRoot, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", domain.ErrScan, dir, err)
	}

	info, err := a.fs.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrScan, absRoot, mapError(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrScan, absRoot, domain.ErrNotDirectory)
	}

	a.root = absRoot
	return a, nil
}

// List returns every regular file directly inside root, sorted by name
func (a *Adapter) List(ctx context.Context) ([]domain.FileEntry, error) {
	// afero.ReadDir lstat's entries on OsFs, so symlinks keep ModeSymlink here
	infos, err := afero.ReadDir(a.fs, a.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrScan, a.root, mapError(err))
	}

	result := make([]domain.FileEntry, 0, len(infos))
	for _, info := range infos {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mode := info.Mode()
		switch {
		case mode.IsRegular():
		case mode&fs.ModeSymlink != 0:
			a.log.Debug("skipping symlink", "name", info.Name())
			continue
		case mode.IsDir():
			continue
		default:
			a.log.Debug("skipping non-regular file", "name", info.Name(), "mode", mode.String())
			continue
		}

		path := filepath.Join(a.root, info.Name())
		var id domain.FileID
		if a.osBacked {
			id, _ = statID(path)
		}

		result = append(result, domain.FileEntry{
			Path:    path,
			Name:    info.Name(),
			ID:      id,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return result, nil
}

// Open opens a regular file for reading
func (a *Adapter) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	file, err := a.fs.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, mapError(err)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, domain.ErrNotFile
	}

	return file, nil
}

// Remove deletes a single file
func (a *Adapter) Remove(ctx context.Context, path string) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}

	return mapError(a.fs.Remove(fullPath))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return false, err
	}

	_, err = a.fs.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, mapError(err)
}

// Root returns the absolute root directory
func (a *Adapter) Root() string {
	return a.root
}

// resolvePath accepts an absolute path or a name relative to root and rejects
// anything that is not a direct child of root
func (a *Adapter) resolvePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, filepath.FromSlash(path))
	}
	path = filepath.Clean(path)

	// The adapter is flat: only direct children of root are addressable.
	// Names like "..x" are ordinary files; Clean has already folded "..".
	if filepath.Dir(path) != a.root || path == a.root {
		return "", domain.ErrPermissionDenied
	}

	return path, nil
}

// mapError converts OS errors to domain errors, keeping the original for context
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EROFS):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, syscall.ENOTDIR) {
		return fmt.Errorf("%w: %w", domain.ErrNotDirectory, err)
	}

	return err
}
