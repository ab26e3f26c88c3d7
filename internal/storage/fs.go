package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// indexFile is the global vault index, stored beside the vault directories.
const indexFile = "vaults.json"

var safeSegmentRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FS implements Provider backed by the local file system: one directory per
// vault, one JSON document per collection. Files are human-inspectable and
// friendly to external sync tools (see Watcher).
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates an FS provider rooted at the given directory, creating it
// if necessary.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory, used to attach a Watcher.
func (f *FS) Root() string { return f.root }

// collectionPath validates both segments and joins them under root. IDs and
// collection names are generated internally, but external input must never
// be able to escape the data directory.
func (f *FS) collectionPath(vaultID, collection string) (string, error) {
	if !safeSegmentRe.MatchString(vaultID) || !safeSegmentRe.MatchString(collection) {
		return "", fmt.Errorf("storage: unsafe path segment %q/%q", vaultID, collection)
	}
	return filepath.Join(f.root, vaultID, collection+".json"), nil
}

// Read returns the stored collection bytes, or (nil, nil) when absent.
func (f *FS) Read(vaultID, collection string) ([]byte, error) {
	p, err := f.collectionPath(vaultID, collection)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s/%s: %w", vaultID, collection, err)
	}
	return data, nil
}

// Write atomically writes a collection: tmp file → fsync → rename.
func (f *FS) Write(vaultID, collection string, data []byte) error {
	p, err := f.collectionPath(vaultID, collection)
	if err != nil {
		return err
	}
	return f.atomicWrite(p, data)
}

// DeleteVault removes the vault directory and everything in it.
func (f *FS) DeleteVault(vaultID string) error {
	if !safeSegmentRe.MatchString(vaultID) {
		return fmt.Errorf("storage: unsafe vault id %q", vaultID)
	}
	if err := os.RemoveAll(filepath.Join(f.root, vaultID)); err != nil {
		return fmt.Errorf("storage: delete vault %s: %w", vaultID, err)
	}
	return nil
}

// ReadIndex returns the global vault index, or (nil, nil) when absent.
func (f *FS) ReadIndex() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read index: %w", err)
	}
	return data, nil
}

// WriteIndex atomically writes the global vault index.
func (f *FS) WriteIndex(data []byte) error {
	return f.atomicWrite(filepath.Join(f.root, indexFile), data)
}

// Close is a no-op for the file-system provider.
func (f *FS) Close() error { return nil }

func (f *FS) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Verify interface compliance at compile time.
var _ Provider = (*FS)(nil)
