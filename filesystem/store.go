// Package filesystem provides a local disk backend for potatosync.
// Each principal owns one directory under the root. Writes are atomic
// (temp file and rename), etags are SHA-256, and blocking disk work is
// bounded by a semaphore.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// DefaultMaxConcurrency is the number of blocking filesystem operations
// allowed in flight at once.
const DefaultMaxConcurrency = 64

// Store implements potatosync.Backend on a directory tree.
type Store struct {
	root *os.Root
	sem  *semaphore.Weighted
}

// New creates a Store rooted at root. The root sandboxes every operation,
// so no key can resolve outside it. maxConcurrency <= 0 uses
// DefaultMaxConcurrency.
func New(root *os.Root, maxConcurrency int) *Store {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Store{root: root, sem: semaphore.NewWeighted(int64(maxConcurrency))}
}

// Open opens the directory at path and returns a Store on it.
func Open(dir string, maxConcurrency int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}
	return New(root, maxConcurrency), nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

// do runs fn while holding a concurrency slot.
func (s *Store) do(ctx context.Context, fn func() error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// namespaceDir turns "sub/" into "sub" and rejects anything that is not a
// single path element.
func namespaceDir(prefix string) (string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	if !potatosync.IsValidNamespace(dir) {
		return "", fmt.Errorf("%w: namespace %q", potatosync.ErrInvalidInput, prefix)
	}
	return dir, nil
}

func objectPath(prefix, name string) (string, string, error) {
	dir, err := namespaceDir(prefix)
	if err != nil {
		return "", "", err
	}
	if !potatosync.IsValidName(name) {
		return "", "", potatosync.ErrInvalidName
	}
	return dir, path.Join(dir, name), nil
}

// Count returns the number of regular files in the namespace directory.
// A missing directory counts as zero and is not created.
func (s *Store) Count(ctx context.Context, prefix string) (int, error) {
	entries, err := s.readNamespace(ctx, prefix)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

// List returns the regular files in the namespace directory.
func (s *Store) List(ctx context.Context, prefix string) ([]potatosync.ObjectInfo, error) {
	entries, err := s.readNamespace(ctx, prefix)
	if err != nil {
		return nil, err
	}

	owner := strings.TrimSuffix(prefix, "/")
	objects := make([]potatosync.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		objects = append(objects, potatosync.ObjectInfo{
			Key:     e.Name(),
			Owner:   owner,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return objects, nil
}

func (s *Store) readNamespace(ctx context.Context, prefix string) ([]fs.DirEntry, error) {
	dir, err := namespaceDir(prefix)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	entries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read namespace %s: %w", prefix, err)
	}
	return entries, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write streams content into a temp file at the root, fsyncs it and
// renames it to prefix/name. The namespace directory is created on first
// write. On failure or cancellation the temp file is removed and any
// previous object under the same name is left untouched.
//
// A concurrency slot is held only around each filesystem call, never while
// waiting for content, so slow uploads do not stall other requests.
func (s *Store) Write(ctx context.Context, prefix, name string, content io.Reader) (potatosync.WriteResult, error) {
	dir, dst, err := objectPath(prefix, name)
	if err != nil {
		return potatosync.WriteResult{}, err
	}

	tmpFile := tmpFileName()
	var t *os.File
	if err := s.do(ctx, func() (createErr error) {
		t, createErr = s.root.Create(tmpFile)
		return createErr
	}); err != nil {
		return potatosync.WriteResult{}, fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "file", tmpFile, "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, &slotWriter{ctx: ctx, s: s, w: t})

	written, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return potatosync.WriteResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := s.do(ctx, t.Sync); err != nil {
		return potatosync.WriteResult{}, fmt.Errorf("could not sync written file: %w", err)
	}
	if err := t.Close(); err != nil {
		return potatosync.WriteResult{}, fmt.Errorf("could not close written file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return potatosync.WriteResult{}, err
	}

	if err := s.do(ctx, func() error {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create namespace directory: %w", err)
		}
		if err := s.root.Rename(tmpFile, dst); err != nil {
			return fmt.Errorf("failed to rename file: %w", err)
		}
		return nil
	}); err != nil {
		return potatosync.WriteResult{}, err
	}

	success = true
	return potatosync.WriteResult{BytesWritten: written, ETag: hex.EncodeToString(h.Sum(nil))}, nil
}

// slotWriter takes a concurrency slot for each write to the underlying file.
type slotWriter struct {
	ctx context.Context
	s   *Store
	w   io.Writer
}

func (sw *slotWriter) Write(p []byte) (n int, err error) {
	err = sw.s.do(sw.ctx, func() error {
		n, err = sw.w.Write(p)
		return err
	})
	return n, err
}

// Open stats prefix/name and opens it for streaming. Returns
// potatosync.ErrNotFound if the object does not exist.
func (s *Store) Open(ctx context.Context, prefix, name string) (potatosync.Download, error) {
	_, p, err := objectPath(prefix, name)
	if err != nil {
		return potatosync.Download{}, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return potatosync.Download{}, err
	}
	defer release()

	info, err := s.stat(p)
	if err != nil {
		return potatosync.Download{}, err
	}

	f, err := s.root.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return potatosync.Download{}, potatosync.ErrNotFound
		}
		return potatosync.Download{}, fmt.Errorf("failed to open file: %w", err)
	}

	return potatosync.Download{
		Content: f,
		Info: potatosync.ObjectInfo{
			Key:     name,
			Owner:   strings.TrimSuffix(prefix, "/"),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		},
	}, nil
}

func (s *Store) stat(p string) (fs.FileInfo, error) {
	info, err := s.root.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, potatosync.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, potatosync.ErrNotFound
	}
	return info, nil
}

// Exists reports whether prefix/name is a regular file.
func (s *Store) Exists(ctx context.Context, prefix, name string) (bool, error) {
	_, p, err := objectPath(prefix, name)
	if err != nil {
		return false, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	if _, err := s.stat(p); err != nil {
		if errors.Is(err, potatosync.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes a file. Returns potatosync.ErrNotFound if the file does
// not exist.
func (s *Store) Delete(ctx context.Context, prefix, name string) error {
	_, p, err := objectPath(prefix, name)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.root.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return potatosync.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// DeleteAll removes the namespace directory and everything in it. A
// missing namespace is not an error.
func (s *Store) DeleteAll(ctx context.Context, prefix string) error {
	dir, err := namespaceDir(prefix)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.root.RemoveAll(dir); err != nil {
		return fmt.Errorf("could not delete namespace: %w", err)
	}
	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
