// Package storage persists client state (session, remember-me, form configuration) as JSON
// documents guarded by a cross-process file lock.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ideaboard/internal/config"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/attribute"
)

// JSONFile is one JSON document on disk. A sibling ".lock" file serializes access
// across processes; mu serializes goroutines within one.
type JSONFile struct {
	path        string
	fileLock    *flock.Flock
	mu          sync.RWMutex
	perm        os.FileMode
	lockTimeout time.Duration
}

// Option configures a JSONFile
type Option func(*JSONFile)

// WithPerm sets the file mode used when writing the document
func WithPerm(perm os.FileMode) Option {
	return func(f *JSONFile) { f.perm = perm }
}

// WithLockTimeout bounds how long Load/Save wait for the file lock
func WithLockTimeout(d time.Duration) Option {
	return func(f *JSONFile) {
		if d > 0 {
			f.lockTimeout = d
		}
	}
}

// NewJSONFile creates a store for the document at path. Nothing is touched on disk until
// the first Save.
func NewJSONFile(path string, opts ...Option) *JSONFile {
	f := &JSONFile{
		path:        path,
		fileLock:    flock.New(path + ".lock"),
		perm:        0o600,
		lockTimeout: config.StateLockTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the document location
func (f *JSONFile) Path() string {
	return f.path
}

// Load decodes the document into v. found is false when the file does not exist or is empty;
// v is left untouched in that case.
func (f *JSONFile) Load(ctx context.Context, v interface{}) (found bool, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "load", attribute.String("storage.path", f.path))
	defer observability.FinishSpan(span, &err)

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.ensureDir(); err != nil {
		return false, err
	}
	unlock, err := f.acquire(ctx, true)
	if err != nil {
		return false, err
	}
	defer unlock()

	return f.readLocked(v)
}

// Save replaces the document with v, writing through a temp file and rename
func (f *JSONFile) Save(ctx context.Context, v interface{}) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "save", attribute.String("storage.path", f.path))
	defer observability.FinishSpan(span, &err)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureDir(); err != nil {
		return err
	}
	unlock, err := f.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	return f.writeLocked(v)
}

// Update loads the document into v, calls fn, and saves v if fn returns nil. The file lock is
// held for the whole read-modify-write. A document that does not parse is reported to fn as
// not found, so the write replaces it.
func (f *JSONFile) Update(ctx context.Context, v interface{}, fn func(found bool) error) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "update", attribute.String("storage.path", f.path))
	defer observability.FinishSpan(span, &err)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureDir(); err != nil {
		return err
	}
	unlock, err := f.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	found, err := f.readLocked(v)
	if err != nil && !contextutils.IsError(err, contextutils.ErrInvalidFormat) {
		return err
	}
	if err := fn(found); err != nil {
		return err
	}
	return f.writeLocked(v)
}

// Remove deletes the document. Removing a missing document is not an error.
func (f *JSONFile) Remove(ctx context.Context) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "remove", attribute.String("storage.path", f.path))
	defer observability.FinishSpan(span, &err)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, statErr := os.Stat(filepath.Dir(f.path)); errors.Is(statErr, fs.ErrNotExist) {
		return nil
	}
	unlock, err := f.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return contextutils.WrapErrorf(err, "failed to remove %s", f.path)
	}
	return nil
}

func (f *JSONFile) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return contextutils.WrapErrorf(err, "failed to create state directory for %s", f.path)
	}
	return nil
}

func (f *JSONFile) acquire(ctx context.Context, shared bool) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()

	var locked bool
	var err error
	if shared {
		locked, err = f.fileLock.TryRLockContext(ctx, config.StateLockRetryStep)
	} else {
		locked, err = f.fileLock.TryLockContext(ctx, config.StateLockRetryStep)
	}
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeTimeout, contextutils.SeverityWarn,
			"failed to acquire state file lock", f.path, err)
	}
	if !locked {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeTimeout, contextutils.SeverityWarn,
			"could not acquire state file lock", f.path)
	}
	return func() { _ = f.fileLock.Unlock() }, nil
}

func (f *JSONFile) readLocked(v interface{}) (bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, contextutils.WrapErrorf(err, "failed to read %s", f.path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
			"failed to parse state file", f.path, err)
	}
	return true, nil
}

func (f *JSONFile) writeLocked(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to marshal %s", f.path)
	}

	tmpFile := f.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, f.perm); err != nil {
		return contextutils.WrapErrorf(err, "failed to write %s", tmpFile)
	}
	// WriteFile keeps the mode of an existing temp file
	if err := os.Chmod(tmpFile, f.perm); err != nil {
		_ = os.Remove(tmpFile)
		return contextutils.WrapErrorf(err, "failed to chmod %s", tmpFile)
	}
	if err := os.Rename(tmpFile, f.path); err != nil {
		_ = os.Remove(tmpFile)
		return contextutils.WrapErrorf(err, "failed to rename %s", tmpFile)
	}
	return nil
}
