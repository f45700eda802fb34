package native

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	extractionDirPrefix = "extract-"
	ownerLockName       = ".owner.lock"

	// Directories younger than this are never purged; their owner may not
	// have taken its lock yet.
	purgeGracePeriod = time.Minute
)

// TempArtifact is a bundled library written out to the filesystem so the
// binding mechanism can load it.
type TempArtifact struct {
	Path        string
	ResourceKey string
	Digest      string
	CreatedAt   time.Time

	cacheKey string
}

// Dir returns the directory holding the artifact.
func (a TempArtifact) Dir() string { return filepath.Dir(a.Path) }

// ShutdownRegistrar accepts teardown actions to run when the host shuts down.
type ShutdownRegistrar interface {
	Register(name string, fn func() error)
}

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	// Bundle holds the application resources, laid out as native/<platform>/<file>.
	Bundle fs.FS
	// Root is the directory extraction directories are created in.
	Root string
	// Shutdown receives one cleanup action per extracted artifact. When nil,
	// artifacts outlive the process unless Cleanup, CleanupAll or a later
	// PurgeStale removes them.
	Shutdown ShutdownRegistrar
	Logger   *zap.Logger
}

// Extractor copies bundled libraries out of the application bundle, reusing
// earlier extractions for as long as their files exist.
type Extractor struct {
	bundle   fs.FS
	root     string
	shutdown ShutdownRegistrar
	logger   *zap.Logger

	group singleflight.Group

	mu        sync.Mutex
	artifacts map[string]*extraction

	writes atomic.Int64
}

type extraction struct {
	artifact TempArtifact
	lock     *os.File
}

// DefaultExtractionRoot returns the extraction root used when none is configured.
func DefaultExtractionRoot() string {
	return filepath.Join(os.TempDir(), "contextune-native")
}

// NewExtractor returns an extractor reading from cfg.Bundle.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = DefaultExtractionRoot()
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	return &Extractor{
		bundle:    cfg.Bundle,
		root:      filepath.Clean(root),
		shutdown:  cfg.Shutdown,
		logger:    log.With(zap.String("component", "extractor")),
		artifacts: make(map[string]*extraction),
	}
}

// Root returns the extraction root directory.
func (e *Extractor) Root() string { return e.root }

// Extract returns an on-disk copy of the bundled resource for descriptor.
// Concurrent calls for the same resource collapse into one extraction, and a
// previous artifact whose file still exists is returned unchanged.
func (e *Extractor) Extract(resourceKey string, descriptor PlatformDescriptor) (TempArtifact, error) {
	key := normalizeResourceKey(resourceKey)
	if key == "" {
		return TempArtifact{}, &ResourceNotFoundError{Key: resourceKey}
	}
	cacheKey := extractionCacheKey(key, descriptor)

	if artifact, ok := e.cached(cacheKey); ok {
		e.logger.Debug("reusing extracted library", zap.String("path", artifact.Path))
		return artifact, nil
	}

	v, err, _ := e.group.Do(cacheKey, func() (any, error) {
		if artifact, ok := e.cached(cacheKey); ok {
			return artifact, nil
		}
		return e.extract(cacheKey, key, descriptor)
	})
	if err != nil {
		return TempArtifact{}, err
	}
	return v.(TempArtifact), nil
}

// Cleanup deletes one artifact. Deleting an artifact that is already gone is a no-op.
func (e *Extractor) Cleanup(artifact TempArtifact) error {
	e.mu.Lock()
	entry, ok := e.artifacts[artifact.cacheKey]
	if ok && entry.artifact.Path == artifact.Path {
		delete(e.artifacts, artifact.cacheKey)
	} else {
		entry = nil
	}
	e.mu.Unlock()

	if entry == nil {
		return removeIfExists(artifact.Path)
	}
	return e.remove(entry)
}

// CleanupAll deletes every artifact this extractor created.
func (e *Extractor) CleanupAll() error {
	e.mu.Lock()
	entries := make([]*extraction, 0, len(e.artifacts))
	for key, entry := range e.artifacts {
		entries = append(entries, entry)
		delete(e.artifacts, key)
	}
	e.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := e.remove(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Artifacts returns the artifacts currently tracked.
func (e *Extractor) Artifacts() []TempArtifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TempArtifact, 0, len(e.artifacts))
	for _, entry := range e.artifacts {
		out = append(out, entry.artifact)
	}
	return out
}

// PurgeStale removes extraction directories under the root that no live
// process owns, typically left behind by a process that exited without
// running its teardown. It returns the removed directories.
func (e *Extractor) PurgeStale() ([]string, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &ExtractionIOError{Op: "read extraction root", Path: e.root, Err: err}
	}

	e.mu.Lock()
	owned := make(map[string]bool, len(e.artifacts))
	for _, entry := range e.artifacts {
		owned[entry.artifact.Dir()] = true
	}
	e.mu.Unlock()

	var (
		removed []string
		errs    []error
	)
	cutoff := time.Now().Add(-purgeGracePeriod)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), extractionDirPrefix) {
			continue
		}
		dir := filepath.Join(e.root, entry.Name())
		if owned[dir] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		claimed, err := claimAbandoned(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, &ExtractionIOError{Op: "remove stale extraction", Path: dir, Err: err})
			continue
		}
		e.logger.Debug("purged stale extraction", zap.String("dir", dir))
		removed = append(removed, dir)
	}
	return removed, errors.Join(errs...)
}

func (e *Extractor) cached(cacheKey string) (TempArtifact, bool) {
	e.mu.Lock()
	entry, ok := e.artifacts[cacheKey]
	if !ok {
		e.mu.Unlock()
		return TempArtifact{}, false
	}
	if _, err := os.Stat(entry.artifact.Path); err == nil {
		e.mu.Unlock()
		return entry.artifact, true
	}
	// Deleted behind our back: forget it so the caller re-extracts.
	delete(e.artifacts, cacheKey)
	e.mu.Unlock()

	if err := e.remove(entry); err != nil {
		e.logger.Debug("failed to discard missing artifact", zap.String("path", entry.artifact.Path), zap.Error(err))
	}
	return TempArtifact{}, false
}

func (e *Extractor) extract(cacheKey, key string, descriptor PlatformDescriptor) (artifact TempArtifact, err error) {
	if e.bundle == nil {
		return TempArtifact{}, &ResourceNotFoundError{Key: key, Err: errors.New("no application bundle configured")}
	}

	src, err := e.bundle.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return TempArtifact{}, &ResourceNotFoundError{Key: key}
		}
		return TempArtifact{}, &ResourceNotFoundError{Key: key, Err: err}
	}
	defer func() {
		_ = src.Close()
	}()
	if info, statErr := src.Stat(); statErr == nil && info.IsDir() {
		return TempArtifact{}, &ResourceNotFoundError{Key: key, Err: errors.New("resource is a directory")}
	}

	if err := os.MkdirAll(e.root, 0o755); err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "create extraction root", Path: e.root, Err: err}
	}
	dir, err := os.MkdirTemp(e.root, extractionDirPrefix+descriptor.Directory+"-*")
	if err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "create extraction directory", Path: e.root, Err: err}
	}

	var lock *os.File
	success := false
	defer func() {
		if success {
			return
		}
		releaseLock(lock)
		_ = os.RemoveAll(dir)
	}()

	lock, err = claimOwned(dir)
	if err != nil {
		return TempArtifact{}, err
	}

	staging, err := os.CreateTemp(dir, descriptor.LibraryFileName+".staging-*")
	if err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "create staging file", Path: dir, Err: err}
	}
	stagingPath := staging.Name()
	defer func() {
		if !success {
			_ = staging.Close()
			_ = os.Remove(stagingPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(staging, hasher), src)
	if err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "write staging file", Path: stagingPath, Err: err}
	}
	if written == 0 {
		return TempArtifact{}, &ExtractionIOError{Op: "write staging file", Path: stagingPath, Err: errors.New("bundled resource is empty")}
	}
	if err := staging.Sync(); err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "sync staging file", Path: stagingPath, Err: err}
	}
	if err := staging.Close(); err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "close staging file", Path: stagingPath, Err: err}
	}
	if err := os.Chmod(stagingPath, 0o755); err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "chmod staging file", Path: stagingPath, Err: err}
	}

	finalPath := filepath.Join(dir, descriptor.LibraryFileName)
	if err := os.Rename(stagingPath, finalPath); err != nil {
		return TempArtifact{}, &ExtractionIOError{Op: "install extracted library", Path: finalPath, Err: err}
	}
	e.writes.Add(1)

	artifact = TempArtifact{
		Path:        finalPath,
		ResourceKey: key,
		Digest:      hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:   time.Now(),
		cacheKey:    cacheKey,
	}

	e.mu.Lock()
	e.artifacts[cacheKey] = &extraction{artifact: artifact, lock: lock}
	e.mu.Unlock()
	success = true

	if e.shutdown != nil {
		registered := artifact
		e.shutdown.Register("remove extracted library "+finalPath, func() error {
			return e.Cleanup(registered)
		})
	}

	e.logger.Debug("extracted bundled library",
		zap.String("resource", key),
		zap.String("path", finalPath),
		zap.Int64("bytes", written),
	)
	return artifact, nil
}

// remove is the single deletion routine behind Cleanup, CleanupAll and the
// registered shutdown actions.
func (e *Extractor) remove(entry *extraction) error {
	var errs []error
	if err := removeIfExists(entry.artifact.Path); err != nil {
		errs = append(errs, err)
	}
	releaseLock(entry.lock)
	entry.lock = nil

	dir := entry.artifact.Dir()
	if err := os.RemoveAll(dir); err != nil {
		errs = append(errs, &ExtractionIOError{Op: "remove extraction directory", Path: dir, Err: err})
	}
	if len(errs) == 0 {
		e.logger.Debug("removed extracted library", zap.String("path", entry.artifact.Path))
	}
	return errors.Join(errs...)
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ExtractionIOError{Op: "remove extracted library", Path: path, Err: err}
	}
	return nil
}

// claimOwned takes the owner lock of a freshly created extraction directory
// and keeps it for the lifetime of the artifact.
func claimOwned(dir string) (*os.File, error) {
	lockPath := filepath.Join(dir, ownerLockName)
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &ExtractionIOError{Op: "open owner lock", Path: lockPath, Err: err}
	}
	held, err := tryLock(file)
	if err != nil || !held {
		_ = file.Close()
		if err == nil {
			err = errors.New("lock is held by another process")
		}
		return nil, &ExtractionIOError{Op: "acquire owner lock", Path: lockPath, Err: err}
	}
	return file, nil
}

// claimAbandoned reports whether dir has no live owner.
func claimAbandoned(dir string) (bool, error) {
	lockPath := filepath.Join(dir, ownerLockName)
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, &ExtractionIOError{Op: "open owner lock", Path: lockPath, Err: err}
	}
	defer func() {
		_ = file.Close()
	}()
	held, err := tryLock(file)
	if err != nil {
		return false, &ExtractionIOError{Op: "probe owner lock", Path: lockPath, Err: err}
	}
	if held {
		_ = unlock(file)
	}
	return held, nil
}

func releaseLock(file *os.File) {
	if file == nil {
		return
	}
	_ = unlock(file)
	_ = file.Close()
}

func normalizeResourceKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return ""
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return ""
	}
	return cleaned
}

func extractionCacheKey(resourceKey string, d PlatformDescriptor) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", resourceKey, d.Directory, d.LibraryFileName)))
	return hex.EncodeToString(sum[:])
}
