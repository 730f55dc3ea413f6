package controlplane

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/aponysus/await/policy"
)

// FileSource serves specs loaded from YAML, JSON and CUE documents. Paths
// may name files or directories; directories are scanned one level deep.
//
// A FileSource is both a Source (for RemoteProvider) and a SpecProvider.
type FileSource struct {
	paths    []string
	logger   zerolog.Logger
	debounce time.Duration

	mu     sync.RWMutex
	specs  map[policy.Key]policy.WaiterSpec
	caches []Purger
}

// Purger drops cached specs. RemoteProvider and SpecCache implement it.
type Purger interface {
	Purge()
}

type FileSourceOption func(*FileSource)

func WithLogger(logger zerolog.Logger) FileSourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// WithDebounce sets how long Watch waits for further changes before
// reloading. Default is 250ms.
func WithDebounce(d time.Duration) FileSourceOption {
	return func(s *FileSource) {
		s.debounce = d
	}
}

// NewFileSource loads every spec document under paths.
func NewFileSource(paths []string, opts ...FileSourceOption) (*FileSource, error) {
	s := &FileSource{
		paths:    slices.Clone(paths),
		logger:   zerolog.Nop(),
		debounce: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "spec_loader").Logger()

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load re-reads every document. On error the previously loaded specs stay
// in place.
func (s *FileSource) Load() error {
	files, err := s.files()
	if err != nil {
		return err
	}

	specs := make(map[policy.Key]policy.WaiterSpec)
	origins := make(map[policy.Key]string)
	for _, f := range files {
		loaded, err := LoadFile(f)
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		for _, spec := range loaded {
			if prev, dup := origins[spec.Key]; dup {
				return fmt.Errorf("%w: duplicate waiter %q in %s and %s", policy.ErrInvalidDocument, spec.Key, prev, f)
			}
			origins[spec.Key] = f
			specs[spec.Key] = spec
		}
	}

	s.mu.Lock()
	s.specs = specs
	caches := slices.Clone(s.caches)
	s.mu.Unlock()

	for _, c := range caches {
		c.Purge()
	}

	s.logger.Info().
		Int("files", len(files)).
		Int("waiters", len(specs)).
		Msg("waiter specs loaded")
	return nil
}

// PurgeOnReload registers caches that are purged after every successful
// Load, including reloads triggered by Watch. Register the RemoteProvider
// that wraps s so it never serves specs from before a reload.
func (s *FileSource) PurgeOnReload(caches ...Purger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range caches {
		if c != nil {
			s.caches = append(s.caches, c)
		}
	}
}

func (s *FileSource) files() ([]string, error) {
	var files []string
	for _, p := range s.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && supportedExt(e.Name()) {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	return files, nil
}

func supportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".cue":
		return true
	default:
		return false
	}
}

// LoadFile parses one spec document, choosing the format by extension.
func LoadFile(path string) ([]policy.WaiterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return policy.ParseYAML(data, path)
	case ".json":
		return policy.ParseJSON(data, path)
	case ".cue":
		return parseCUE(data, path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", policy.ErrInvalidDocument, ext)
	}
}

// parseCUE evaluates a CUE document to concrete JSON and decodes that.
func parseCUE(data []byte, path string) ([]policy.WaiterSpec, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", policy.ErrInvalidDocument, path, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", policy.ErrInvalidDocument, path, err)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", policy.ErrInvalidDocument, path, err)
	}
	return policy.ParseJSON(b, path)
}

func (s *FileSource) FetchSpec(_ context.Context, key policy.Key) (policy.WaiterSpec, error) {
	s.mu.RLock()
	spec, ok := s.specs[key]
	s.mu.RUnlock()
	if !ok {
		return policy.WaiterSpec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, key)
	}
	return spec, nil
}

func (s *FileSource) GetSpec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error) {
	return s.FetchSpec(ctx, key)
}

// Specs returns every loaded spec ordered by key.
func (s *FileSource) Specs() []policy.WaiterSpec {
	s.mu.RLock()
	out := make([]policy.WaiterSpec, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, spec)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b policy.WaiterSpec) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out
}

// Watch reloads the source whenever a spec document under its paths
// changes, until ctx is done. onReload, if set, is called after every reload
// attempt with its result.
func (s *FileSource) Watch(ctx context.Context, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	files := make(map[string]struct{})
	for _, p := range s.paths {
		info, err := os.Stat(p)
		if err != nil {
			_ = watcher.Close()
			return err
		}
		dir := p
		if !info.IsDir() {
			dir = filepath.Dir(p)
			files[filepath.Clean(p)] = struct{}{}
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go s.processEvents(ctx, watcher, files, onReload)

	s.logger.Info().Int("paths", len(s.paths)).Msg("watching waiter specs")
	return nil
}

func (s *FileSource) processEvents(ctx context.Context, watcher *fsnotify.Watcher, files map[string]struct{}, onReload func(error)) {
	defer func() { _ = watcher.Close() }()

	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event, files) {
				continue
			}
			s.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("waiter spec changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(s.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				err := s.Load()
				if err != nil {
					s.logger.Error().Err(err).Msg("failed to reload waiter specs")
				}
				if onReload != nil {
					onReload(err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("spec watcher error")
		}
	}
}

func (s *FileSource) relevant(event fsnotify.Event, files map[string]struct{}) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !supportedExt(event.Name) {
		return false
	}
	if len(files) == 0 {
		return true
	}
	// A watched parent directory also reports siblings of watched files.
	if _, ok := files[filepath.Clean(event.Name)]; ok {
		return true
	}
	for _, p := range s.paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() && filepath.Dir(event.Name) == filepath.Clean(p) {
			return true
		}
	}
	return false
}
