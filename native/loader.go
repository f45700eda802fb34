package native

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a Loader.
type Status int

const (
	StatusNotAttempted Status = iota
	StatusInProgress
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotAttempted:
		return "not-attempted"
	case StatusInProgress:
		return "in-progress"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of a single strategy attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// LoadAttempt records one strategy run.
type LoadAttempt struct {
	Strategy     string
	Outcome      Outcome
	Err          error
	ResolvedPath string
	Elapsed      time.Duration
}

// LoadState is a snapshot of a Loader.
type LoadState struct {
	Status   Status
	Attempts []LoadAttempt
	Binding  *Binding
	Err      error
}

// Loader binds the native engine at most once across concurrent callers.
// It is created by whatever owns application startup and handed to every
// component that needs the engine.
type Loader struct {
	cfg        config
	paths      *SearchPath
	extractor  *Extractor
	strategies []Strategy
	logger     *zap.Logger

	mu     sync.Mutex
	state  LoadState
	flight *flight
	// running is closed when the most recently started sequence finishes.
	// It survives Reset so sequences never overlap.
	running chan struct{}
}

// flight is one execution of the strategy sequence. Callers that arrive
// while it runs wait on done and share its result.
type flight struct {
	done    chan struct{}
	binding *Binding
	err     error
}

// New creates a Loader. Nothing is loaded until EnsureLoaded is called.
func New(opts ...Option) (*Loader, error) {
	cfg, err := resolveConfig(opts...)
	if err != nil {
		return nil, err
	}

	paths := &SearchPath{}
	for i, dir := range cfg.searchDirs {
		if i == 0 {
			err = paths.Set(dir)
		} else {
			err = paths.Append(dir)
		}
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.logger.With(zap.String("component", "native-loader"))

	extractor := cfg.extractor
	if extractor == nil {
		if cfg.shutdown == nil && !cfg.disableExtraction {
			logger.Warn("no shutdown registrar configured; extracted libraries are only removed by Cleanup or a later PurgeStale")
		}
		extractor = NewExtractor(ExtractorConfig{
			Bundle:   cfg.bundle,
			Root:     cfg.tempDir,
			Shutdown: cfg.shutdown,
			Logger:   cfg.logger,
		})
	}

	strategies := cfg.strategies
	if len(strategies) == 0 {
		strategies = defaultStrategies(cfg)
	}

	return &Loader{
		cfg:        cfg,
		paths:      paths,
		extractor:  extractor,
		strategies: strategies,
		logger:     logger,
		state:      LoadState{Status: StatusNotAttempted},
	}, nil
}

// EnsureLoaded binds the engine library if that has not happened yet and
// returns the binding. A loaded or failed Loader returns its stored result
// without running any strategy; a Loader that is loading makes the caller
// wait for that attempt. Only Reset allows another attempt.
func (l *Loader) EnsureLoaded() (*Binding, error) {
	l.mu.Lock()
	switch l.state.Status {
	case StatusLoaded:
		b := l.state.Binding
		l.mu.Unlock()
		return b, nil
	case StatusFailed:
		err := l.state.Err
		l.mu.Unlock()
		return nil, err
	case StatusInProgress:
		f := l.flight
		l.mu.Unlock()
		<-f.done
		return f.binding, f.err
	}

	f := &flight{done: make(chan struct{})}
	previous := l.running
	l.flight = f
	l.running = f.done
	l.state = LoadState{Status: StatusInProgress}
	l.mu.Unlock()

	// A sequence abandoned by Reset may still be binding.
	if previous != nil {
		<-previous
	}

	binding, err := l.run(f)

	l.mu.Lock()
	if l.running == f.done {
		l.running = nil
	}
	if l.flight == f {
		if err != nil {
			l.state.Status = StatusFailed
			l.state.Err = err
		} else {
			l.state.Status = StatusLoaded
			l.state.Binding = binding
		}
		l.flight = nil
	}
	f.binding, f.err = binding, err
	close(f.done)
	l.mu.Unlock()

	return binding, err
}

// IsLoaded reports whether a binding is available.
func (l *Loader) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Status == StatusLoaded
}

// Status returns the current lifecycle state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Status
}

// LoadError returns the terminal error of a failed load, or nil.
func (l *Loader) LoadError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Err
}

// Attempts returns the attempt log of the current or last load.
func (l *Loader) Attempts() []LoadAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LoadAttempt(nil), l.state.Attempts...)
}

// State returns a snapshot of the loader state.
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Attempts = append([]LoadAttempt(nil), l.state.Attempts...)
	return s
}

// Binding returns the cached binding, or ErrNotLoaded.
func (l *Loader) Binding() (*Binding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Status != StatusLoaded {
		return nil, ErrNotLoaded
	}
	return l.state.Binding, nil
}

// Reset returns the loader to its initial state and drops the cached
// binding without unloading it. Extracted artifacts are left in place.
// Callers already waiting on an in-flight attempt still receive its result,
// which is not committed; the next EnsureLoaded starts its sequence only
// after that attempt has finished.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = LoadState{Status: StatusNotAttempted}
	l.flight = nil
	l.logger.Debug("loader reset")
}

// SearchPath returns the search path the strategies configure.
func (l *Loader) SearchPath() *SearchPath { return l.paths }

// Extractor returns the extractor used by the resource strategy.
func (l *Loader) Extractor() *Extractor { return l.extractor }

// Platform resolves the descriptor the loader targets.
func (l *Loader) Platform() (PlatformDescriptor, error) {
	return resolvePlatform(l.cfg.goos, l.cfg.goarch, l.cfg.baseName)
}

func (l *Loader) run(f *flight) (*Binding, error) {
	platform, err := l.Platform()
	if err != nil {
		l.logger.Warn("native engine platform is not supported", zap.Error(err))
		return nil, err
	}

	env := &StrategyEnv{
		Platform:  platform,
		Paths:     l.paths,
		Extractor: l.extractor,
		Opener:    l.cfg.opener,
	}

	var attempts []LoadAttempt
	for _, strategy := range l.strategies {
		start := time.Now()
		binding, path, err := l.attempt(strategy, env)
		attempt := LoadAttempt{
			Strategy:     strategy.Name(),
			Outcome:      OutcomeSuccess,
			Err:          err,
			ResolvedPath: path,
			Elapsed:      time.Since(start),
		}
		if err != nil {
			attempt.Outcome = OutcomeFailure
		}
		attempts = append(attempts, attempt)
		l.record(f, attempt)

		if err == nil {
			l.logger.Info("native engine loaded",
				zap.String("strategy", attempt.Strategy),
				zap.String("path", path),
				zap.Duration("elapsed", attempt.Elapsed),
			)
			return binding, nil
		}
		l.logger.Debug("native load strategy failed",
			zap.String("strategy", attempt.Strategy),
			zap.String("path", path),
			zap.Duration("elapsed", attempt.Elapsed),
			zap.Error(err),
		)
	}

	failure := &AggregateLoadFailure{Attempts: attempts}
	l.logger.Warn("native engine could not be loaded", zap.Int("attempts", len(attempts)), zap.Error(failure))
	return nil, failure
}

func (l *Loader) attempt(strategy Strategy, env *StrategyEnv) (binding *Binding, path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			binding = nil
			err = fmt.Errorf("strategy %s panicked: %v", strategy.Name(), r)
		}
	}()

	lib, path, err := strategy.Open(env)
	if err != nil {
		return nil, path, err
	}
	if lib == nil {
		return nil, path, &BindingNotFoundError{Name: path, Err: errors.New("strategy returned no library")}
	}
	binding, err = bind(lib, path, strategy.Name(), l.cfg.requiredSymbols)
	return binding, path, err
}

func (l *Loader) record(f *flight, attempt LoadAttempt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.flight == f {
		l.state.Attempts = append(l.state.Attempts, attempt)
	}
}
