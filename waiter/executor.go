package waiter

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/controlplane"
	"github.com/aponysus/await/internal"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/query"
)

// Executor holds the collaborators shared by waits: where specs come from,
// how paths are evaluated, how errors are recognized, who observes, and the
// clock. It carries no per-invocation state and is safe for concurrent use.
type Executor struct {
	provider      controlplane.SpecProvider
	observer      observe.Observer
	paths         classify.PathEvaluator
	errorTypes    *classify.ErrorTypes
	codes         []classify.CodeExtractor
	clock         func() time.Time
	sleep         func(context.Context, time.Duration) error
	jitter        func(int64) int64
	logger        zerolog.Logger
	recoverPanics bool
}

type executorConfig struct {
	opts        ExecutorOptions
	staticSpecs []policy.WaiterSpec
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Provider      controlplane.SpecProvider
	Observer      observe.Observer
	Paths         classify.PathEvaluator
	ErrorTypes    *classify.ErrorTypes
	Codes         []classify.CodeExtractor
	Clock         func() time.Time
	Sleep         func(context.Context, time.Duration) error
	Jitter        func(n int64) int64
	Logger        *zerolog.Logger
	RecoverPanics bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// NewExecutor creates an Executor. Specs added with WithSpec are served by a
// StaticProvider unless WithProvider is also given.
func NewExecutor(opts ...ExecutorOption) *Executor {
	cfg := &executorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.opts.Provider == nil && len(cfg.staticSpecs) > 0 {
		cfg.opts.Provider = controlplane.NewStaticProvider(cfg.staticSpecs...)
	}

	return NewExecutorFromOptions(cfg.opts)
}

// NewExecutorFromOptions creates an Executor from a config struct, filling
// defaults for unset fields.
func NewExecutorFromOptions(opts ExecutorOptions) *Executor {
	e := &Executor{
		provider:      opts.Provider,
		observer:      opts.Observer,
		paths:         opts.Paths,
		errorTypes:    opts.ErrorTypes,
		codes:         opts.Codes,
		clock:         opts.Clock,
		sleep:         opts.Sleep,
		jitter:        opts.Jitter,
		logger:        zerolog.Nop(),
		recoverPanics: opts.RecoverPanics,
	}
	if opts.Logger != nil {
		e.logger = *opts.Logger
	}

	if internal.IsTypedNil(e.provider) {
		e.provider = &controlplane.StaticProvider{}
	}
	if internal.IsTypedNil(e.observer) {
		e.observer = observe.NoopObserver{}
	}
	if internal.IsTypedNil(e.paths) {
		e.paths = query.Default
	}
	if e.errorTypes == nil {
		e.errorTypes = classify.DefaultErrorTypes
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepWithContext
	}
	if e.jitter == nil {
		e.jitter = rand.Int64N
	}

	return e
}

// WithProvider sets the spec provider.
func WithProvider(p controlplane.SpecProvider) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Provider = p
	}
}

// WithSpec adds a static spec for a string key (e.g. "ec2.InstanceRunning").
// The spec is validated when a wait resolves it.
func WithSpec(key string, opts ...policy.Option) ExecutorOption {
	return WithSpecKey(policy.ParseKey(key), opts...)
}

// WithSpecKey adds a static spec for a structured key.
func WithSpecKey(key policy.Key, opts ...policy.Option) ExecutorOption {
	return func(c *executorConfig) {
		s := policy.WaiterSpec{Key: key, Meta: policy.Metadata{Source: policy.SpecSourceStatic}}
		for _, opt := range opts {
			if opt != nil {
				opt(&s)
			}
		}
		c.staticSpecs = append(c.staticSpecs, s)
	}
}

// WithSpecs adds already built specs.
func WithSpecs(specs ...policy.WaiterSpec) ExecutorOption {
	return func(c *executorConfig) {
		c.staticSpecs = append(c.staticSpecs, specs...)
	}
}

// WithObserver sets the observer.
func WithObserver(o observe.Observer) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Observer = o
	}
}

// WithPathEvaluator sets the evaluator for output and inputOutput paths.
// Default is query.Default (JMESPath).
func WithPathEvaluator(p classify.PathEvaluator) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Paths = p
	}
}

// WithErrorTypes sets the modeled error registry.
func WithErrorTypes(r *classify.ErrorTypes) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.ErrorTypes = r
	}
}

// WithCodeExtractors sets how error codes are read from attempt errors.
// Default is classify.APICodes.
func WithCodeExtractors(codes ...classify.CodeExtractor) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Codes = codes
	}
}

// WithClock sets the clock function.
func WithClock(f func() time.Time) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Clock = f
	}
}

// WithSleep sets the cancellable sleep used between attempts.
func WithSleep(f func(context.Context, time.Duration) error) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Sleep = f
	}
}

// WithJitter sets the random source for delay jitter. f(n) must return a
// value in [0, n).
func WithJitter(f func(n int64) int64) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Jitter = f
	}
}

// WithLogger sets the logger used for attempt logging.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Logger = &l
	}
}

// WithRecoverPanics sets whether to capture and report panics in user code.
func WithRecoverPanics(recover bool) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.RecoverPanics = recover
	}
}

// Spec resolves the normalized spec registered under key.
func (e *Executor) Spec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	spec, err := e.provider.GetSpec(ctx, key)
	if err != nil {
		return policy.WaiterSpec{}, &NoSpecError{Key: key, Err: err}
	}
	spec.Key = key
	spec, err = spec.Normalize()
	if err != nil {
		return policy.WaiterSpec{}, &NoSpecError{Key: key, Err: err}
	}
	return spec, nil
}

// ComputeDelay is ComputeDelay with the executor's jitter source.
func (e *Executor) ComputeDelay(attempt int64, minDelay, maxDelay, remaining time.Duration) (time.Duration, error) {
	return computeDelay(attempt, minDelay, maxDelay, remaining, e.jitter)
}

func (e *Executor) evaluator(spec policy.WaiterSpec) *classify.Evaluator {
	return &classify.Evaluator{
		Acceptors:  spec.Acceptors,
		Paths:      e.paths,
		ErrorTypes: e.errorTypes,
		Codes:      e.codes,
	}
}

func (e *Executor) ready() bool {
	return e != nil && e.provider != nil && e.observer != nil && e.paths != nil &&
		e.clock != nil && e.sleep != nil && e.jitter != nil
}
