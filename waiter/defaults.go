package waiter

import (
	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/query"
)

// NewDefaultExecutor creates an Executor with the defaults most callers want:
//   - an empty StaticProvider (register specs with WithSpec or WithProvider),
//   - JMESPath path evaluation through query.Default,
//   - classify.DefaultErrorTypes and classify.APICodes for errorType acceptors,
//   - a NoopObserver and the real clock.
func NewDefaultExecutor(opts ...ExecutorOption) *Executor {
	defaults := []ExecutorOption{
		WithObserver(observe.NoopObserver{}),
		WithPathEvaluator(query.Default),
		WithErrorTypes(classify.DefaultErrorTypes),
		WithCodeExtractors(classify.APICodes),
	}
	return NewExecutor(append(defaults, opts...)...)
}
