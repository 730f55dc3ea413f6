package waiter

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	globalExec *Executor
	globalOnce sync.Once
)

// DefaultExecutor returns the shared, lazy-initialized default executor.
// It uses NewDefaultExecutor() if SetGlobal has not been called.
func DefaultExecutor() *Executor {
	globalOnce.Do(func() {
		if globalExec == nil {
			globalExec = NewDefaultExecutor()
		}
	})
	return globalExec
}

// SetGlobal configures the default executor.
// It must be called before DefaultExecutor() is used (e.g. at startup).
// If called after initialization, it logs a warning and does nothing.
func SetGlobal(exec *Executor) {
	if exec == nil {
		return
	}

	// Not strictly race-free against DefaultExecutor; enough for startup-time misuse.
	if globalExec != nil {
		log.Warn().Msg("waiter: SetGlobal called after global executor already initialized; ignoring")
		return
	}

	globalOnce.Do(func() {
		globalExec = exec
	})
}
