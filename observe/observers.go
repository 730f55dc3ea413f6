package observe

import (
	"context"

	"github.com/aponysus/await/internal"
	"github.com/aponysus/await/policy"
)

// BaseObserver implements Observer with no-op methods. Embed it to handle
// only some of the waiter events.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, policy.Key, policy.WaiterSpec) {}
func (BaseObserver) OnAttempt(context.Context, policy.Key, AttemptRecord)   {}
func (BaseObserver) OnSuccess(context.Context, policy.Key, Timeline)        {}
func (BaseObserver) OnFailure(context.Context, policy.Key, Timeline)        {}

// NoopObserver discards every event.
type NoopObserver = BaseObserver

// MultiObserver delivers each waiter event to every observer in order: one
// OnStart when the spec is resolved, one OnAttempt per classified attempt,
// then exactly one of OnSuccess or OnFailure with the finished timeline.
// Nil entries are skipped.
type MultiObserver struct {
	Observers []Observer
}

// Multi combines observers, dropping nil ones and flattening nested
// MultiObservers. It returns NoopObserver for none and the observer itself
// for one.
func Multi(observers ...Observer) Observer {
	var flat []Observer
	for _, o := range observers {
		switch o := o.(type) {
		case MultiObserver:
			flat = append(flat, o.Observers...)
		case *MultiObserver:
			if o != nil {
				flat = append(flat, o.Observers...)
			}
		default:
			flat = append(flat, o)
		}
	}

	kept := flat[:0]
	for _, o := range flat {
		if !internal.IsTypedNil(o) {
			kept = append(kept, o)
		}
	}

	switch len(kept) {
	case 0:
		return NoopObserver{}
	case 1:
		return kept[0]
	}
	return MultiObserver{Observers: kept}
}

func (m MultiObserver) each(fn func(Observer)) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			fn(o)
		}
	}
}

func (m MultiObserver) OnStart(ctx context.Context, key policy.Key, spec policy.WaiterSpec) {
	m.each(func(o Observer) { o.OnStart(ctx, key, spec) })
}

func (m MultiObserver) OnAttempt(ctx context.Context, key policy.Key, rec AttemptRecord) {
	m.each(func(o Observer) { o.OnAttempt(ctx, key, rec) })
}

func (m MultiObserver) OnSuccess(ctx context.Context, key policy.Key, tl Timeline) {
	m.each(func(o Observer) { o.OnSuccess(ctx, key, tl) })
}

func (m MultiObserver) OnFailure(ctx context.Context, key policy.Key, tl Timeline) {
	m.each(func(o Observer) { o.OnFailure(ctx, key, tl) })
}
