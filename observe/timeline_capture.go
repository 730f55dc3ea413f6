package observe

import (
	"context"
	"sync/atomic"
)

// TimelineCapture receives the timeline of one wait once it terminates.
type TimelineCapture struct {
	tl atomic.Pointer[Timeline]
}

// Timeline returns the captured timeline, or nil while the wait is still
// running. It is safe for concurrent use.
func (c *TimelineCapture) Timeline() *Timeline {
	if c == nil {
		return nil
	}
	return c.tl.Load()
}

// Outcome returns the captured terminal state, or OutcomeUnknown.
func (c *TimelineCapture) Outcome() Outcome {
	if tl := c.Timeline(); tl != nil {
		return tl.Outcome
	}
	return OutcomeUnknown
}

type timelineCaptureKey struct{}

type disabledTimelineCapture struct{}

// RecordTimeline returns a derived context that requests timeline capture
// for the next wait, plus the holder the timeline is published to.
func RecordTimeline(ctx context.Context) (context.Context, *TimelineCapture) {
	if ctx == nil {
		ctx = context.Background()
	}
	capture := &TimelineCapture{}
	return context.WithValue(ctx, timelineCaptureKey{}, capture), capture
}

// TimelineCaptureFromContext returns the capture requested on ctx, if any.
func TimelineCaptureFromContext(ctx context.Context) (*TimelineCapture, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(timelineCaptureKey{}).(*TimelineCapture)
	return v, ok && v != nil
}

// WithoutTimelineCapture masks any capture on ctx. The waiter loop applies
// it to attempt contexts so a wait nested inside an invoker does not publish
// into the outer capture.
func WithoutTimelineCapture(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, timelineCaptureKey{}, disabledTimelineCapture{})
}

// StoreTimelineCapture publishes a finished timeline. Nil arguments are
// ignored.
func StoreTimelineCapture(capture *TimelineCapture, tl *Timeline) {
	if capture == nil || tl == nil {
		return
	}
	capture.tl.Store(tl)
}
