package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
)

type countingObserver struct {
	observe.BaseObserver
	attempts int
	failures int
}

func (c *countingObserver) OnAttempt(context.Context, policy.Key, observe.AttemptRecord) {
	c.attempts++
}

func (c *countingObserver) OnFailure(context.Context, policy.Key, observe.Timeline) {
	c.failures++
}

func TestMultiObserver_FansOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	m := observe.MultiObserver{Observers: []observe.Observer{a, nil, b}}
	ctx := context.Background()
	key := policy.Key{Name: "w"}

	m.OnStart(ctx, key, policy.WaiterSpec{Key: key})
	m.OnAttempt(ctx, key, observe.AttemptRecord{Attempt: 1})
	m.OnAttempt(ctx, key, observe.AttemptRecord{Attempt: 2})
	m.OnSuccess(ctx, key, observe.Timeline{Key: key})
	m.OnFailure(ctx, key, observe.Timeline{Key: key})

	for i, c := range []*countingObserver{a, b} {
		if c.attempts != 2 || c.failures != 1 {
			t.Fatalf("observer %d: attempts=%d failures=%d", i, c.attempts, c.failures)
		}
	}
}

func TestMulti_Combines(t *testing.T) {
	var typedNil *countingObserver

	if _, ok := observe.Multi().(observe.NoopObserver); !ok {
		t.Fatalf("expected NoopObserver for no observers")
	}
	if _, ok := observe.Multi(nil, typedNil).(observe.NoopObserver); !ok {
		t.Fatalf("expected NoopObserver when every observer is nil")
	}

	a, b, c := &countingObserver{}, &countingObserver{}, &countingObserver{}
	if got := observe.Multi(nil, a); got != observe.Observer(a) {
		t.Fatalf("expected the single observer back, got %T", got)
	}

	m, ok := observe.Multi(a, observe.MultiObserver{Observers: []observe.Observer{b, typedNil}}, c).(observe.MultiObserver)
	if !ok {
		t.Fatalf("expected MultiObserver")
	}
	if len(m.Observers) != 3 {
		t.Fatalf("observers=%d, want 3 after flattening", len(m.Observers))
	}

	m.OnAttempt(context.Background(), policy.Key{Name: "w"}, observe.AttemptRecord{Attempt: 1})
	for i, o := range []*countingObserver{a, b, c} {
		if o.attempts != 1 {
			t.Fatalf("observer %d: attempts=%d, want 1", i, o.attempts)
		}
	}
}

func TestMultiObserver_SkipsTypedNil(t *testing.T) {
	var typedNil *countingObserver
	a := &countingObserver{}
	m := observe.MultiObserver{Observers: []observe.Observer{typedNil, a}}
	m.OnFailure(context.Background(), policy.Key{Name: "w"}, observe.Timeline{})
	if a.failures != 1 {
		t.Fatalf("failures=%d, want 1", a.failures)
	}
}

func TestNoopObserver_HandlesEvents(t *testing.T) {
	var obs observe.Observer = observe.NoopObserver{}
	ctx := context.Background()
	key := policy.Key{Name: "w"}

	obs.OnStart(ctx, key, policy.WaiterSpec{})
	obs.OnAttempt(ctx, key, observe.AttemptRecord{})
	obs.OnSuccess(ctx, key, observe.Timeline{})
	obs.OnFailure(ctx, key, observe.Timeline{})
}

func TestAttemptInfo_RoundTrip(t *testing.T) {
	if _, ok := observe.AttemptFromContext(context.Background()); ok {
		t.Fatalf("expected no attempt info on a bare context")
	}
	ctx := observe.WithAttemptInfo(context.Background(), observe.AttemptInfo{Attempt: 3, Waiter: "w"})
	info, ok := observe.AttemptFromContext(ctx)
	if !ok || info.Attempt != 3 || info.Waiter != "w" {
		t.Fatalf("info=%+v ok=%v", info, ok)
	}
}

func TestTimelineCapture(t *testing.T) {
	ctx, capture := observe.RecordTimeline(context.Background())
	got, ok := observe.TimelineCaptureFromContext(ctx)
	if !ok || got != capture {
		t.Fatalf("expected capture from context")
	}
	if capture.Timeline() != nil || capture.Outcome() != observe.OutcomeUnknown {
		t.Fatalf("expected empty capture before store")
	}

	observe.StoreTimelineCapture(capture, &observe.Timeline{Outcome: observe.OutcomeTimedOut})
	if capture.Outcome() != observe.OutcomeTimedOut {
		t.Fatalf("outcome=%q, want timed_out", capture.Outcome())
	}

	masked := observe.WithoutTimelineCapture(ctx)
	if _, ok := observe.TimelineCaptureFromContext(masked); ok {
		t.Fatalf("expected capture to be masked")
	}

	var nilCapture *observe.TimelineCapture
	if nilCapture.Timeline() != nil {
		t.Fatalf("expected nil timeline from nil capture")
	}
}

func TestNewInvocationID_Unique(t *testing.T) {
	a, b := observe.NewInvocationID(), observe.NewInvocationID()
	if a == "" || a == b {
		t.Fatalf("ids %q and %q should be distinct and non-empty", a, b)
	}
}

func TestLogObserver_WritesEvents(t *testing.T) {
	var buf bytes.Buffer
	obs := observe.NewLogObserver(zerolog.New(&buf).Level(zerolog.DebugLevel))
	ctx := context.Background()
	key := policy.Key{Namespace: "ddb", Name: "TableExists"}
	start := time.Unix(0, 0)

	obs.OnAttempt(ctx, key, observe.AttemptRecord{
		Attempt:   2,
		StartTime: start,
		EndTime:   start.Add(time.Second),
		Decision:  classify.Decision{Kind: classify.DecisionRetry},
		Err:       errors.New("not yet"),
	})
	obs.OnFailure(ctx, key, observe.Timeline{
		Start:    start,
		End:      start.Add(time.Minute),
		Outcome:  observe.OutcomeTimedOut,
		FinalErr: errors.New("exceeded max wait time for TableExists waiter"),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2:\n%s", len(lines), buf.String())
	}

	var attempt map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &attempt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if attempt["message"] != "waiter attempt" || attempt["waiter"] != "ddb.TableExists" || attempt["decision"] != "retry" {
		t.Fatalf("unexpected attempt event: %v", attempt)
	}
	if attempt["component"] != "waiter" || attempt["attempt_error"] != "not yet" {
		t.Fatalf("unexpected attempt fields: %v", attempt)
	}

	var failure map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &failure); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if failure["level"] != "warn" || failure["outcome"] != "timed_out" {
		t.Fatalf("unexpected failure event: %v", failure)
	}
}
