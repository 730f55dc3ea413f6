package classify

import (
	"context"
	"errors"
	"testing"
)

func TestChain_FirstOpinionWins(t *testing.T) {
	abstain := ClassifierFunc(func(context.Context, any, any, error) (Decision, error) {
		return Decision{Kind: DecisionUnknown}, nil
	})
	succeed := ClassifierFunc(func(context.Context, any, any, error) (Decision, error) {
		return Decision{Kind: DecisionSuccess, Reason: "second"}, nil
	})

	d, err := Chain{nil, abstain, succeed}.Classify(context.Background(), nil, nil, nil)
	if err != nil || d.Kind != DecisionSuccess || d.Reason != "second" {
		t.Fatalf("decision=%+v err=%v", d, err)
	}

	d, err = Chain{abstain}.Classify(context.Background(), nil, nil, nil)
	if err != nil || d.Kind != DecisionUnknown {
		t.Fatalf("decision=%+v err=%v, want unknown", d, err)
	}
}

func TestChain_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := ClassifierFunc(func(context.Context, any, any, error) (Decision, error) {
		return Decision{}, boom
	})
	called := false
	next := ClassifierFunc(func(context.Context, any, any, error) (Decision, error) {
		called = true
		return Decision{Kind: DecisionSuccess}, nil
	})

	if _, err := (Chain{failing, next}).Classify(context.Background(), nil, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
	if called {
		t.Fatalf("classifier after an error should not run")
	}
}

func TestRetryable(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		retry bool
		err   error
		want  DecisionKind
	}{
		{name: "retry", retry: true, want: DecisionRetry},
		{name: "done", retry: false, want: DecisionSuccess},
		{name: "error", err: boom, want: DecisionFailure},
	}

	for _, tc := range cases {
		c := Retryable(func(context.Context, any, any, error) (bool, error) { return tc.retry, tc.err })
		d, err := c.Classify(context.Background(), nil, nil, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if d.Kind != tc.want {
			t.Fatalf("%s: kind=%v, want %v", tc.name, d.Kind, tc.want)
		}
		if tc.err != nil && d.Err != tc.err {
			t.Fatalf("%s: decision error=%v, want %v", tc.name, d.Err, tc.err)
		}
	}
}
