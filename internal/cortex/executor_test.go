// File path: internal/cortex/executor_test.go
package cortex

import (
	"context"
	"errors"
	"testing"
)

type recordingReporter struct {
	outcomes []Outcome
}

func (r *recordingReporter) RecordOutcome(ctx context.Context, outcome Outcome) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestExecutorSuccess(t *testing.T) {
	reporter := &recordingReporter{}
	exec := NewExecutor(RetryPolicy{MaxAttempts: 2}, reporter)

	outcome := exec.Do(context.Background(), Operation{
		Entity: "program", ID: "PR_1", Desc: "create program folder",
		Call: func(ctx context.Context) error { return nil },
	})
	if !outcome.OK() || outcome.Attempts != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(reporter.outcomes) != 1 || !reporter.outcomes[0].OK() {
		t.Fatalf("reporter outcomes = %+v", reporter.outcomes)
	}
}

func TestExecutorRetriesTransportFailure(t *testing.T) {
	exec := NewExecutor(RetryPolicy{MaxAttempts: 2}, nil)

	calls := 0
	outcome := exec.Do(context.Background(), Operation{
		Entity: "program", ID: "PR_1", Desc: "create program folder",
		Call: func(ctx context.Context) error {
			calls++
			return &StatusError{Status: 500, URL: "http://test"}
		},
	})
	if outcome.OK() {
		t.Fatal("always-failing call reported success")
	}
	if calls != 2 || outcome.Attempts != 2 {
		t.Fatalf("calls = %d, attempts = %d, want 2", calls, outcome.Attempts)
	}
}

func TestExecutorRecoversOnSecondAttempt(t *testing.T) {
	exec := NewExecutor(RetryPolicy{MaxAttempts: 2}, nil)

	calls := 0
	outcome := exec.Do(context.Background(), Operation{
		Entity: "work", ID: "WORK_44", Desc: "update work",
		Call: func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return &StatusError{Status: 502, URL: "http://test"}
			}
			return nil
		},
	})
	if !outcome.OK() || outcome.Attempts != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestExecutorDoesNotRetryRemoteFailure(t *testing.T) {
	exec := NewExecutor(RetryPolicy{MaxAttempts: 3}, nil)

	calls := 0
	outcome := exec.Do(context.Background(), Operation{
		Entity: "source", ID: "100021", Desc: "update source",
		Call: func(ctx context.Context) error {
			calls++
			return ErrRemoteFailure
		},
	})
	if calls != 1 || outcome.Attempts != 1 {
		t.Fatalf("calls = %d, attempts = %d, want 1", calls, outcome.Attempts)
	}
	if !errors.Is(outcome.Err, ErrRemoteFailure) {
		t.Fatalf("err = %v", outcome.Err)
	}
}

func TestRetryPolicyNormalized(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 0, Delay: -1}.normalized()
	if policy.MaxAttempts != 1 || policy.Delay != 0 {
		t.Fatalf("normalized = %+v", policy)
	}
	if def := DefaultRetryPolicy(); def.MaxAttempts != 2 {
		t.Fatalf("default attempts = %d", def.MaxAttempts)
	}
}
