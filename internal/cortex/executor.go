// File path: internal/cortex/executor.go
package cortex

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nyparchive/cortex-sync/internal/common"
)

// RetryPolicy bounds how a failed remote mutation is retried: a fixed
// number of attempts with a fixed delay between them. Tests inject a
// zero delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the production bound: two attempts, two
// seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: 2 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Operation is one remote mutation with the identifying context every
// attempt is logged under.
type Operation struct {
	Entity string
	ID     string
	Desc   string
	Call   func(ctx context.Context) error
}

// Outcome records how an operation ended. A failed outcome is never
// fatal to the run; callers skip and continue.
type Outcome struct {
	Entity   string
	ID       string
	Desc     string
	Attempts int
	Err      error
}

// OK reports whether the operation eventually succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Reporter receives every outcome for end-of-run accounting.
type Reporter interface {
	RecordOutcome(ctx context.Context, outcome Outcome)
}

// Executor wraps remote mutations with bounded retry, structured
// failure logging and continuation-on-failure semantics.
type Executor struct {
	policy   RetryPolicy
	logger   *slog.Logger
	reporter Reporter
}

// NewExecutor builds an executor with the given policy. The reporter is
// optional.
func NewExecutor(policy RetryPolicy, reporter Reporter) *Executor {
	return &Executor{
		policy:   policy.normalized(),
		logger:   common.Logger(),
		reporter: reporter,
	}
}

// Do runs the operation under the retry policy. Transport and HTTP
// failures are retried until the attempt budget is spent; application
// failures are surfaced immediately. Every attempt is logged with the
// entity type and identifier.
func (e *Executor) Do(ctx context.Context, op Operation) Outcome {
	outcome := Outcome{Entity: op.Entity, ID: op.ID, Desc: op.Desc}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(e.policy.Delay),
			uint64(e.policy.MaxAttempts-1),
		),
		ctx,
	)

	outcome.Err = backoff.Retry(func() error {
		outcome.Attempts++
		err := op.Call(ctx)
		if err == nil {
			return nil
		}
		e.logger.Error("cortex: call failed",
			"desc", op.Desc, "entity", op.Entity, "id", op.ID,
			"attempt", outcome.Attempts, "error", err)
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	if outcome.Err == nil {
		e.logger.Info("cortex: call succeeded",
			"desc", op.Desc, "entity", op.Entity, "id", op.ID)
	} else {
		e.logger.Error("cortex: giving up",
			"desc", op.Desc, "entity", op.Entity, "id", op.ID,
			"attempts", outcome.Attempts, "error", outcome.Err)
	}
	if e.reporter != nil {
		e.reporter.RecordOutcome(ctx, outcome)
	}
	return outcome
}
