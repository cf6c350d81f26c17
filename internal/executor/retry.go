package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// RetryPolicy wraps a single fallible operation with bounded retries,
// exponential backoff, and additive jitter. Permanent failures (see
// IsPermanent) abort immediately regardless of remaining attempts.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	Jitter      time.Duration

	log logr.Logger
}

// NewRetryPolicy returns a policy that allows maxAttempts executions of an
// operation, doubling the delay between attempts starting from base and
// adding a random jitter in [0, jitter) before each sleep.
func NewRetryPolicy(maxAttempts int, base, jitter time.Duration, log logr.Logger) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BackoffBase: base,
		Jitter:      jitter,
		log:         log,
	}
}

// Execute runs op under the policy and returns its output. The returned
// error is the last attempt's error: classified permanent when retrying was
// aborted, transient when attempts were exhausted. ctx is honored at attempt
// boundaries only; an in-flight attempt always runs to completion.
func (p *RetryPolicy) Execute(ctx context.Context, name string, op func(ctx context.Context) (string, error)) (string, error) {
	var out string
	attempt := 0

	operation := func() error {
		attempt++
		v, err := op(ctx)
		if err != nil {
			if IsPermanent(err) {
				p.log.Info("aborting retries", "op", name, "attempt", attempt, "class", Classify(err).String(), "error", err.Error())
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}

	notify := func(err error, delay time.Duration) {
		p.log.Info("attempt failed, backing off", "op", name, "attempt", attempt, "delay", delay.String(), "error", err.Error())
	}

	b := p.newBackOff()
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		if attempt >= p.MaxAttempts && !IsPermanent(err) {
			p.log.Info("attempts exhausted", "op", name, "attempts", attempt, "error", err.Error())
		}
		return "", err
	}
	return out, nil
}

func (p *RetryPolicy) newBackOff() *doublingBackOff {
	return &doublingBackOff{
		initial:   p.BackoffBase,
		jitter:    p.Jitter,
		retries:   p.MaxAttempts - 1,
		next:      p.BackoffBase,
		remaining: p.MaxAttempts - 1,
	}
}

// doublingBackOff is a backoff.BackOff with pure exponential doubling, no
// delay cap, and additive jitter. It stops after the configured number of
// retries so total attempts stay bounded by RetryPolicy.MaxAttempts.
type doublingBackOff struct {
	initial   time.Duration
	jitter    time.Duration
	retries   int
	next      time.Duration
	remaining int
}

func (b *doublingBackOff) NextBackOff() time.Duration {
	if b.remaining <= 0 {
		return backoff.Stop
	}
	b.remaining--
	d := b.next
	b.next *= 2
	if b.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.jitter)))
	}
	return d
}

func (b *doublingBackOff) Reset() {
	b.next = b.initial
	b.remaining = b.retries
}
