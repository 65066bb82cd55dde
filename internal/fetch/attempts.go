package fetch

import (
	"context"
	"sync/atomic"
)

// Attempts accumulates the retries the fetches under one run consumed.
// The orchestrator attaches one to the run's context, so concurrent
// runs sharing a single Engine each observe their own count. The
// pattern follows net/http/httptrace: per-call instrumentation travels
// with the context, not the client.
type Attempts struct {
	retries atomic.Int64
}

// Retries reports the retries recorded so far.
func (a *Attempts) Retries() int {
	return int(a.retries.Load())
}

// AddRetries adds n retries to the recorder.
func (a *Attempts) AddRetries(n int) {
	a.retries.Add(int64(n))
}

type attemptsKey struct{}

// WithAttempts attaches an attempt recorder to the context. Fetches
// made with the returned context record their retries into a.
func WithAttempts(ctx context.Context, a *Attempts) context.Context {
	return context.WithValue(ctx, attemptsKey{}, a)
}

// AttemptsFromContext returns the context's attempt recorder, or nil.
func AttemptsFromContext(ctx context.Context) *Attempts {
	a, _ := ctx.Value(attemptsKey{}).(*Attempts)
	return a
}

// recordRetries adds n to the context's recorder, if any.
func recordRetries(ctx context.Context, n int) {
	if a := AttemptsFromContext(ctx); a != nil {
		a.AddRetries(n)
	}
}
