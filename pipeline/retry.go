package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/fwojciec/docextract"
)

// LM call retry policy: 2 retries beyond the initial attempt, exponential
// backoff from 500ms with ±20% jitter. The request is never altered between
// attempts; in particular temperature stays fixed.
const (
	lmMaxRetries    = 2
	lmBackoffBase   = 500 * time.Millisecond
	lmBackoffFactor = 2
	lmJitter        = 0.2
)

// DefaultCallTimeout bounds each individual LM call.
const DefaultCallTimeout = 60 * time.Second

// completeWithRetry issues one LM call with the retry policy, applying the
// per-call deadline to each attempt. onCall is invoked before every attempt
// for cost accounting.
func completeWithRetry(ctx context.Context, completer docextract.Completer, req docextract.CompletionRequest, callTimeout time.Duration, onCall func()) (*docextract.CompletionResponse, error) {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	backoff := lmBackoffBase
	var lastErr error

	for attempt := 0; attempt <= lmMaxRetries; attempt++ {
		if attempt > 0 {
			delay := jitter(backoff)
			backoff *= lmBackoffFactor
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if onCall != nil {
			onCall()
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err := completer.Complete(callCtx, req)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// jitter spreads a delay by ±lmJitter.
func jitter(d time.Duration) time.Duration {
	spread := 1 - lmJitter + 2*lmJitter*rand.Float64()
	return time.Duration(float64(d) * spread)
}
