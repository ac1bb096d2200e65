package adapters

import (
	"context"
	"time"

	"github.com/your-org/ai3/internal/retry"
	"github.com/your-org/ai3/pkg/types"
)

// ExecutePolicy is the retry shaping spec.md §4.4 mandates for every
// Provider Adapter: exponential backoff, base 250ms, capped at 3
// attempts total.
var ExecutePolicy = retry.Policy{
	MaxAttempts: 3,
	Base:        250 * time.Millisecond,
	Strategy:    retry.BackoffExponential,
}

// Execute runs one Provider.Generate call under a per-attempt deadline,
// retrying transient/timeout/rate-limited failures per ExecutePolicy and
// normalizing the final failure into a *types.ProviderError. It never
// invokes the Router or Verifier (spec.md §4.4) — the caller (the
// Scheduler) owns routing and verification.
func Execute(ctx context.Context, p Provider, modelID string, req GenerateRequest, timeout time.Duration) (GenerateResponse, time.Duration, *types.ProviderError) {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	var resp GenerateResponse
	var totalLatency time.Duration
	var lastClass ErrorClass

	policy := ExecutePolicy
	policy.Retryable = func(error) bool { return lastClass.Retryable() }

	err := retry.Execute(ctx, policy, func(attemptCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(attemptCtx, timeout)
		defer cancel()

		started := time.Now()
		r, genErr := p.Generate(callCtx, req)
		elapsed := time.Since(started)
		totalLatency += elapsed

		if genErr == nil {
			resp = r
			return nil
		}
		if callCtx.Err() == context.DeadlineExceeded {
			lastClass = ClassTimeout
		} else {
			lastClass = Classify(genErr)
		}
		return genErr
	})

	if err == nil {
		return resp, totalLatency, nil
	}

	kind := classToProviderErrorKind(lastClass)
	return GenerateResponse{}, totalLatency, &types.ProviderError{
		Kind:      kind,
		ModelID:   modelID,
		Cause:     err,
		Retryable: lastClass.Retryable(),
	}
}

func classToProviderErrorKind(c ErrorClass) types.ProviderErrorKind {
	switch c {
	case ClassPermanent:
		return types.ProviderErrorPermanent
	case ClassRateLimited:
		return types.ProviderErrorRateLimited
	case ClassAuthFailed:
		return types.ProviderErrorAuthFailed
	case ClassTimeout:
		return types.ProviderErrorTimeout
	default:
		return types.ProviderErrorTransient
	}
}
