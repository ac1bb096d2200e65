package adapters

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/your-org/ai3/pkg/types"
)

type flakyProvider struct {
	mu     sync.Mutex
	calls  int
	failN  int
	err    error
	result GenerateResponse
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if call <= p.failN {
		return GenerateResponse{}, p.err
	}
	return p.result, nil
}

func TestExecuteSucceedsOnFirstTry(t *testing.T) {
	p := &flakyProvider{result: GenerateResponse{Text: "ok"}}
	resp, _, err := Execute(context.Background(), p, "model-a", GenerateRequest{Model: "model-a"}, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 call, got %d", p.calls)
	}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	p := &flakyProvider{
		failN:  1,
		err:    &StatusError{Code: http.StatusServiceUnavailable},
		result: GenerateResponse{Text: "recovered"},
	}
	resp, _, err := Execute(context.Background(), p, "model-a", GenerateRequest{Model: "model-a"}, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Text != "recovered" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if p.calls < 2 {
		t.Fatalf("expected at least 2 calls after a transient failure, got %d", p.calls)
	}
}

func TestExecuteStopsRetryingOnPermanentFailure(t *testing.T) {
	p := &flakyProvider{
		failN: 10,
		err:   &StatusError{Code: http.StatusBadRequest},
	}
	_, _, err := Execute(context.Background(), p, "model-a", GenerateRequest{Model: "model-a"}, 0)
	if err == nil {
		t.Fatal("expected a provider error")
	}
	if err.Kind != types.ProviderErrorPermanent {
		t.Fatalf("expected permanent error kind, got %s", err.Kind)
	}
	if p.calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", p.calls)
	}
}

func TestExecuteNormalizesAuthFailure(t *testing.T) {
	p := &flakyProvider{failN: 10, err: &StatusError{Code: http.StatusUnauthorized}}
	_, _, err := Execute(context.Background(), p, "model-a", GenerateRequest{Model: "model-a"}, 0)
	if err == nil || err.Kind != types.ProviderErrorAuthFailed {
		t.Fatalf("expected auth-failed kind, got %v", err)
	}
	if err.ModelID != "model-a" {
		t.Fatalf("expected model id propagated, got %s", err.ModelID)
	}
}

func TestExecuteHonorsTimeoutDeadline(t *testing.T) {
	p := &slowProvider{delay: 50 * time.Millisecond}
	_, _, err := Execute(context.Background(), p, "model-a", GenerateRequest{Model: "model-a"}, 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if err.Kind != types.ProviderErrorTimeout {
		t.Fatalf("expected timeout kind, got %s", err.Kind)
	}
}

type slowProvider struct {
	delay time.Duration
}

func (p *slowProvider) Name() string { return "slow" }

func (p *slowProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	select {
	case <-time.After(p.delay):
		return GenerateResponse{Text: "too slow"}, nil
	case <-ctx.Done():
		return GenerateResponse{}, ctx.Err()
	}
}

func TestClassifyMapsStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorClass
	}{
		{&StatusError{Code: http.StatusTooManyRequests}, ClassRateLimited},
		{&StatusError{Code: http.StatusUnauthorized}, ClassAuthFailed},
		{&StatusError{Code: http.StatusRequestTimeout}, ClassTimeout},
		{&StatusError{Code: http.StatusInternalServerError}, ClassTransient},
		{&StatusError{Code: http.StatusBadRequest}, ClassPermanent},
		{errors.New("connection refused"), ClassTransient},
		{ErrMissingAPIKey, ClassAuthFailed},
		{ErrEmptyPrompt, ClassPermanent},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
