// Package stubprovider implements a deterministic adapters.Provider used
// across Planner/Verifier/Assembler/Scheduler tests, grounded on the
// teacher's internal/app.deterministicAgent: behavior is selected by a
// prefix on the requested model id rather than by hitting a real
// backend.
package stubprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-org/ai3/pkg/adapters"
)

// Provider is a deterministic, in-memory adapters.Provider. Responses
// can be scripted per model id via ScriptModel; unscripted calls fall
// back to prefix conventions on the model id (fail_, flaky_, refuse_,
// empty_) mirroring the teacher's test fixtures.
type Provider struct {
	name string

	mu      sync.Mutex
	script  map[string][]Response
	index   map[string]int
	attempt map[string]int

	inFlight    int64
	maxInFlight int64

	// delay, when set, holds Generate open long enough for concurrent
	// callers to actually overlap, so MaxConcurrentCalls reflects real
	// contention instead of whatever the goroutine scheduler happened to
	// interleave on a near-instant call.
	delay time.Duration
}

// SetDelay holds every subsequent Generate call open for d before
// returning, giving concurrent callers a real window to overlap.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Response is one scripted Provider.Generate outcome.
type Response struct {
	Text string
	Err  error
}

func New(name string) *Provider {
	return &Provider{
		name:    name,
		script:  make(map[string][]Response),
		index:   make(map[string]int),
		attempt: make(map[string]int),
	}
}

func (p *Provider) Name() string { return p.name }

// ScriptModel queues successive responses for a given model id: the Nth
// call to Generate with that model returns the Nth scripted response;
// extra calls repeat the last one.
func (p *Provider) ScriptModel(modelID string, responses ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script[modelID] = responses
}

// MaxConcurrentCalls reports the highest number of Generate calls this
// Provider observed in flight at once, used by tests to assert that a
// Scheduler concurrency cap actually held rather than just eventually
// completing every task.
func (p *Provider) MaxConcurrentCalls() int64 {
	return atomic.LoadInt64(&p.maxInFlight)
}

func (p *Provider) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	select {
	case <-ctx.Done():
		return adapters.GenerateResponse{}, ctx.Err()
	default:
	}

	n := atomic.AddInt64(&p.inFlight, 1)
	defer atomic.AddInt64(&p.inFlight, -1)
	for {
		prev := atomic.LoadInt64(&p.maxInFlight)
		if n <= prev || atomic.CompareAndSwapInt64(&p.maxInFlight, prev, n) {
			break
		}
	}

	p.mu.Lock()
	p.attempt[req.Model]++
	attempt := p.attempt[req.Model]
	scripted, ok := p.script[req.Model]
	delay := p.delay
	var resp Response
	if ok && len(scripted) > 0 {
		idx := p.index[req.Model]
		if idx >= len(scripted) {
			idx = len(scripted) - 1
		}
		resp = scripted[idx]
		if p.index[req.Model] < len(scripted)-1 {
			p.index[req.Model]++
		}
	}
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return adapters.GenerateResponse{}, ctx.Err()
		}
	}

	if ok {
		if resp.Err != nil {
			return adapters.GenerateResponse{}, resp.Err
		}
		return textResponse(resp.Text), nil
	}

	switch {
	case strings.HasPrefix(req.Model, "fail_"):
		return adapters.GenerateResponse{}, fmt.Errorf("stub provider: forced failure for %s", req.Model)
	case strings.HasPrefix(req.Model, "flaky_") && attempt == 1:
		return adapters.GenerateResponse{}, fmt.Errorf("stub provider: forced transient failure for %s", req.Model)
	case strings.HasPrefix(req.Model, "refuse_"):
		return textResponse("I cannot help with that request."), nil
	case strings.HasPrefix(req.Model, "empty_"):
		return textResponse(""), nil
	}

	return textResponse(fmt.Sprintf("stub response to: %s", req.Prompt)), nil
}

func textResponse(text string) adapters.GenerateResponse {
	return adapters.GenerateResponse{
		Text:         text,
		InputTokens:  len(strings.Fields(text)) + 1,
		OutputTokens: len(strings.Fields(text)),
	}
}
