package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/ai3/pkg/types"
)

type modelLog struct {
	samples []Record // windowed samples only, pruned lazily on read
}

// MemoryBackend is the default in-memory Telemetry backend: a mutex plus
// a per-model slice of recent samples, matching spec.md's "logical
// window" wording.
type MemoryBackend struct {
	mu  sync.Mutex
	log map[string]*modelLog
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{log: make(map[string]*modelLog)}
}

func (b *MemoryBackend) Append(_ context.Context, r Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.log[r.ModelID]
	if !ok {
		l = &modelLog{}
		b.log[r.ModelID] = l
	}
	l.samples = append(l.samples, r)
	return nil
}

func (b *MemoryBackend) Window(_ context.Context, modelID string, now time.Time) (types.TelemetryWindow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.log[modelID]
	if !ok {
		return types.TelemetryWindow{ModelID: modelID, HasSamples: false}, nil
	}

	cutoff := now.Add(-Window)
	kept := l.samples[:0:0]
	var latSum, tokIn, tokOut, cost float64
	var latCount, attempts, successes, errs int64
	for _, s := range l.samples {
		if s.At.Before(cutoff) {
			continue
		}
		kept = append(kept, s)
		attempts++
		if s.Success {
			successes++
		} else {
			errs++
		}
		latSum += s.LatencyMs
		latCount++
		tokIn += float64(s.TokensIn)
		tokOut += float64(s.TokensOut)
		cost += s.Cost
	}
	l.samples = kept

	w := types.TelemetryWindow{
		ModelID:    modelID,
		Attempts:   attempts,
		Successes:  successes,
		Errors:     errs,
		TokensIn:   int64(tokIn),
		TokensOut:  int64(tokOut),
		Cost:       cost,
		HasSamples: attempts > 0,
	}
	if latCount > 0 {
		w.AvgLatencyMs = latSum / float64(latCount)
	}
	return w, nil
}
