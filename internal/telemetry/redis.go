package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/ai3/pkg/types"
)

// RedisBackend stores per-model samples in a Redis sorted set (score =
// unix millis of the sample), pruning samples older than Window on every
// read via ZREMRANGEBYSCORE. Attempts/Successes/Errors are derived from
// the surviving members of that same set, not a separate lifetime
// counter, so the Window read reflects the same rolling horizon for
// every field. Grounded on the teacher's internal/coordinator/redis.go
// client-construction pattern.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBackend(redisURL, prefix string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: ping redis: %w", err)
	}
	if prefix == "" {
		prefix = "ai3:telemetry"
	}
	return &RedisBackend{client: client, prefix: prefix}, nil
}

// NewRedisBackendFromClient wraps an existing client (used by tests with
// miniredis, grounded on the teacher's coordinator_redis_test.go).
func NewRedisBackendFromClient(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "ai3:telemetry"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) samplesKey(modelID string) string { return b.prefix + ":samples:" + modelID }

func (b *RedisBackend) Append(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("telemetry: marshal record: %w", err)
	}

	if err := b.client.ZAdd(ctx, b.samplesKey(r.ModelID), redis.Z{
		Score:  float64(r.At.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("telemetry: append sample: %w", err)
	}
	return nil
}

func (b *RedisBackend) Window(ctx context.Context, modelID string, now time.Time) (types.TelemetryWindow, error) {
	cutoff := now.Add(-Window)
	if err := b.client.ZRemRangeByScore(ctx, b.samplesKey(modelID), "-inf", fmt.Sprintf("%d", cutoff.UnixMilli())).Err(); err != nil {
		return types.TelemetryWindow{}, fmt.Errorf("telemetry: prune samples: %w", err)
	}

	members, err := b.client.ZRange(ctx, b.samplesKey(modelID), 0, -1).Result()
	if err != nil {
		return types.TelemetryWindow{}, fmt.Errorf("telemetry: read samples: %w", err)
	}

	w := types.TelemetryWindow{ModelID: modelID}
	var latSum, tokIn, tokOut, cost float64
	var latCount int64
	for _, m := range members {
		var r Record
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			continue
		}
		w.Attempts++
		if r.Success {
			w.Successes++
		} else {
			w.Errors++
		}
		latSum += r.LatencyMs
		latCount++
		tokIn += float64(r.TokensIn)
		tokOut += float64(r.TokensOut)
		cost += r.Cost
	}
	w.HasSamples = w.Attempts > 0
	w.TokensIn = int64(tokIn)
	w.TokensOut = int64(tokOut)
	w.Cost = cost
	if latCount > 0 {
		w.AvgLatencyMs = latSum / float64(latCount)
	}
	return w, nil
}
