package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t,
		"AI3_PLANNER_MODEL", "AI3_PLANNER_MAXTOK", "AI3_PLANNER_TEMPERATURE", "AI3_VERIFIER_MODEL",
		"AI3_MAX_CONCURRENCY", "AI3_MAX_CONCURRENCY_PER_PROVIDER", "AI3_VERIFY", "AI3_REPAIR_LIMIT",
		"AI3_ATTEMPT_TIMEOUT", "AI3_EVENT_BUFFER", "AI3_MODELS_FILE", "AI3_TELEMETRY_BACKEND",
		"AI3_REDIS_URL", "AI3_JOURNAL_DIR", "AI3_JOURNAL_DB", "AI3_AUDIT_LOG_PATH",
		"TRACE_ENABLED", "METRICS_ENABLED",
	)

	cfg := FromEnv()

	if cfg.PlannerModel != "claude-3-5-sonnet-latest" {
		t.Fatalf("unexpected default planner model: %s", cfg.PlannerModel)
	}
	if cfg.VerifierModel != cfg.PlannerModel {
		t.Fatalf("expected verifier model to default to planner model, got %s", cfg.VerifierModel)
	}
	if cfg.MaxConcurrency != 5 || cfg.MaxConcurrencyPerProvider != 3 {
		t.Fatalf("unexpected concurrency defaults: %+v", cfg)
	}
	if !cfg.Verify {
		t.Fatal("expected verify to default true")
	}
	if cfg.RepairLimit != 1 {
		t.Fatalf("unexpected repair limit default: %d", cfg.RepairLimit)
	}
	if cfg.AttemptTimeout != 120*time.Second {
		t.Fatalf("unexpected attempt timeout default: %v", cfg.AttemptTimeout)
	}
	if cfg.TelemetryBackend != "memory" {
		t.Fatalf("unexpected telemetry backend default: %s", cfg.TelemetryBackend)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t, "AI3_VERIFIER_MODEL", "AI3_VERIFY", "AI3_REPAIR_LIMIT", "AI3_TELEMETRY_BACKEND")
	os.Setenv("AI3_VERIFIER_MODEL", "custom-verifier")
	os.Setenv("AI3_VERIFY", "false")
	os.Setenv("AI3_REPAIR_LIMIT", "4")
	os.Setenv("AI3_TELEMETRY_BACKEND", "redis")

	cfg := FromEnv()

	if cfg.VerifierModel != "custom-verifier" {
		t.Fatalf("expected explicit verifier model override, got %s", cfg.VerifierModel)
	}
	if cfg.Verify {
		t.Fatal("expected verify to be disabled by override")
	}
	if cfg.RepairLimit != 4 {
		t.Fatalf("expected repair limit override, got %d", cfg.RepairLimit)
	}
	if cfg.TelemetryBackend != "redis" {
		t.Fatalf("expected telemetry backend override, got %s", cfg.TelemetryBackend)
	}
}
