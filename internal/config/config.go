// Package config loads the Engine's environment-driven runtime
// configuration (grounded on the teacher's internal/config.FromEnv) and
// the YAML-declared model catalog consumed by the Capability Registry.
package config

import (
	"os"
	"strconv"
	"time"
)

// RunConfig is the environment-driven knob set for one Engine instance,
// covering every AI3_* variable in spec.md §6.
type RunConfig struct {
	PlannerModel       string
	PlannerMaxTokens   int
	PlannerTemperature float64
	VerifierModel      string

	MaxConcurrency            int
	MaxConcurrencyPerProvider int

	Verify      bool
	RepairLimit int

	AttemptTimeout time.Duration
	EventBuffer    int

	ModelsFile      string
	TelemetryBackend string
	RedisURL        string
	JournalDir      string
	JournalDB       string
	AuditLogPath    string

	TraceEnabled   bool
	MetricsEnabled bool
}

// FromEnv loads RunConfig with the defaults spec.md §6 specifies.
func FromEnv() RunConfig {
	cfg := RunConfig{
		PlannerModel:       getenv("AI3_PLANNER_MODEL", "claude-3-5-sonnet-latest"),
		PlannerMaxTokens:   getenvInt("AI3_PLANNER_MAXTOK", 2048),
		PlannerTemperature: getenvFloat("AI3_PLANNER_TEMPERATURE", 0.0),
		VerifierModel:      os.Getenv("AI3_VERIFIER_MODEL"),

		MaxConcurrency:            getenvInt("AI3_MAX_CONCURRENCY", 5),
		MaxConcurrencyPerProvider: getenvInt("AI3_MAX_CONCURRENCY_PER_PROVIDER", 3),

		Verify:      getenvBool("AI3_VERIFY", true),
		RepairLimit: getenvInt("AI3_REPAIR_LIMIT", 1),

		AttemptTimeout: getenvDuration("AI3_ATTEMPT_TIMEOUT", 120*time.Second),
		EventBuffer:    getenvInt("AI3_EVENT_BUFFER", 64),

		ModelsFile:       getenv("AI3_MODELS_FILE", "configs/models.yaml"),
		TelemetryBackend: getenv("AI3_TELEMETRY_BACKEND", "memory"),
		RedisURL:         os.Getenv("AI3_REDIS_URL"),
		JournalDir:       getenv("AI3_JOURNAL_DIR", "journal"),
		JournalDB:        getenv("AI3_JOURNAL_DB", "journal/index.db"),
		AuditLogPath:     os.Getenv("AI3_AUDIT_LOG_PATH"),

		TraceEnabled:   getenvBool("TRACE_ENABLED", false),
		MetricsEnabled: getenvBool("METRICS_ENABLED", false),
	}
	if cfg.VerifierModel == "" {
		cfg.VerifierModel = cfg.PlannerModel
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	switch v {
	case "on", "true", "1", "yes":
		return true
	case "off", "false", "0", "no":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
