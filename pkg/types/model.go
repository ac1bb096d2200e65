package types

import "time"

// ModelDescriptor is a static, config-loaded description of one routable
// model. Loaded at startup and never mutated in place; the Router merges
// it with a live TelemetryWindow at query time.
type ModelDescriptor struct {
	ModelID           string             `yaml:"model_id"`
	ProviderID        string             `yaml:"provider_id"`
	Skills            map[TaskKind]float64 `yaml:"skills"`
	ContextWindow     int                `yaml:"context_window"`
	CostPer1kInput    float64            `yaml:"cost_per_1k_input"`
	CostPer1kOutput   float64            `yaml:"cost_per_1k_output"`
	SupportedFeatures []Feature          `yaml:"supported_features"`
	WeightOverride    *float64           `yaml:"weight_override,omitempty"`
}

// HasFeature reports whether the descriptor advertises f.
func (m ModelDescriptor) HasFeature(f Feature) bool {
	for _, have := range m.SupportedFeatures {
		if have == f {
			return true
		}
	}
	return false
}

// TelemetrySample is one recorded execution outcome for a model.
type TelemetrySample struct {
	At         time.Time
	Success    bool
	LatencyMs  float64
	TokensIn   int
	TokensOut  int
	Cost       float64
}

// TelemetryWindow is the rolling-24h aggregate view of a model's recent
// behavior, as returned by the Telemetry Recorder.
type TelemetryWindow struct {
	ModelID      string
	Attempts     int64
	Successes    int64
	Errors       int64
	AvgLatencyMs float64
	TokensIn     int64
	TokensOut    int64
	Cost         float64
	// HasSamples is false when the window is empty; the Capability
	// Registry substitutes a neutral prior in that case (spec.md §4.2).
	HasSamples bool
}

// SuccessRate applies Laplace smoothing: an unsampled model reads 0.5 at
// the Telemetry layer (the Registry's neutral-prior override happens one
// layer up, in capability.Registry).
func (w TelemetryWindow) SuccessRate() float64 {
	return float64(w.Successes+1) / float64(w.Attempts+2)
}
