package types

import "time"

// ArtifactStatus is the lifecycle stage of one produced Artifact.
type ArtifactStatus string

const (
	ArtifactProduced ArtifactStatus = "produced"
	ArtifactVerified ArtifactStatus = "verified"
	ArtifactRejected ArtifactStatus = "rejected"
	ArtifactRepaired ArtifactStatus = "repaired"
)

// Binding is a concrete (task, model, provider, attempt) association.
// Immutable once created; a new attempt always creates a new Binding.
type Binding struct {
	TaskID        string `json:"task_id"`
	ModelID       string `json:"model_id"`
	ProviderID    string `json:"provider_id"`
	AttemptIndex  int    `json:"attempt_index"`
}

// Artifact is the text produced by executing a Binding.
type Artifact struct {
	ArtifactID   string         `json:"artifact_id"`
	TaskID       string         `json:"task_id"`
	Binding      Binding        `json:"binding"`
	Content      string         `json:"content"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	LatencyMs    float64        `json:"latency_ms"`
	ProducedAt   time.Time      `json:"produced_at"`
	Status       ArtifactStatus `json:"status"`
	// ResolvedInputs records the concrete upstream (task_id, artifact_id)
	// pairs concatenated into this artifact's prompt context. Pure
	// bookkeeping for replay; does not change Task.Inputs semantics.
	ResolvedInputs []InputRef `json:"resolved_inputs,omitempty"`
}

// InputRef names one upstream artifact a node consumed as context.
type InputRef struct {
	TaskID     string `json:"task_id"`
	ArtifactID string `json:"artifact_id"`
}

// Verdict is the Verifier's structured judgement over an Artifact.
type Verdict struct {
	ArtifactID      string           `json:"artifact_id"`
	Score           float64          `json:"score"`
	Passed          bool             `json:"passed"`
	FailureReasons  []string         `json:"failure_reasons,omitempty"`
	RepairDirective *RepairDirective `json:"repair_directive,omitempty"`
}

// RepairDirective is a one-node subgraph inserted to correct a rejected
// artifact.
type RepairDirective struct {
	Node             Task   `json:"node"`
	OriginalTaskID   string `json:"original_task_id"`
	RejectedArtifact string `json:"rejected_artifact_id"`
}

// RunStats are the aggregate numbers reported alongside a run's final
// response and persisted on its RunTrace.
type RunStats struct {
	WallTimeMs   int64   `json:"wall_time_ms"`
	TokensIn     int64   `json:"tokens_in"`
	TokensOut    int64   `json:"tokens_out"`
	Cost         float64 `json:"cost"`
	TasksExecuted int    `json:"tasks_executed"`
	TasksRepaired int    `json:"tasks_repaired"`
	TasksFailed   int    `json:"tasks_failed"`
}

// Response is the Assembler's merged output.
type Response struct {
	Content        string   `json:"content"`
	Confidence     float64  `json:"confidence"`
	AssemblyMethod string   `json:"assembly_method"`
	SourceArtifacts []string `json:"source_artifacts"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RunTrace is the full, sealed record of one invocation, suitable for
// replay. Created on Engine entry, sealed (read-only) on Engine exit.
type RunTrace struct {
	RunID         string     `json:"run_id"`
	Prompt        string     `json:"prompt"`
	Plan          TaskGraph  `json:"plan"`
	Artifacts     []Artifact `json:"artifacts"`
	Verifications []Verdict  `json:"verifications"`
	FinalResponse Response   `json:"final_response"`
	Stats         RunStats   `json:"stats"`
	Timestamp     time.Time  `json:"timestamp"`
}
