package types

import "fmt"

// PlanErrorKind enumerates the ways the Planner can fail.
type PlanErrorKind string

const (
	PlanErrorSchema     PlanErrorKind = "Schema"
	PlanErrorCycle      PlanErrorKind = "Cycle"
	PlanErrorUpstreamLLM PlanErrorKind = "UpstreamLLM"
)

// PlanError is returned by Planner.Plan.
type PlanError struct {
	Kind    PlanErrorKind
	Message string
	Cause   error
}

func (e *PlanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan error [%s]: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("plan error [%s]: %s", e.Kind, e.Message)
}

func (e *PlanError) Unwrap() error { return e.Cause }

// ProviderErrorKind enumerates how a Provider Adapter call can fail.
type ProviderErrorKind string

const (
	ProviderErrorTransient   ProviderErrorKind = "Transient"
	ProviderErrorPermanent   ProviderErrorKind = "Permanent"
	ProviderErrorRateLimited ProviderErrorKind = "RateLimited"
	ProviderErrorAuthFailed  ProviderErrorKind = "AuthFailed"
	ProviderErrorTimeout     ProviderErrorKind = "Timeout"
)

// ProviderError normalizes a provider-specific failure. Retryable mirrors
// the teacher's AgentError{Cause, Retryable} shape.
type ProviderError struct {
	Kind      ProviderErrorKind
	ModelID   string
	Cause     error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s] model=%s retryable=%v: %v", e.Kind, e.ModelID, e.Retryable, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsPermanent reports whether the error kind is fatal to the whole run —
// no fallback candidate is worth trying because the failure is
// authentication/configuration-shaped (bad credentials, disabled
// account) rather than a fault of this one candidate. A plain
// ProviderErrorPermanent (e.g. a 4xx rejecting this request's shape) is
// NOT run-fatal: another model or provider may still accept the same
// task, so it skips repair and goes straight to fallback instead.
func (e *ProviderError) IsPermanent() bool {
	return e.Kind == ProviderErrorAuthFailed
}

// VerifyError wraps an internal Verifier failure (e.g. a rubric call that
// errors). Treated as a failed verdict with reason "VerifierError" and
// still consumes one repair attempt.
type VerifyError struct {
	Message string
	Cause   error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify error: %s: %v", e.Message, e.Cause)
}

func (e *VerifyError) Unwrap() error { return e.Cause }

// RouteError signals the Router found no admissible candidate.
type RouteError struct {
	TaskID  string
	Message string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route error task=%s: %s", e.TaskID, e.Message)
}

// RunErrorKind enumerates the ways an Engine.Run invocation can fail.
type RunErrorKind string

const (
	RunErrorAllCandidatesFailed RunErrorKind = "AllCandidatesFailed"
	RunErrorCancelled           RunErrorKind = "Cancelled"
	RunErrorTimeout             RunErrorKind = "Timeout"
	RunErrorConfiguration       RunErrorKind = "Configuration"
)

// RunError is the top-level error returned by the Engine.
type RunError struct {
	Kind         RunErrorKind
	Message      string
	PerTaskCause map[string]string
	Cause        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run error [%s]: %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error { return e.Cause }
