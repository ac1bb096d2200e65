package main

import (
	"errors"

	"github.com/your-org/ai3/pkg/types"
)

// exitCodeFor maps a Run/RunStream error to spec.md §6's CLI exit codes:
// 0 success, 1 plan error, 2 all-candidates-failed, 3 cancelled/timeout,
// 4 configuration error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var re *types.RunError
	if !errors.As(err, &re) {
		return 4
	}

	switch re.Kind {
	case types.RunErrorAllCandidatesFailed:
		return 2
	case types.RunErrorCancelled, types.RunErrorTimeout:
		return 3
	case types.RunErrorConfiguration:
		var pe *types.PlanError
		if errors.As(re, &pe) {
			return 1
		}
		return 4
	default:
		return 4
	}
}
