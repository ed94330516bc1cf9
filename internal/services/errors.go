package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks missing or unsupported input files and empty studies.
	ErrInput = errors.New("input error")
	// ErrReconstruction marks volume reconstruction failures.
	ErrReconstruction = errors.New("reconstruction error")
	// ErrStorage marks IO failures against artifact or status storage.
	ErrStorage = errors.New("storage error")
	// ErrDegraded marks advisory-branch failures that must not fail the job.
	ErrDegraded = errors.New("degraded result")
	// ErrOrchestration marks primary-branch or barrier failures.
	ErrOrchestration = errors.New("orchestration failure")
	// ErrTimeout marks stage time-ceiling violations.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks retryable failures without a more specific class.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether a stage error must fail the whole job. Advisory
// degradations are the only errors the workflow tolerates.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDegraded)
}

// Message extracts the human-readable portion of a wrapped stage error,
// stripping the sentinel prefix so it can be stored in a job record.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{ErrInput, ErrReconstruction, ErrStorage, ErrDegraded, ErrOrchestration, ErrTimeout, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
