package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of ffmpeg, ffprobe, or fpcalc.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks scheduler or caller mistakes (bad task payloads).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at run time.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing jobs, chunks, or stored objects.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying by the dispatcher.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes workflow context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the dispatcher should redeliver the task that
// produced err. Validation and configuration failures never succeed on
// retry, and a chunk object missing from the store stays missing; everything
// else might.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrValidation) &&
		!errors.Is(err, ErrConfiguration) &&
		!errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
