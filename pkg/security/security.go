// Package security provides validation, sanitization, and limits for the
// DAG execution manager.
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/flowforge/dagmanager/pkg/core"
)

// Limits and configuration.
const (
	// MaxFlowNameLength is the maximum length for a flow group or name.
	MaxFlowNameLength = 255

	// MaxJobNameLength is the maximum length for a job name within a DAG.
	MaxJobNameLength = 255

	// MaxMessageLength is the maximum length for a DAG's stored message.
	MaxMessageLength = 4096

	// MaxShards is the hard limit on numThreads.
	MaxShards = 256

	// MaxRetries is the hard limit on a job's MaxAttempts.
	MaxRetries = 100
)

// ValidateFlowGroup validates the flowGroup component of a DagId.
func ValidateFlowGroup(name string) error {
	return validateNamePart(name, core.ErrInvalidFlowGroup)
}

// ValidateFlowName validates the flowName component of a DagId.
func ValidateFlowName(name string) error {
	return validateNamePart(name, core.ErrInvalidFlowName)
}

func validateNamePart(name string, invalid error) error {
	if name == "" {
		return invalid
	}
	if len(name) > MaxFlowNameLength {
		return invalid
	}
	if strings.ContainsAny(name, "_\n\r\t") {
		return invalid
	}
	return nil
}

// SanitizeMessage truncates and strips control characters from a
// message before it is written to a DAG's Message field.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	var sanitized strings.Builder
	sanitized.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()
	if utf8.RuneCountInString(result) > MaxMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxMessageLength-3]) + "..."
	}
	return result
}

// ClampShards ensures the shard count is within sane bounds.
func ClampShards(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxShards {
		return MaxShards
	}
	return n
}

// ClampRetries ensures a job's max-attempts is within sane bounds.
func ClampRetries(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxRetries {
		return MaxRetries
	}
	return n
}
