package logging

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// LogOperation logs the start and outcome of fn with timing.
func LogOperation(ctx context.Context, subsystem, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	entry := make(map[string]any, len(fields)+1)
	maps.Copy(entry, fields)
	entry["operation"] = operation

	tflog.SubsystemDebug(ctx, subsystem, "Starting operation", SanitizeFields(entry))

	err := fn()

	entry["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		entry["error"] = err.Error()
		tflog.SubsystemDebug(ctx, subsystem, "Operation failed", SanitizeFields(entry))
	} else {
		tflog.SubsystemDebug(ctx, subsystem, "Operation completed", SanitizeFields(entry))
	}

	return err
}

// LogPhase returns a func that closes a phase log entry started now.
func LogPhase(ctx context.Context, phase string, fields map[string]any) func(error) {
	start := time.Now()

	entry := make(map[string]any, len(fields)+1)
	maps.Copy(entry, fields)
	entry["phase"] = phase

	tflog.SubsystemInfo(ctx, SubsystemSync, "Starting phase", entry)

	return func(err error) {
		exit := make(map[string]any, len(entry)+2)
		maps.Copy(exit, entry)
		exit["duration_ms"] = time.Since(start).Milliseconds()

		if err != nil {
			exit["error"] = err.Error()
			tflog.SubsystemError(ctx, SubsystemSync, "Phase failed", exit)
			return
		}
		tflog.SubsystemInfo(ctx, SubsystemSync, "Phase completed", exit)
	}
}

var sensitiveKeys = map[string]bool{
	"password":          true,
	"passwd":            true,
	"secret":            true,
	"token":             true,
	"key":               true,
	"private_key":       true,
	"credential":        true,
	"credentials":       true,
	"secret_access_key": true,
	"session_token":     true,
}

// SanitizeFields returns a copy of fields with sensitive values redacted.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
		"key=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}
