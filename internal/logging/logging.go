// Package logging configures structured logging for groupsync.
//
// All packages log through tflog subsystems so that each concern can be
// tuned independently, e.g. GROUPSYNC_LOG_LDAP=trace.
package logging

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
)

// Logging subsystems.
const (
	SubsystemSync     = "sync"
	SubsystemSnapshot = "snapshot"
	SubsystemExport   = "export"
	SubsystemLDAP     = "ldap"
	SubsystemCognito  = "cognito"
)

// LevelEnvPrefix is the prefix for per-subsystem level overrides.
const LevelEnvPrefix = "GROUPSYNC_LOG"

// DefaultLevel is used when no level, or an unknown level, is configured.
const DefaultLevel = hclog.Warn

var subsystems = []string{
	SubsystemSync,
	SubsystemSnapshot,
	SubsystemExport,
	SubsystemLDAP,
	SubsystemCognito,
}

// ParseLevel converts a level name to an hclog level.
func ParseLevel(level string) hclog.Level {
	parsed := hclog.LevelFromString(strings.TrimSpace(level))
	if parsed == hclog.NoLevel {
		return DefaultLevel
	}
	return parsed
}

// NewRootLogger installs the process root logger (JSON lines on stderr)
// and initializes every subsystem.
func NewRootLogger(ctx context.Context, level string) context.Context {
	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName("groupsync"),
		tfsdklog.WithLevel(ParseLevel(level)),
		tfsdklog.WithoutLocation(),
	)
	return InitSubsystems(ctx)
}

// InitSubsystems registers all subsystems on ctx. Each subsystem inherits the
// root level unless GROUPSYNC_LOG_<SUBSYSTEM> is set.
func InitSubsystems(ctx context.Context) context.Context {
	for _, subsystem := range subsystems {
		ctx = tflog.NewSubsystem(ctx, subsystem, tflog.WithLevelFromEnv(LevelEnvPrefix, subsystem))
	}
	return ctx
}

// WithField attaches key=value to every subsystem logger on ctx.
func WithField(ctx context.Context, key string, value any) context.Context {
	ctx = tflog.SetField(ctx, key, value)
	for _, subsystem := range subsystems {
		ctx = tflog.SubsystemSetField(ctx, subsystem, key, value)
	}
	return ctx
}
