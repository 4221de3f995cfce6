package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugModeKey struct{}

// EnableDebugMode returns a context under which CDebugw logs regardless of the logger's level.
// An empty name is replaced with a random one.
func EnableDebugMode(ctx context.Context, name string) context.Context {
	if name == "" {
		name = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugModeKey{}, name)
}

// DebugModeName returns the name passed to EnableDebugMode, or "" outside debug mode.
func DebugModeName(ctx context.Context) string {
	name, _ := ctx.Value(debugModeKey{}).(string)
	return name
}

// IsDebugMode reports whether ctx was marked with EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return DebugModeName(ctx) != ""
}
