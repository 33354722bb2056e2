package core

import "context"

type contextKey string

const ctxKeyTrigger contextKey = "trigger"

// ContextWithTrigger records what started a command ("api", "scheduler",
// "cli") for logging.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// TriggerFromContext returns the recorded trigger, or "unknown".
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
