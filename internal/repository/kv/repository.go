package kv

import "context"

// Repository is a flat text key-value store. Values are opaque; callers
// serialize at the boundary. Removing an absent key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// DefaultScope namespaces entries when no scope is configured.
const DefaultScope = "default"

func scopeOrDefault(scope string) string {
	if scope == "" {
		return DefaultScope
	}
	return scope
}
