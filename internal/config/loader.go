package config

import "context"

// Loader reads configuration from a set of paths (files or directories).
// The returned configuration starts from Default and is not validated.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Config, error)
}
