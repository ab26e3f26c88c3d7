package internal

import "github.com/starford/othala/internal/storage"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	provider storage.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProvider overrides the storage provider that would otherwise be
// built from the configuration. Used by tests to run against an
// in-memory store.
func WithProvider(p storage.Provider) Option {
	return func(a *application) {
		a.provider = p
	}
}
