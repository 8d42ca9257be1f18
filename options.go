package l10n

import (
	"context"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/settings"
	"github.com/pitabwire/l10n/workerpool"
)

// Option customises a Language.
type Option func(ctx context.Context, l *Language)

// WithBackend makes the language use b instead of opening its own backend.
// The caller keeps ownership of b.
func WithBackend(b backend.Backend) Option {
	return func(_ context.Context, l *Language) {
		l.backend = b
		l.ownsBackend = false
	}
}

// WithWorkers sets the worker pool an owned backend runs transactions on.
func WithWorkers(m workerpool.Manager) Option {
	return func(_ context.Context, l *Language) {
		l.workers = m
	}
}

// WithRuleFile overrides the configured dependency rule file.
func WithRuleFile(path string) Option {
	return func(_ context.Context, l *Language) {
		l.ruleFile = path
	}
}

// WithManualProxy sets the proxy handed to install transactions.
// An empty url means no proxy.
func WithManualProxy(url string) Option {
	return func(_ context.Context, l *Language) {
		l.proxy = url
		l.proxySet = true
	}
}

// WithObserver registers the receiver of support completion notifications.
func WithObserver(o SupportObserver) Option {
	return func(_ context.Context, l *Language) {
		l.observer = o
	}
}

// WithSettings sets the store the language code is read from when
// NewLanguage is called with an empty code.
func WithSettings(s settings.Store) Option {
	return func(_ context.Context, l *Language) {
		l.settings = s
	}
}

// localizationConfig returns the configuration stored in ctx or the
// environment defaults.
func localizationConfig(ctx context.Context) config.ConfigurationLocalization {
	if cfg := config.FromContext[config.ConfigurationLocalization](ctx); cfg != nil {
		return cfg
	}

	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return &config.ConfigurationDefault{BackendURL: "apt://"}
	}
	return &cfg
}
