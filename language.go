// Package l10n checks whether the packages needed to support a language are
// installed, installs the missing ones and derives the system locale from the
// user's language preference.
package l10n

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/codes"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/rules"
	"github.com/pitabwire/l10n/settings"
	"github.com/pitabwire/l10n/workerpool"
)

// Language is a single language and the state of its package support.
type Language struct {
	code        string
	packageCode string
	archiveCode string

	backend     backend.Backend
	ownsBackend bool
	workers     workerpool.Manager
	ownsWorkers bool

	ruleFile string
	proxy    string
	proxySet bool
	observer SupportObserver
	settings settings.Store

	mu      sync.Mutex
	missing *rules.PackageSet
	txn     backend.Transaction
	state   InstallState
	lastErr error
	done    chan struct{}
	closed  bool
}

func newLanguage(code string) *Language {
	return &Language{
		code:        code,
		packageCode: codes.ToPackageCode(code),
		archiveCode: codes.ToOtherPackageCode(code),
		missing:     rules.NewPackageSet(),
	}
}

// NewLanguage creates a standalone language. Unless WithBackend is given, it
// opens and owns a backend chosen by the configured backend url; Close
// releases it. An empty code selects the first configured language.
func NewLanguage(ctx context.Context, code string, opts ...Option) (*Language, error) {
	l := newLanguage(code)
	l.ownsBackend = true

	for _, opt := range opts {
		opt(ctx, l)
	}

	cfg := localizationConfig(ctx)
	l.applyConfig(cfg)

	if code == "" {
		resolved, err := l.codeFromSettings(ctx, cfg)
		if err != nil {
			return nil, err
		}
		identity := newLanguage(resolved)
		l.code, l.packageCode, l.archiveCode = identity.code, identity.packageCode, identity.archiveCode
	}

	if l.backend != nil {
		return l, nil
	}

	if l.workers == nil {
		workerCfg := config.FromContext[config.ConfigurationWorkerPool](ctx)
		workers, err := workerpool.NewManager(ctx, workerCfg)
		if err != nil {
			return nil, err
		}
		l.workers = workers
		l.ownsWorkers = true
	}

	b, err := OpenBackend(ctx, cfg.GetBackendURL(), l.workers)
	if err != nil {
		l.shutdownWorkers(ctx)
		return nil, err
	}
	l.backend = b
	l.ownsBackend = true

	return l, nil
}

func (l *Language) applyConfig(cfg config.ConfigurationLocalization) {
	if l.ruleFile == "" {
		l.ruleFile = cfg.GetRuleFile()
	}

	if !l.proxySet {
		if proxy, ok := cfg.GetManualProxy(); ok {
			l.proxy = proxy
		}
	}
}

func (l *Language) codeFromSettings(ctx context.Context, cfg config.ConfigurationLocalization) (string, error) {
	store := l.settings
	if store == nil {
		opened, err := settings.Open(ctx, cfg.GetSettingsURL())
		if err != nil {
			return "", err
		}
		defer opened.Close()
		store = opened
	}

	langs, err := settings.Languages(ctx, store)
	if err != nil {
		return "", err
	}
	return langs[0], nil
}

// Code is the canonical language code, e.g. ca@valencia.
func (l *Language) Code() string {
	return l.code
}

// PackageCode is the code used in the desktop's localization package names.
func (l *Language) PackageCode() string {
	return l.packageCode
}

// ArchiveCode is the code used by the distribution's package archive.
func (l *Language) ArchiveCode() string {
	return l.archiveCode
}

// SystemLanguageCode is the code without variant and region.
func (l *Language) SystemLanguageCode() string {
	return codes.Parse(l.code).System()
}

// IsSupportComplete reports whether every package required for the language
// is installed. An unreadable rule file counts as complete.
func (l *Language) IsSupportComplete(ctx context.Context) bool {
	l.mu.Lock()
	pending := !l.missing.IsEmpty()
	l.mu.Unlock()

	if pending {
		return false
	}

	if l.backend == nil {
		return true
	}

	log := util.Log(ctx).WithField("language", l.code)

	ruleSet, err := rules.Load(l.ruleFile)
	if err != nil {
		if errors.Is(err, rules.ErrRuleFileUnavailable) {
			log.WithError(err).Debug("rule file unavailable, assuming complete support")
		} else {
			log.WithError(err).Warn("could not read rule file, assuming complete support")
		}
		return true
	}

	missing := rules.NewResolver(l.backend).Resolve(ctx, ruleSet, rules.Target{
		Code:        l.code,
		ArchiveCode: l.archiveCode,
	})

	l.mu.Lock()
	l.missing = missing
	l.mu.Unlock()

	if !missing.IsEmpty() {
		log.WithField("packages", missing.Names()).Debug("language support incomplete")
	}
	return missing.IsEmpty()
}

// MissingPackages returns the names found missing by the last check, sorted.
func (l *Language) MissingPackages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := l.missing.Names()
	slices.Sort(names)
	return names
}

// Close releases an owned backend. Languages using a borrowed backend have
// nothing to release. A transaction in flight keeps running; the owned
// backend is released once it finished and no notification is delivered.
func (l *Language) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	installing := l.state == InstallInstalling
	l.mu.Unlock()

	if installing {
		return nil
	}
	return l.release(context.Background())
}

func (l *Language) release(ctx context.Context) error {
	var err error
	if l.ownsBackend && l.backend != nil {
		err = l.backend.Close()
	}
	l.shutdownWorkers(ctx)
	return err
}

func (l *Language) shutdownWorkers(ctx context.Context) {
	if l.ownsWorkers && l.workers != nil {
		if err := l.workers.Shutdown(ctx); err != nil {
			util.Log(ctx).WithError(err).Warn("could not shut down worker pool")
		}
	}
}
