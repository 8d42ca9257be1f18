// Package memory is an in-process package backend. It keeps its package
// universe in memory and executes transactions on a worker pool, which makes
// it suitable for tests and dry runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/workerpool"
)

const defaultProgressSteps = 4

// Pkg is a package of the in-memory universe.
type Pkg struct {
	PkgName string
	Version string
}

func (p Pkg) Name() string {
	return p.PkgName
}

func (p Pkg) IsInstalled() bool {
	return p.Version != ""
}

func (p Pkg) InstalledVersion() string {
	return p.Version
}

// Outcome scripts how the next transaction ends.
type Outcome struct {
	Status backend.ExitStatus
	Err    error
	// Progress replaces the default evenly spaced progress reports.
	Progress []int
	// Hold blocks the transaction until the channel is closed.
	Hold <-chan struct{}
}

// Option configures a Backend.
type Option func(*Backend)

// WithPackages seeds the universe. An empty version means not installed.
func WithPackages(pkgs map[string]string) Option {
	return func(b *Backend) {
		for name, version := range pkgs {
			b.universe[name] = version
		}
	}
}

// WithIndexStale makes IndexNeedsUpdate report true until UpdateIndex ran.
func WithIndexStale() Option {
	return func(b *Backend) {
		b.indexStale = true
	}
}

// Backend is an in-memory backend.Backend.
type Backend struct {
	workers workerpool.Manager

	mu         sync.Mutex
	universe   map[string]string
	marked     []string
	inFlight   bool
	indexOpen  bool
	indexStale bool
	closed     bool
	outcomes   []Outcome

	commits int
	reloads int
	proxies []string
	locales []string
}

var _ backend.Backend = (*Backend)(nil)

// New creates an in-memory backend running transactions on workers.
func New(workers workerpool.Manager, opts ...Option) *Backend {
	b := &Backend{
		workers:  workers,
		universe: map[string]string{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Script queues the outcome of the next transaction. Transactions without a
// scripted outcome succeed and install their packages.
func (b *Backend) Script(outcome Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outcomes = append(b.outcomes, outcome)
}

// SetInstalled changes the install state of a package behind the caller's back.
func (b *Backend) SetInstalled(name, version string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.universe[name] = version
}

// Commits counts the committed transactions.
func (b *Backend) Commits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

// Reloads counts ReloadCache calls.
func (b *Backend) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

// Proxies returns the proxies transactions were run with.
func (b *Backend) Proxies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.proxies)
}

// Locales returns the locales transactions were run with.
func (b *Backend) Locales() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.locales)
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) Package(_ context.Context, name string) (backend.Package, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	version, ok := b.universe[name]
	if !ok {
		return nil, false
	}
	return Pkg{PkgName: name, Version: version}, true
}

func (b *Backend) Search(_ context.Context, query string) ([]backend.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}

	var found []backend.Package
	for name, version := range b.universe {
		if strings.Contains(name, query) {
			found = append(found, Pkg{PkgName: name, Version: version})
		}
	}
	slices.SortFunc(found, func(a, c backend.Package) int {
		return strings.Compare(a.Name(), c.Name())
	})
	return found, nil
}

func (b *Backend) OpenIndex(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return backend.ErrClosed
	}
	b.indexOpen = true
	return nil
}

func (b *Backend) IndexNeedsUpdate(_ context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexStale
}

func (b *Backend) UpdateIndex(_ context.Context, progress func(int)) error {
	for _, p := range []int{0, 50, 100} {
		if progress != nil {
			progress(p)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.indexStale = false
	b.indexOpen = true
	return nil
}

func (b *Backend) MarkForInstall(_ context.Context, pkgs []backend.Package) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return backend.ErrClosed
	}

	for _, p := range pkgs {
		if !slices.Contains(b.marked, p.Name()) {
			b.marked = append(b.marked, p.Name())
		}
	}
	return nil
}

func (b *Backend) Commit(ctx context.Context) (backend.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return nil, backend.ErrClosed
	case b.inFlight:
		return nil, backend.ErrTransactionInFlight
	case len(b.marked) == 0:
		return nil, backend.ErrNothingMarked
	}

	outcome := Outcome{Status: backend.ExitSuccess}
	if len(b.outcomes) > 0 {
		outcome = b.outcomes[0]
		b.outcomes = b.outcomes[1:]
	}

	pkgs := b.marked
	b.marked = nil
	b.inFlight = true
	b.commits++

	util.Log(ctx).WithField("packages", pkgs).Debug("memory backend committed transaction")

	return backend.NewTransaction(b.workers, pkgs, b.runner(outcome), func(backend.ExitStatus, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.inFlight = false
	}), nil
}

func (b *Backend) runner(outcome Outcome) backend.Runner {
	return func(ctx context.Context, opts backend.RunOptions, progress func(int)) (backend.ExitStatus, error) {
		b.mu.Lock()
		b.proxies = append(b.proxies, opts.Proxy)
		b.locales = append(b.locales, opts.Locale)
		b.mu.Unlock()

		steps := outcome.Progress
		if steps == nil {
			for i := 0; i <= defaultProgressSteps; i++ {
				steps = append(steps, i*100/defaultProgressSteps)
			}
		}
		for _, p := range steps {
			progress(p)
		}

		if outcome.Hold != nil {
			select {
			case <-outcome.Hold:
			case <-ctx.Done():
				return backend.ExitCancelled, nil
			}
		}

		if outcome.Err != nil {
			return backend.ExitFailed, outcome.Err
		}

		if outcome.Status == backend.ExitSuccess {
			b.mu.Lock()
			for _, name := range opts.Packages {
				b.universe[name] = "1.0"
			}
			b.mu.Unlock()
		}
		return outcome.Status, nil
	}
}

func (b *Backend) ReloadCache(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.marked = nil
	b.reloads++
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
