// Package apt implements the package backend on top of the dpkg and apt
// command line tools of Debian based systems.
package apt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/workerpool"
)

const (
	installedStatus = "ii"

	// DefaultListsDir holds the package lists apt-get update downloads.
	DefaultListsDir    = "/var/lib/apt/lists"
	defaultIndexMaxAge = 24 * time.Hour

	statusFdOption = "APT::Status-Fd=3"
)

// CommandFunc builds the commands the backend runs. It exists so tests and
// chroots can redirect the tools.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

type pkg struct {
	name    string
	version string
}

func (p pkg) Name() string {
	return p.name
}

func (p pkg) IsInstalled() bool {
	return p.version != ""
}

func (p pkg) InstalledVersion() string {
	return p.version
}

// Option configures a Backend.
type Option func(*Backend)

// WithCommand replaces exec.CommandContext.
func WithCommand(fn CommandFunc) Option {
	return func(b *Backend) {
		b.command = fn
	}
}

// WithListsDir sets the directory whose modification time tells when the
// package lists were last refreshed.
func WithListsDir(dir string) Option {
	return func(b *Backend) {
		b.listsDir = dir
	}
}

// WithIndexMaxAge sets how old the package lists may get before the index
// counts as stale.
func WithIndexMaxAge(age time.Duration) Option {
	return func(b *Backend) {
		b.maxAge = age
	}
}

// Backend talks to dpkg-query, apt-cache and apt-get.
type Backend struct {
	workers  workerpool.Manager
	command  CommandFunc
	listsDir string
	maxAge   time.Duration
	now      func() time.Time

	mu        sync.Mutex
	known     map[string]struct{}
	installed map[string]string
	loaded    bool
	loadedAt  time.Time
	marked    []string
	inFlight  bool
	closed    bool
}

var _ backend.Backend = (*Backend)(nil)

// New creates an apt backend. Package lists are loaded lazily.
func New(workers workerpool.Manager, opts ...Option) *Backend {
	b := &Backend{
		workers:  workers,
		command:  exec.CommandContext,
		listsDir: DefaultListsDir,
		maxAge:   defaultIndexMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) ensureLoaded(ctx context.Context) error {
	b.mu.Lock()
	loaded := b.loaded
	b.mu.Unlock()

	if loaded {
		return nil
	}
	return b.load(ctx)
}

// load reads the archive's package names and the dpkg install state.
func (b *Backend) load(ctx context.Context) error {
	names, err := b.output(ctx, "apt-cache", "pkgnames")
	if err != nil {
		return fmt.Errorf("could not list archive packages: %w", err)
	}

	status, err := b.output(ctx, "dpkg-query", "-W", "-f=${Package}\t${db:Status-Abbrev}\t${Version}\n")
	if err != nil {
		return fmt.Errorf("could not query dpkg status: %w", err)
	}

	known := parsePackageNames(names)
	installed := parseDpkgStatus(status)
	for name := range installed {
		known[name] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.known = known
	b.installed = installed
	b.loaded = true
	b.loadedAt = b.now()
	return nil
}

func (b *Backend) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := b.command(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (b *Backend) Package(ctx context.Context, name string) (backend.Package, bool) {
	if err := b.ensureLoaded(ctx); err != nil {
		util.Log(ctx).WithError(err).WithField("package", name).Debug("package lookup failed")
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.known[name]; !ok {
		return nil, false
	}
	return pkg{name: name, version: b.installed[name]}, true
}

func (b *Backend) Search(ctx context.Context, query string) ([]backend.Package, error) {
	if err := b.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var found []backend.Package
	for name := range b.known {
		if strings.Contains(name, query) {
			found = append(found, pkg{name: name, version: b.installed[name]})
		}
	}
	slices.SortFunc(found, func(a, c backend.Package) int {
		return strings.Compare(a.Name(), c.Name())
	})
	return found, nil
}

func (b *Backend) OpenIndex(ctx context.Context) error {
	if b.isClosed() {
		return backend.ErrClosed
	}
	return b.ensureLoaded(ctx)
}

// IndexNeedsUpdate reports whether the package lists were never read, changed
// since they were read, are missing or are older than the maximum age.
func (b *Backend) IndexNeedsUpdate(ctx context.Context) bool {
	b.mu.Lock()
	loaded, loadedAt := b.loaded, b.loadedAt
	b.mu.Unlock()

	if !loaded {
		return true
	}

	info, err := os.Stat(b.listsDir)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("dir", b.listsDir).Debug("package lists unavailable")
		return true
	}

	refreshed := info.ModTime()
	if refreshed.After(loadedAt) {
		return true
	}
	return b.maxAge > 0 && b.now().Sub(refreshed) > b.maxAge
}

// UpdateIndex downloads fresh package lists with apt-get update and reads
// them again. Download progress is reported below 100, which is only
// reported once the lists were read.
func (b *Backend) UpdateIndex(ctx context.Context, progress func(int)) error {
	if b.isClosed() {
		return backend.ErrClosed
	}

	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}

	report(0)
	stderr, waitErr := b.runWithStatus(ctx, []string{"update", "--quiet", "-o", statusFdOption}, nil,
		func(percent int) { report(min(percent, 99)) })
	if waitErr != nil {
		return fmt.Errorf("apt-get update: %w: %s", waitErr, strings.TrimSpace(stderr))
	}

	if err := b.load(ctx); err != nil {
		return err
	}
	report(100)
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

func (b *Backend) Commit(_ context.Context) (backend.Transaction, error) {
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

	pkgs := b.marked
	b.marked = nil
	b.inFlight = true

	return backend.NewTransaction(b.workers, pkgs, b.install, func(backend.ExitStatus, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.inFlight = false
	}), nil
}

// install runs apt-get install and maps its outcome.
func (b *Backend) install(
	ctx context.Context,
	opts backend.RunOptions,
	progress func(int),
) (backend.ExitStatus, error) {
	args := append([]string{"install", "--yes", "--quiet", "-o", statusFdOption}, opts.Packages...)

	stderr, waitErr := b.runWithStatus(ctx, args, func(env []string) []string {
		return installEnv(env, opts)
	}, progress)
	return exitStatus(ctx, waitErr, stderr)
}

// runWithStatus runs apt-get with its status pipe on fd 3, forwarding the
// progress lines. It returns the collected stderr and the error of starting
// or waiting for the command.
func (b *Backend) runWithStatus(
	ctx context.Context,
	args []string,
	env func([]string) []string,
	progress func(int),
) (string, error) {
	cmd := b.command(ctx, "apt-get", args...)
	if env != nil {
		cmd.Env = env(cmd.Environ())
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return "", err
	}
	cmd.ExtraFiles = append(cmd.ExtraFiles, statusW)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err = cmd.Start(); err != nil {
		_ = statusR.Close()
		_ = statusW.Close()
		return "", err
	}
	_ = statusW.Close()

	readStatus(statusR, progress)
	_ = statusR.Close()

	waitErr := cmd.Wait()
	return stderr.String(), waitErr
}

func installEnv(base []string, opts backend.RunOptions) []string {
	env := append(base, "DEBIAN_FRONTEND=noninteractive")
	if opts.Proxy != "" {
		env = append(env, "http_proxy="+opts.Proxy, "https_proxy="+opts.Proxy)
	}
	if opts.Locale != "" {
		env = append(env, "LC_MESSAGES="+opts.Locale)
	}
	return env
}

func readStatus(r io.Reader, progress func(int)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if percent, ok := parseStatusLine(scanner.Text()); ok {
			progress(percent)
		}
	}
}

func exitStatus(ctx context.Context, waitErr error, stderr string) (backend.ExitStatus, error) {
	if waitErr == nil {
		return backend.ExitSuccess, nil
	}

	if ctx.Err() != nil {
		return backend.ExitCancelled, nil
	}

	if strings.Contains(stderr, "dpkg was interrupted") {
		return backend.ExitPreviousFailed, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return backend.ExitFailed, nil
	}
	return backend.ExitFailed, waitErr
}

func (b *Backend) ReloadCache(ctx context.Context) error {
	b.mu.Lock()
	b.marked = nil
	b.mu.Unlock()

	return b.load(ctx)
}

func (b *Backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
