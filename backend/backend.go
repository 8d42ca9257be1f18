// Package backend describes the package management capability the language
// support layer relies on. Implementations live in the sub packages.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrTransactionInFlight is returned by Commit while another transaction
	// of the same backend has not finished yet.
	ErrTransactionInFlight = errors.New("a package transaction is already in flight")
	// ErrNothingMarked is returned by Commit when no package was marked.
	ErrNothingMarked = errors.New("no packages marked for install")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("package backend is closed")
)

// Package is a single installable package known to the backend.
type Package interface {
	Name() string
	IsInstalled() bool
	// InstalledVersion is empty when the package is not installed.
	InstalledVersion() string
}

// Backend is the package management capability.
//
// A Backend is not safe for concurrent mutating calls: MarkForInstall and
// Commit must not race. Only one transaction may be in flight at a time.
type Backend interface {
	// Package looks up a package by its exact name.
	Package(ctx context.Context, name string) (Package, bool)
	// Search returns all packages whose name contains query. May block.
	Search(ctx context.Context, query string) ([]Package, error)

	// OpenIndex opens the search index. May block.
	OpenIndex(ctx context.Context) error
	// IndexNeedsUpdate reports whether the search index is stale.
	IndexNeedsUpdate(ctx context.Context) bool
	// UpdateIndex rebuilds the search index, reporting progress 0-100.
	UpdateIndex(ctx context.Context, progress func(int)) error

	MarkForInstall(ctx context.Context, pkgs []Package) error
	// Commit turns the marked packages into a transaction that is ready to run.
	Commit(ctx context.Context) (Transaction, error)
	// ReloadCache drops pending marks and re-reads the install state.
	ReloadCache(ctx context.Context) error

	Close() error
}

// Transaction is a committed set of changes executing asynchronously in the
// backend's own workers. It is owned by the backend, not by its caller.
type Transaction interface {
	ID() string
	Packages() []string
	SetProxy(url string)
	SetLocale(code string)
	// Run starts the transaction and returns immediately.
	Run(ctx context.Context) error
	// Events is closed after the Finished or Error event was delivered.
	Events() <-chan Event
}
