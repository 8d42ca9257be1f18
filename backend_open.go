package l10n

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/backend/apt"
	"github.com/pitabwire/l10n/backend/memory"
	"github.com/pitabwire/l10n/workerpool"
)

// ErrUnknownBackend is returned by OpenBackend for unsupported urls.
var ErrUnknownBackend = errors.New("unknown package backend")

// OpenBackend selects the package backend from the url scheme:
// mem:// for the in-process backend and apt:// for the system package manager.
func OpenBackend(_ context.Context, dsn string, workers workerpool.Manager) (backend.Backend, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnknownBackend, dsn, err)
	}

	switch u.Scheme {
	case "mem":
		return memory.New(workers), nil
	case "apt":
		return apt.New(workers), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dsn)
	}
}
