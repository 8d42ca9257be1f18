package l10n

import (
	"context"
	"slices"
	"strings"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/codes"
)

// CollectionObserver receives search index update notifications.
type CollectionObserver interface {
	UpdateProgress(percent int)
	Updated()
}

// CollectionOption customises a LanguageCollection.
type CollectionOption func(c *LanguageCollection)

// WithCollectionPrefix sets the package name prefix of the desktop's
// localization packages.
func WithCollectionPrefix(prefix string) CollectionOption {
	return func(c *LanguageCollection) {
		c.prefix = prefix
	}
}

// WithCollectionObserver registers the receiver of index update notifications.
func WithCollectionObserver(o CollectionObserver) CollectionOption {
	return func(c *LanguageCollection) {
		c.observer = o
	}
}

// WithLanguageOptions are applied to every language of the collection.
// WithBackend is ignored; languages always use the collection's backend.
func WithLanguageOptions(opts ...Option) CollectionOption {
	return func(c *LanguageCollection) {
		c.languageOpts = append(c.languageOpts, opts...)
	}
}

// LanguageCollection enumerates the languages the desktop ships
// localization packages for.
type LanguageCollection struct {
	backend      backend.Backend
	prefix       string
	observer     CollectionObserver
	languageOpts []Option
}

// NewLanguageCollection takes ownership of b. Languages returned by the
// collection borrow b and must not outlive the collection.
func NewLanguageCollection(ctx context.Context, b backend.Backend, opts ...CollectionOption) *LanguageCollection {
	c := &LanguageCollection{backend: b}
	for _, opt := range opts {
		opt(c)
	}

	if c.prefix == "" {
		c.prefix = localizationConfig(ctx).GetCollectionPrefix()
	}
	return c
}

// Languages lists one language per localization package, sorted by code.
// It blocks while the search index is opened and searched.
func (c *LanguageCollection) Languages(ctx context.Context) ([]*Language, error) {
	if err := c.backend.OpenIndex(ctx); err != nil {
		return nil, err
	}

	pkgs, err := c.backend.Search(ctx, c.prefix)
	if err != nil {
		return nil, err
	}

	var found []string
	for _, pkg := range pkgs {
		rest, ok := strings.CutPrefix(pkg.Name(), c.prefix)
		if !ok || rest == "" {
			continue
		}
		found = append(found, codes.ToCanonicalCode(rest))
	}

	slices.Sort(found)
	found = slices.Compact(found)

	util.Log(ctx).WithField("prefix", c.prefix).WithField("count", len(found)).Debug("listed languages")

	langs := make([]*Language, 0, len(found))
	for _, code := range found {
		langs = append(langs, c.language(ctx, code))
	}
	return langs, nil
}

func (c *LanguageCollection) language(ctx context.Context, code string) *Language {
	l := newLanguage(code)
	for _, opt := range c.languageOpts {
		opt(ctx, l)
	}

	l.backend = c.backend
	l.ownsBackend = false
	l.workers = nil
	l.applyConfig(localizationConfig(ctx))
	return l
}

// IsUpdated reports whether the search index is open and current.
func (c *LanguageCollection) IsUpdated(ctx context.Context) bool {
	if err := c.backend.OpenIndex(ctx); err != nil {
		util.Log(ctx).WithError(err).Debug("search index could not be opened")
		return false
	}
	return !c.backend.IndexNeedsUpdate(ctx)
}

// Update rebuilds the search index when needed, forwarding progress to the
// observer. Updated is signalled in either case.
func (c *LanguageCollection) Update(ctx context.Context) error {
	if c.IsUpdated(ctx) {
		c.updated()
		return nil
	}

	err := c.backend.UpdateIndex(ctx, func(percent int) {
		if c.observer != nil {
			c.observer.UpdateProgress(percent)
		}
	})
	if err != nil {
		return err
	}

	c.updated()
	return nil
}

func (c *LanguageCollection) updated() {
	if c.observer != nil {
		c.observer.Updated()
	}
}

// Close releases the backend.
func (c *LanguageCollection) Close() error {
	return c.backend.Close()
}
