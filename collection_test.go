package l10n_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/backend/memory"
)

type CollectionSuite struct {
	baseSuite
}

func TestCollectionSuite(t *testing.T) {
	suite.Run(t, new(CollectionSuite))
}

type indexRecorder struct {
	mu       sync.Mutex
	progress []int
	updated  int
}

func (r *indexRecorder) UpdateProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, percent)
}

func (r *indexRecorder) Updated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated++
}

func (s *CollectionSuite) catalogue(opts ...memory.Option) *memory.Backend {
	opts = append([]memory.Option{memory.WithPackages(map[string]string{
		"kde-l10n-de":          "",
		"kde-l10n-zhcn":        "",
		"kde-l10n-zh_CN":       "",
		"kde-l10n-engb":        "4:4.14",
		"kde-l10n-ca-valencia": "",
		"kde-l10n-":            "",
		"foo-kde-l10n-fr":      "",
		"firefox-locale-de":    "",
	})}, opts...)
	return memory.New(s.workers, opts...)
}

func (s *CollectionSuite) TestLanguages() {
	ctx := s.T().Context()
	b := s.catalogue()

	collection := l10n.NewLanguageCollection(ctx, b, l10n.WithCollectionPrefix("kde-l10n-"))

	langs, err := collection.Languages(ctx)
	s.Require().NoError(err)

	got := make([]string, 0, len(langs))
	for _, lang := range langs {
		got = append(got, lang.Code())
	}
	s.Equal([]string{"ca@valencia", "de", "en_GB", "zh_CN"}, got)

	for _, lang := range langs {
		s.Require().NoError(lang.Close())
	}
	s.False(b.Closed())

	s.Require().NoError(collection.Close())
	s.True(b.Closed())

	_, err = collection.Languages(ctx)
	s.Require().Error(err)
}

func (s *CollectionSuite) TestLanguagesShareBackend() {
	ctx := s.waitCtx()
	b := s.catalogue()

	collection := l10n.NewLanguageCollection(ctx, b,
		l10n.WithCollectionPrefix("kde-l10n-"),
		l10n.WithLanguageOptions(l10n.WithRuleFile(s.ruleFile), l10n.WithBackend(s.universe())))
	defer collection.Close()

	langs, err := collection.Languages(ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(langs)

	var german *l10n.Language
	for _, lang := range langs {
		if lang.Code() == "de" {
			german = lang
		}
	}
	s.Require().NotNil(german)

	s.False(german.IsSupportComplete(ctx))
	s.Equal([]string{"kde-l10n-de"}, german.MissingPackages())

	german.CompleteSupport(ctx)
	s.Require().NoError(german.Wait(ctx))
	s.Equal(1, b.Commits())
}

func (s *CollectionSuite) TestUpdate() {
	testCases := []struct {
		name     string
		opts     []memory.Option
		updated  bool
		progress []int
	}{
		{name: "current index", updated: true},
		{name: "stale index", opts: []memory.Option{memory.WithIndexStale()}, progress: []int{0, 50, 100}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			ctx := s.T().Context()
			rec := &indexRecorder{}

			collection := l10n.NewLanguageCollection(ctx, s.catalogue(tc.opts...),
				l10n.WithCollectionObserver(rec))
			defer collection.Close()

			s.Equal(tc.updated, collection.IsUpdated(ctx))
			s.Require().NoError(collection.Update(ctx))
			s.True(collection.IsUpdated(ctx))

			s.Equal(tc.progress, rec.progress)
			s.Equal(1, rec.updated)
		})
	}
}
