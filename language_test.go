package l10n_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/settings"
)

type LanguageSuite struct {
	baseSuite
}

func TestLanguageSuite(t *testing.T) {
	suite.Run(t, new(LanguageSuite))
}

func (s *LanguageSuite) TestIdentity() {
	b := s.universe()

	testCases := []struct {
		name        string
		code        string
		packageCode string
		archiveCode string
		system      string
	}{
		{name: "variant", code: "ca@valencia", packageCode: "ca-valencia", archiveCode: "ca", system: "ca"},
		{name: "region", code: "en_GB", packageCode: "engb", archiveCode: "en", system: "en"},
		{name: "chinese", code: "zh_CN", packageCode: "zhcn", archiveCode: "zh-hans", system: "zh"},
		{name: "plain", code: "de", packageCode: "de", archiveCode: "de", system: "de"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			lang, err := l10n.NewLanguage(s.T().Context(), tc.code, l10n.WithBackend(b))
			s.Require().NoError(err)

			s.Equal(tc.code, lang.Code())
			s.Equal(tc.packageCode, lang.PackageCode())
			s.Equal(tc.archiveCode, lang.ArchiveCode())
			s.Equal(tc.system, lang.SystemLanguageCode())
		})
	}
}

func (s *LanguageSuite) TestIsSupportComplete() {
	testCases := []struct {
		name     string
		code     string
		complete bool
		missing  []string
	}{
		{
			name:    "german misses every per language package",
			code:    "de",
			missing: []string{"firefox-locale-de", "hunspell-de", "kde-l10n-de"},
		},
		{
			name:    "chinese matches both code namespaces and the font rule",
			code:    "zh_CN",
			missing: []string{"firefox-locale-zh-hans", "fonts-arphic-ukai", "kde-l10n-zh_CN"},
		},
		{
			name:     "french is fully installed",
			code:     "fr",
			complete: true,
			missing:  []string{},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			lang, err := l10n.NewLanguage(s.T().Context(), tc.code,
				l10n.WithBackend(s.universe()), l10n.WithRuleFile(s.ruleFile))
			s.Require().NoError(err)

			s.Equal(tc.complete, lang.IsSupportComplete(s.T().Context()))
			s.Equal(tc.missing, lang.MissingPackages())
		})
	}
}

func (s *LanguageSuite) TestMissingRuleFileCountsAsComplete() {
	lang, err := l10n.NewLanguage(s.T().Context(), "de",
		l10n.WithBackend(s.universe()),
		l10n.WithRuleFile(filepath.Join(s.T().TempDir(), "absent")))
	s.Require().NoError(err)

	s.True(lang.IsSupportComplete(s.T().Context()))
	s.Empty(lang.MissingPackages())
}

func (s *LanguageSuite) TestKnownMissingSetShortCircuits() {
	ctx := s.T().Context()
	b := s.universe()

	lang, err := l10n.NewLanguage(ctx, "de", l10n.WithBackend(b), l10n.WithRuleFile(s.ruleFile))
	s.Require().NoError(err)
	s.False(lang.IsSupportComplete(ctx))

	for _, name := range lang.MissingPackages() {
		b.SetInstalled(name, "1.0")
	}

	s.False(lang.IsSupportComplete(ctx))
}

func (s *LanguageSuite) TestEmptyCodeReadsSettings() {
	ctx := s.T().Context()

	store := settings.NewMemoryStore()
	s.Require().NoError(settings.SetLanguages(ctx, store, []string{"zh_CN", "de"}))

	lang, err := l10n.NewLanguage(ctx, "", l10n.WithBackend(s.universe()), l10n.WithSettings(store))
	s.Require().NoError(err)
	s.Equal("zh_CN", lang.Code())
	s.Equal("zh-hans", lang.ArchiveCode())

	fallback, err := l10n.NewLanguage(ctx, "",
		l10n.WithBackend(s.universe()), l10n.WithSettings(settings.NewMemoryStore()))
	s.Require().NoError(err)
	s.Equal("en_US", fallback.Code())
}

func (s *LanguageSuite) TestOwnedBackendFromConfig() {
	cfg := &config.ConfigurationDefault{
		BackendURL: "mem://",
		RuleFile:   s.ruleFile,
	}
	ctx := config.ToContext(s.T().Context(), cfg)

	lang, err := l10n.NewLanguage(ctx, "de", l10n.WithWorkers(s.workers))
	s.Require().NoError(err)
	s.True(lang.IsSupportComplete(ctx))
	s.Require().NoError(lang.Close())
	s.Require().NoError(lang.Close())

	cfg.BackendURL = "ftp://packages"
	_, err = l10n.NewLanguage(ctx, "de", l10n.WithWorkers(s.workers))
	s.Require().ErrorIs(err, l10n.ErrUnknownBackend)
}

func (s *LanguageSuite) TestBorrowedBackendIsNotClosed() {
	b := s.universe()

	lang, err := l10n.NewLanguage(s.T().Context(), "de", l10n.WithBackend(b))
	s.Require().NoError(err)
	s.Require().NoError(lang.Close())
	s.False(b.Closed())
}

func (s *LanguageSuite) TestOpenBackend() {
	testCases := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{name: "memory", dsn: "mem://"},
		{name: "apt", dsn: "apt://"},
		{name: "unknown", dsn: "yum://", wantErr: true},
		{name: "empty", dsn: "", wantErr: true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			b, err := l10n.OpenBackend(s.T().Context(), tc.dsn, s.workers)
			if tc.wantErr {
				s.Require().ErrorIs(err, l10n.ErrUnknownBackend)
				return
			}
			s.Require().NoError(err)
			s.Require().NoError(b.Close())
		})
	}
}
