package config

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestContextHelpersAndKeyString() {
	ctx := context.Background()
	cfg := ConfigurationDefault{RuleFile: "/tmp/rules"}

	s.Equal("l10n/config/configurationKey", ctxKeyConfiguration.String())

	ctx = ToContext(ctx, cfg)
	fromCtx := FromContext[ConfigurationDefault](ctx)
	s.Equal("/tmp/rules", fromCtx.RuleFile)

	missing := FromContext[*ConfigurationDefault](context.Background())
	s.Nil(missing)
}

func (s *ConfigSuite) TestFromEnvDefaults() {
	cfg, err := FromEnv[ConfigurationDefault]()
	s.Require().NoError(err)

	s.Equal("info", cfg.LoggingLevel())
	s.Equal(DefaultRuleFile, cfg.GetRuleFile())
	s.Equal(DefaultCollectionPrefix, cfg.GetCollectionPrefix())
	s.Equal("apt://", cfg.GetBackendURL())
	s.Empty(cfg.GetEventsURL())
	s.True(strings.HasPrefix(cfg.GetSettingsURL(), "file://"))
	s.True(strings.HasSuffix(cfg.GetSettingsURL(), filepath.Join("l10n", "locale.toml")))

	_, ok := cfg.GetManualProxy()
	s.False(ok)
}

func (s *ConfigSuite) TestSettingsURLEscapesPath() {
	testCases := []struct {
		name string
		dir  string
	}{
		{name: "plain", dir: "config"},
		{name: "hash", dir: "my#config"},
		{name: "percent", dir: "100%config"},
		{name: "space and query", dir: "a b?c"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			dir := filepath.Join(s.T().TempDir(), tc.dir)
			s.T().Setenv("XDG_CONFIG_HOME", dir)
			s.T().Setenv("HOME", dir)

			var cfg ConfigurationDefault
			dsn := cfg.GetSettingsURL()

			u, err := url.Parse(dsn)
			s.Require().NoError(err)
			s.Equal("file", u.Scheme)

			configDir, err := os.UserConfigDir()
			s.Require().NoError(err)
			s.Equal(filepath.Join(configDir, "l10n", "locale.toml"), u.Path)
			s.Empty(u.Fragment)
			s.Empty(u.RawQuery)
		})
	}
}

func (s *ConfigSuite) TestExportFile() {
	s.Run("home fallback", func() {
		home := s.T().TempDir()
		s.T().Setenv("HOME", home)

		var cfg ConfigurationDefault
		path, err := cfg.GetExportFile()
		s.Require().NoError(err)
		s.Equal(filepath.Join(home, ".kde", "env", "setlocale.sh"), path)
	})

	s.Run("no home", func() {
		s.T().Setenv("HOME", "")

		var cfg ConfigurationDefault
		path, err := cfg.GetExportFile()
		s.Require().ErrorIs(err, ErrNoExportFile)
		s.Empty(path)
	})
}

func (s *ConfigSuite) TestFromEnvOverrides() {
	s.T().Setenv("L10N_RULE_FILE", "/etc/rules")
	s.T().Setenv("L10N_HTTP_PROXY", " http://proxy:3128 ")
	s.T().Setenv("L10N_SETTINGS_URL", "mem://")
	s.T().Setenv("L10N_LOCALE_EXPORT_FILE", "/tmp/env.sh")
	s.T().Setenv("LOG_LEVEL", "debug")

	var cfg ConfigurationDefault
	s.Require().NoError(FillEnv(&cfg))

	s.Equal("/etc/rules", cfg.GetRuleFile())
	s.Equal("mem://", cfg.GetSettingsURL())
	exportFile, err := cfg.GetExportFile()
	s.Require().NoError(err)
	s.Equal("/tmp/env.sh", exportFile)
	s.True(cfg.LoggingLevelIsDebug())

	proxy, ok := cfg.GetManualProxy()
	s.True(ok)
	s.Equal("http://proxy:3128", proxy)
}

func (s *ConfigSuite) TestWorkerPoolGetters() {
	testCases := []struct {
		name     string
		expiry   string
		expected time.Duration
	}{
		{name: "valid duration", expiry: "3s", expected: 3 * time.Second},
		{name: "invalid duration", expiry: "soon", expected: time.Second},
		{name: "empty duration", expiry: "", expected: time.Second},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := &ConfigurationDefault{
				WorkerPoolCPUFactorForWorkerCount: 3,
				WorkerPoolCapacity:                64,
				WorkerPoolCount:                   8,
				WorkerPoolExpiryDuration:          tc.expiry,
			}
			s.Equal(3, cfg.GetCPUFactor())
			s.Equal(64, cfg.GetCapacity())
			s.Equal(8, cfg.GetCount())
			s.Equal(tc.expected, cfg.GetExpiryDuration())
		})
	}
}
