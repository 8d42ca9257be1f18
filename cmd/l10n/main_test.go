package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/config"
)

var fakeLocales = l10n.LocaleListerFunc(func(context.Context) ([]string, error) {
	return []string{"C.utf8", "de_AT.utf8", "en_US.utf8"}, nil
})

type CLISuite struct {
	suite.Suite
	dir         string
	settingsURL string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.settingsURL = "file://" + filepath.Join(s.dir, "locale.toml")

	s.T().Setenv("LOG_LEVEL", "error")
	s.T().Setenv("L10N_RULE_FILE", filepath.Join(s.dir, "pkg_depends"))
	s.T().Setenv("L10N_EVENTS_URL", "")
	s.T().Setenv("L10N_LOCALE_EXPORT_FILE", filepath.Join(s.dir, "env", "setlocale.sh"))
}

func (s *CLISuite) run(args ...string) (string, error) {
	var out bytes.Buffer

	root := newRootCommand(&app{lister: fakeLocales})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--env-file", filepath.Join(s.dir, "absent.env"),
		"--backend", "mem://",
		"--settings", s.settingsURL,
	}, args...))

	err := root.ExecuteContext(s.T().Context())
	return out.String(), err
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("version")
	s.Require().NoError(err)
	s.Equal("dev\n", out)
}

func (s *CLISuite) TestSetThenLocale() {
	out, err := s.run("set", "--language", "de,en_US", "--country", "at")
	s.Require().NoError(err)
	s.Equal("Settings saved\n", out)

	out, err = s.run("locale")
	s.Require().NoError(err)
	s.Equal("Locale de_AT.UTF-8, Sprachen de:en\n", out)
}

func (s *CLISuite) TestWriteEnv() {
	testCases := []struct {
		name     string
		args     []string
		prepare  func(path string)
		expected string
		content  string
	}{
		{
			name:     "writes the default export file",
			args:     []string{"write-env"},
			expected: "Wrote %s\n",
			content:  "export LANGUAGE=en\nexport LANG=en_US.UTF-8\n",
		},
		{
			name:     "skips a missing file",
			args:     []string{"write-env", "--if-exists"},
			expected: "%s does not exist, nothing to do\n",
		},
		{
			name: "rewrites an existing file",
			args: []string{"write-env", "--if-exists"},
			prepare: func(path string) {
				s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
				s.Require().NoError(os.WriteFile(path, []byte("export LANGUAGE=fr:en\n"), 0o600))
			},
			expected: "Wrote %s\n",
			content:  "export LANGUAGE=en\nexport LANG=en_US.UTF-8\n",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			path := filepath.Join(s.T().TempDir(), "env", "setlocale.sh")
			s.T().Setenv("L10N_LOCALE_EXPORT_FILE", path)

			_, err := s.run("set", "--language", "en_US", "--country", "us")
			s.Require().NoError(err)

			if tc.prepare != nil {
				tc.prepare(path)
			}

			out, err := s.run(tc.args...)
			s.Require().NoError(err)
			s.Equal(fmt.Sprintf(tc.expected, path), out)

			if tc.content == "" {
				s.NoFileExists(path)
				return
			}

			data, err := os.ReadFile(path)
			s.Require().NoError(err)
			s.Contains(string(data), tc.content)
		})
	}
}

func (s *CLISuite) TestWriteEnvWithoutExportFile() {
	s.T().Setenv("L10N_LOCALE_EXPORT_FILE", "")
	s.T().Setenv("HOME", "")

	_, err := s.run("write-env")
	s.Require().ErrorIs(err, config.ErrNoExportFile)
}

func (s *CLISuite) TestStatusAndInstallWithEmptyBackend() {
	out, err := s.run("status", "de")
	s.Require().NoError(err)
	s.Equal("Language support for de is complete\n", out)

	out, err = s.run("install")
	s.Require().NoError(err)
	s.Equal("Language support for en_US is complete\n", out)
}

func (s *CLISuite) TestLanguagesWithEmptyBackend() {
	out, err := s.run("languages", "--update")
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *CLISuite) TestUnknownBackend() {
	_, err := s.run("status", "--backend", "yum://")
	s.Require().ErrorIs(err, l10n.ErrUnknownBackend)
}
