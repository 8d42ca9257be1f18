package l10n_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/backend/memory"
	"github.com/pitabwire/l10n/workerpool"
)

const testRules = `tr:::kde-l10n-
tr::firefox:firefox-locale-
tr::thunderbird:thunderbird-locale-
wa:::hunspell-
fn:zh-hans::fonts-arphic-ukai
xx:::ignored-
`

const waitTimeout = 5 * time.Second

// baseSuite provides a worker pool and a rule file shared by the root
// package suites.
type baseSuite struct {
	suite.Suite
	workers  workerpool.Manager
	ruleFile string
}

func (s *baseSuite) SetupTest() {
	workers, err := workerpool.NewManager(s.T().Context(), nil)
	s.Require().NoError(err)
	s.workers = workers

	s.ruleFile = filepath.Join(s.T().TempDir(), "pkg_depends")
	s.Require().NoError(os.WriteFile(s.ruleFile, []byte(testRules), 0o600))
}

func (s *baseSuite) TearDownTest() {
	s.Require().NoError(s.workers.Shutdown(context.Background()))
}

func (s *baseSuite) universe(opts ...memory.Option) *memory.Backend {
	opts = append([]memory.Option{memory.WithPackages(map[string]string{
		"kde-l10n-de":            "",
		"kde-l10n-zhcn":          "",
		"kde-l10n-zh_CN":         "",
		"firefox":                "120.0",
		"firefox-locale-de":      "",
		"firefox-locale-zh-hans": "",
		"thunderbird":            "",
		"thunderbird-locale-de":  "",
		"hunspell-de":            "",
		"hunspell-fr":            "1:2.0",
		"kde-l10n-fr":            "4:4.14",
		"fonts-arphic-ukai":      "",
		"ignored-de":             "",
	})}, opts...)
	return memory.New(s.workers, opts...)
}

func (s *baseSuite) waitCtx() context.Context {
	ctx, cancel := context.WithTimeout(s.T().Context(), waitTimeout)
	s.T().Cleanup(cancel)
	return ctx
}

// recorder collects support completion notifications.
type recorder struct {
	mu       sync.Mutex
	progress []int
	complete int
	failures []error
}

func (r *recorder) SupportCompletionProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, percent)
}

func (r *recorder) SupportComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

func (r *recorder) SupportCompletionFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recorder) snapshot() ([]int, int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...), r.complete, append([]error(nil), r.failures...)
}

var _ l10n.SupportObserver = (*recorder)(nil)
