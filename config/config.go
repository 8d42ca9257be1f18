package config

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "l10n/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	DefaultRuleFile         = "/usr/share/language-selector/data/pkg_depends"
	DefaultCollectionPrefix = "kde-l10n-"
	defaultSettingsFile     = "l10n/locale.toml"
	defaultExportFile       = ".kde/env/setlocale.sh"
)

// ErrNoExportFile is returned when no export file is configured and the
// user's home directory is unknown.
var ErrNoExportFile = errors.New("no locale export file configured and no home directory")

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	// Worker pool settings
	WorkerPoolCPUFactorForWorkerCount int    `envDefault:"2"  env:"WORKER_POOL_CPU_FACTOR_FOR_WORKER_COUNT" yaml:"worker_pool_cpu_factor_for_worker_count"`
	WorkerPoolCapacity                int    `envDefault:"16" env:"WORKER_POOL_CAPACITY"                    yaml:"worker_pool_capacity"`
	WorkerPoolCount                   int    `envDefault:"1"  env:"WORKER_POOL_COUNT"                       yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration          string `envDefault:"1s" env:"WORKER_POOL_EXPIRY_DURATION"             yaml:"worker_pool_expiry_duration"`

	RuleFile         string `envDefault:"/usr/share/language-selector/data/pkg_depends" env:"L10N_RULE_FILE"         yaml:"rule_file"`
	SettingsURL      string `envDefault:""                                               env:"L10N_SETTINGS_URL"      yaml:"settings_url"`
	BackendURL       string `envDefault:"apt://"                                         env:"L10N_BACKEND"           yaml:"backend"`
	CollectionPrefix string `envDefault:"kde-l10n-"                                      env:"L10N_COLLECTION_PREFIX" yaml:"collection_prefix"`
	ExportFile       string `envDefault:""                                               env:"L10N_LOCALE_EXPORT_FILE" yaml:"locale_export_file"`
	HTTPProxy        string `envDefault:""                                               env:"L10N_HTTP_PROXY"        yaml:"http_proxy"`
	EventsURL        string `envDefault:""                                               env:"L10N_EVENTS_URL"        yaml:"events_url"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationWorkerPool interface {
	GetCPUFactor() int
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCPUFactor() int {
	return c.WorkerPoolCPUFactorForWorkerCount
}

func (c *ConfigurationDefault) GetCapacity() int {
	return c.WorkerPoolCapacity
}

func (c *ConfigurationDefault) GetCount() int {
	return c.WorkerPoolCount
}

func (c *ConfigurationDefault) GetExpiryDuration() time.Duration {
	if c.WorkerPoolExpiryDuration != "" {
		duration, err := time.ParseDuration(c.WorkerPoolExpiryDuration)
		if err == nil {
			return duration
		}
	}

	return time.Second
}

// ConfigurationLocalization groups the settings of the language support layer.
type ConfigurationLocalization interface {
	GetRuleFile() string
	GetSettingsURL() string
	GetBackendURL() string
	GetCollectionPrefix() string
	GetExportFile() (string, error)
	GetManualProxy() (string, bool)
	GetEventsURL() string
}

var _ ConfigurationLocalization = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetRuleFile() string {
	if c.RuleFile == "" {
		return DefaultRuleFile
	}
	return c.RuleFile
}

// GetSettingsURL falls back to a toml file below the user's config directory.
func (c *ConfigurationDefault) GetSettingsURL() string {
	if c.SettingsURL != "" {
		return c.SettingsURL
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return (&url.URL{Scheme: "file", Path: filepath.Join(dir, defaultSettingsFile)}).String()
}

func (c *ConfigurationDefault) GetBackendURL() string {
	return c.BackendURL
}

func (c *ConfigurationDefault) GetCollectionPrefix() string {
	if c.CollectionPrefix == "" {
		return DefaultCollectionPrefix
	}
	return c.CollectionPrefix
}

// GetExportFile falls back to the KDE env script in the user's home.
func (c *ConfigurationDefault) GetExportFile() (string, error) {
	if c.ExportFile != "" {
		return c.ExportFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoExportFile
	}
	return filepath.Join(home, defaultExportFile), nil
}

// GetManualProxy reports the manually configured proxy, if any.
func (c *ConfigurationDefault) GetManualProxy() (string, bool) {
	proxy := strings.TrimSpace(c.HTTPProxy)
	return proxy, proxy != ""
}

// GetEventsURL is the pubsub topic support events are published to. Empty
// disables publishing.
func (c *ConfigurationDefault) GetEventsURL() string {
	return c.EventsURL
}
