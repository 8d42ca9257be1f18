package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pitabwire/util"
	"github.com/spf13/cobra"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/settings"
	"github.com/pitabwire/l10n/workerpool"
)

// app carries what every command needs once the root command ran its setup.
type app struct {
	cfg      *config.ConfigurationDefault
	workers  workerpool.Manager
	store    settings.Store
	messages localization.Manager
	lister   l10n.LocaleLister
	out      io.Writer

	envFile     string
	backendURL  string
	settingsURL string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&app{lister: l10n.SystemLocales{}}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "l10n",
		Short:             "Check and complete language support and export the system locale",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file loaded before the configuration")
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "package backend url, overrides L10N_BACKEND")
	root.PersistentFlags().StringVar(&a.settingsURL, "settings", "", "settings store url, overrides L10N_SETTINGS_URL")

	root.AddCommand(
		newStatusCommand(a),
		newInstallCommand(a),
		newLocaleCommand(a),
		newWriteEnvCommand(a),
		newLanguagesCommand(a),
		newSetCommand(a),
		newVersionCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load %s: %w", a.envFile, err)
	}

	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return err
	}
	if a.backendURL != "" {
		cfg.BackendURL = a.backendURL
	}
	if a.settingsURL != "" {
		cfg.SettingsURL = a.settingsURL
	}
	a.cfg = &cfg

	ctx := cmd.Context()
	ctx = util.ContextWithLogger(ctx, newLogger(ctx, a.cfg))
	ctx = config.ToContext(ctx, a.cfg)

	a.workers, err = workerpool.NewManager(ctx, a.cfg)
	if err != nil {
		return err
	}

	a.store, err = settings.Open(ctx, a.cfg.GetSettingsURL())
	if err != nil {
		return err
	}

	a.messages, err = localization.NewManager()
	if err != nil {
		return err
	}

	if loc, locErr := l10n.LocaleFromSettings(ctx, a.store); locErr == nil {
		ctx = localization.ToContext(ctx, loc.SystemLanguages())
	}

	a.out = cmd.OutOrStdout()
	cmd.SetContext(ctx)
	return nil
}

func newLogger(ctx context.Context, cfg config.ConfigurationLogLevel) *util.LogEntry {
	var opts []util.Option

	logLevel, err := util.ParseLevel(cfg.LoggingLevel())
	if err == nil {
		opts = append(opts, util.WithLogLevel(logLevel))
	}
	opts = append(opts,
		util.WithLogTimeFormat(cfg.LoggingTimeFormat()),
		util.WithLogNoColor(!cfg.LoggingColored()),
		util.WithLogOutput(os.Stderr))
	if cfg.LoggingShowStackTrace() {
		opts = append(opts, util.WithLogStackTrace())
	}

	return util.NewLogger(ctx, opts...)
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.workers != nil {
		errs = append(errs, a.workers.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (a *app) say(ctx context.Context, messageID string, variables map[string]any) {
	a.sayCount(ctx, messageID, variables, 1)
}

func (a *app) sayCount(ctx context.Context, messageID string, variables map[string]any, count int) {
	fmt.Fprintln(a.out, a.messages.TranslateWithMapAndCount(ctx, ctx, messageID, variables, count))
}
