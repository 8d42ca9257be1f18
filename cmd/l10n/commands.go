package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pitabwire/util"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/codes"
	"github.com/pitabwire/l10n/events"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/settings"
	"github.com/pitabwire/l10n/version"
)

func codeArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *app) language(ctx context.Context, code string, opts ...l10n.Option) (*l10n.Language, error) {
	opts = append([]l10n.Option{
		l10n.WithWorkers(a.workers),
		l10n.WithSettings(a.store),
	}, opts...)
	return l10n.NewLanguage(ctx, code, opts...)
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [code]",
		Short: "Report whether the support of a language is complete",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lang, err := a.language(ctx, codeArg(args))
			if err != nil {
				return err
			}
			defer lang.Close()

			if lang.IsSupportComplete(ctx) {
				a.say(ctx, localization.MsgSupportComplete, map[string]any{"Language": lang.Code()})
				return nil
			}

			missing := lang.MissingPackages()
			a.sayCount(ctx, localization.MsgSupportIncomplete,
				map[string]any{"Language": lang.Code(), "Count": len(missing)}, len(missing))
			for _, name := range missing {
				fmt.Fprintln(a.out, "  "+name)
			}
			return nil
		},
	}
}

func newInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install [code]",
		Short: "Install the packages missing for a language and wait for the outcome",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			code := codeArg(args)
			if code == "" {
				preferred, err := settings.Languages(ctx, a.store)
				if err != nil {
					return err
				}
				code = preferred[0]
			}

			progress := l10n.ObserverFuncs{
				Progress: func(percent int) {
					a.say(ctx, localization.MsgInstallProgress, map[string]any{"Progress": percent})
				},
			}

			var observer l10n.SupportObserver = progress
			if url := a.cfg.GetEventsURL(); url != "" {
				publisher := events.NewPublisher(url)
				if err := publisher.Init(ctx); err != nil {
					util.Log(ctx).WithError(err).WithField("url", url).Warn("support events disabled")
				} else {
					defer publisher.Stop(ctx)
					observer = publisher.Observer(ctx, code, progress)
				}
			}

			lang, err := a.language(ctx, code, l10n.WithObserver(observer))
			if err != nil {
				return err
			}
			defer lang.Close()

			if lang.IsSupportComplete(ctx) {
				a.say(ctx, localization.MsgSupportComplete, map[string]any{"Language": lang.Code()})
				return nil
			}

			lang.CompleteSupport(ctx)
			if err = lang.Wait(ctx); err != nil {
				a.say(ctx, localization.MsgInstallFailed, map[string]any{"Language": lang.Code(), "Error": err})
				return err
			}

			a.say(ctx, localization.MsgInstallSucceeded, map[string]any{"Language": lang.Code()})
			return nil
		},
	}
}

func newLocaleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locale",
		Short: "Print the system locale derived from the language settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			loc, err := l10n.LocaleFromSettings(ctx, a.store)
			if err != nil {
				return err
			}

			a.say(ctx, localization.MsgLocaleSummary, map[string]any{
				"Locale":    loc.SystemLocaleString(),
				"Languages": loc.SystemLanguagesString(),
			})
			return nil
		},
	}
}

func newWriteEnvCommand(a *app) *cobra.Command {
	var ifExists bool

	cmd := &cobra.Command{
		Use:   "write-env [path]",
		Short: "Write the shell script exporting LANGUAGE, LANG and the LC_* variables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path := codeArg(args)
			if path == "" {
				var err error
				if path, err = a.cfg.GetExportFile(); err != nil {
					return fmt.Errorf("pass the export file path: %w", err)
				}
			}

			loc, err := l10n.LocaleFromSettings(ctx, a.store)
			if err != nil {
				return err
			}

			if !ifExists {
				if err = loc.WriteToFile(ctx, path, a.lister); err != nil {
					return err
				}
				a.say(ctx, localization.MsgExportWritten, map[string]any{"Path": path})
				return nil
			}

			written, err := loc.RewriteIfExists(ctx, path, a.lister)
			if err != nil {
				return err
			}
			if written {
				a.say(ctx, localization.MsgExportWritten, map[string]any{"Path": path})
			} else {
				a.say(ctx, localization.MsgExportSkipped, map[string]any{"Path": path})
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "only rewrite an existing file")
	return cmd
}

func newLanguagesCommand(a *app) *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages localization packages are available for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := l10n.OpenBackend(ctx, a.cfg.GetBackendURL(), a.workers)
			if err != nil {
				return err
			}

			collection := l10n.NewLanguageCollection(ctx, b,
				l10n.WithCollectionPrefix(a.cfg.GetCollectionPrefix()),
				l10n.WithCollectionObserver(&indexProgress{ctx: ctx, app: a}))
			defer collection.Close()

			if update {
				if err = collection.Update(ctx); err != nil {
					return err
				}
			}

			langs, err := collection.Languages(ctx)
			if err != nil {
				return err
			}

			display := language.English
			if preferred := localization.FromContext(ctx); len(preferred) > 0 {
				display = language.Make(preferred[0])
			}

			for _, lang := range langs {
				fmt.Fprintf(a.out, "%-14s %s\n", lang.Code(), codes.DisplayName(lang.Code(), display))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "update the package index first")
	return cmd
}

type indexProgress struct {
	ctx context.Context
	app *app
}

func (p *indexProgress) UpdateProgress(percent int) {
	p.app.say(p.ctx, localization.MsgIndexProgress, map[string]any{"Progress": percent})
}

func (p *indexProgress) Updated() {}

func newSetCommand(a *app) *cobra.Command {
	var languages, country string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the language preference and country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if languages != "" {
				list := strings.FieldsFunc(languages, func(r rune) bool { return r == ',' || r == ':' })
				if err := settings.SetLanguages(ctx, a.store, list); err != nil {
					return err
				}
			}

			if country != "" {
				if err := a.store.Write(ctx, settings.KeyCountry, country); err != nil {
					return err
				}
			}

			a.say(ctx, localization.MsgSettingsSaved, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&languages, "language", "", "languages in order of preference, e.g. de,en_US")
	cmd.Flags().StringVar(&country, "country", "", "country code, e.g. AT")
	return cmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(a.out, version.String())
			return nil
		},
	}
}
