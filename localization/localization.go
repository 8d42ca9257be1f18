// Package localization translates the command line output into the user's
// configured languages.
package localization

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

// Message ids of the bundled catalogues.
const (
	MsgSupportComplete   = "SupportComplete"
	MsgSupportIncomplete = "SupportIncomplete"
	MsgInstallProgress   = "InstallProgress"
	MsgInstallSucceeded  = "InstallSucceeded"
	MsgInstallFailed     = "InstallFailed"
	MsgIndexProgress     = "IndexProgress"
	MsgLocaleSummary     = "LocaleSummary"
	MsgExportWritten     = "ExportWritten"
	MsgExportSkipped     = "ExportSkipped"
	MsgSettingsSaved     = "SettingsSaved"
)

//go:embed messages/*.toml
var catalogues embed.FS

// Languages with a bundled catalogue.
var Languages = []string{"en", "de"}

type contextKey string

func (c contextKey) String() string {
	return "l10n/localization/" + string(c)
}

const ctxKeyLanguage = contextKey("languageKey")

// ToContext adds language to the current supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts language from the supplied context if any exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

// FromLanguageSequence splits a LANGUAGE style value such as de:fr:en.
func FromLanguageSequence(value string) []string {
	var out []string
	for _, lang := range strings.Split(value, ":") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}

type Manager interface {
	Bundle() *i18n.Bundle
	Translate(ctx context.Context, request any, messageID string) string
	TranslateWithMap(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
	) string
	TranslateWithMapAndCount(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
		count int,
	) string
}

type managerImpl struct {
	bundle *i18n.Bundle
}

// NewManager loads the bundled catalogues of languages, all of them when
// none is given.
func NewManager(languages ...string) (Manager, error) {
	if len(languages) == 0 {
		languages = Languages
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, lang := range languages {
		if _, err := bundle.LoadMessageFileFS(catalogues, fmt.Sprintf("messages/messages.%v.toml", lang)); err != nil {
			return nil, err
		}
	}

	return &managerImpl{bundle: bundle}, nil
}

// Bundle Access the translation bundle instantiated in the system.
func (s *managerImpl) Bundle() *i18n.Bundle {
	return s.bundle
}

// Translate performs a quick translation based on the supplied message id.
func (s *managerImpl) Translate(ctx context.Context, request any, messageID string) string {
	return s.TranslateWithMap(ctx, request, messageID, map[string]any{})
}

// TranslateWithMap performs a translation with variables based on the supplied message id.
func (s *managerImpl) TranslateWithMap(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
) string {
	return s.TranslateWithMapAndCount(ctx, request, messageID, variables, 1)
}

// TranslateWithMapAndCount performs a translation with variables based on the
// supplied message id and can pluralize. request selects the languages: a
// string, a []string, or a context carrying languages from ToContext.
func (s *managerImpl) TranslateWithMapAndCount(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
	count int,
) string {
	var languageSlice []string

	switch v := request.(type) {
	case context.Context:
		languageSlice = FromContext(v)

	case string:
		languageSlice = FromLanguageSequence(v)

	case []string:
		languageSlice = v

	default:
		logger := util.Log(ctx).WithField("messageID", messageID).WithField("variables", variables)
		logger.Warn("no valid request object found, use string, []string or context")
		return messageID
	}

	if len(languageSlice) == 0 {
		languageSlice = FromContext(ctx)
	}

	localizer := i18n.NewLocalizer(s.Bundle(), languageSlice...)

	transVersion, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:      messageID,
		DefaultMessage: &i18n.Message{ID: messageID, Other: messageID},
		TemplateData:   variables,
		PluralCount:    count,
	})

	if err != nil {
		logger := util.Log(ctx).WithError(err).WithField("messageID", messageID)
		logger.Error("could not perform translation")
	}

	return transVersion
}
