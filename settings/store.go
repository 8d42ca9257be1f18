// Package settings is the key-value store holding the user's language
// preference. Stores are opened from a url:
//
//	file:///home/me/.config/l10n/locale.toml   toml or yaml file
//	mem://                                      process memory
//	redis://localhost:6379/0                    redis
//	valkey://localhost:6379                     valkey
//
// All stores are last-writer-wins.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	KeyLanguage = "Language"
	KeyCountry  = "Country"

	DefaultLanguage = "en_US"
	DefaultCountry  = "C"

	languageSeparator = ":"
	remoteKeyPrefix   = "l10n:locale:"
)

var (
	// ErrUnknownScheme is returned by Open for unsupported store urls.
	ErrUnknownScheme = errors.New("unknown settings store scheme")
	// ErrUnknownKey is returned when reading or writing keys other than
	// Language and Country.
	ErrUnknownKey = errors.New("unknown settings key")
)

// Store reads and writes the language settings.
type Store interface {
	// Read returns the stored value and whether the key was set.
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	Close() error
}

func validKey(key string) error {
	switch key {
	case KeyLanguage, KeyCountry:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Open selects a store implementation from the url scheme. A url without a
// scheme is treated as a file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid settings url %q: %w", dsn, err)
	}

	switch u.Scheme {
	case "", "file":
		path := u.Path
		if u.Scheme == "" {
			path = dsn
		}
		return NewFileStore(path)
	case "mem":
		return NewMemoryStore(), nil
	case "redis", "rediss":
		return NewRedisStore(ctx, dsn)
	case "valkey", "valkeys":
		return NewValkeyStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
	}
}

// Languages returns the configured language codes, first one being the main
// language. Missing or empty settings yield the default language.
func Languages(ctx context.Context, s Store) ([]string, error) {
	value, err := readOr(ctx, s, KeyLanguage, DefaultLanguage)
	if err != nil {
		return nil, err
	}

	var codes []string
	for _, code := range strings.Split(value, languageSeparator) {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	if len(codes) == 0 {
		codes = []string{DefaultLanguage}
	}
	return codes, nil
}

// Country returns the configured country, or the default.
func Country(ctx context.Context, s Store) (string, error) {
	return readOr(ctx, s, KeyCountry, DefaultCountry)
}

// SetLanguages stores the language list.
func SetLanguages(ctx context.Context, s Store, codes []string) error {
	return s.Write(ctx, KeyLanguage, strings.Join(codes, languageSeparator))
}

func readOr(ctx context.Context, s Store, key, fallback string) (string, error) {
	value, ok, err := s.Read(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return strings.TrimSpace(value), nil
}
