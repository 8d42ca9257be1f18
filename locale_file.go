package l10n

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pitabwire/util"
)

const (
	exportDirPermissions  = 0o755
	exportFilePermissions = 0o644
)

// localeCategories are exported after LANG, in this order.
var localeCategories = []string{
	"LC_NUMERIC",
	"LC_TIME",
	"LC_MONETARY",
	"LC_PAPER",
	"LC_IDENTIFICATION",
	"LC_NAME",
	"LC_ADDRESS",
	"LC_TELEPHONE",
	"LC_MEASUREMENT",
}

// LocaleLister enumerates the locales installed on the system.
type LocaleLister interface {
	InstalledLocales(ctx context.Context) ([]string, error)
}

// LocaleListerFunc adapts a function to LocaleLister.
type LocaleListerFunc func(ctx context.Context) ([]string, error)

func (f LocaleListerFunc) InstalledLocales(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// SystemLocales lists locales with `locale -a`.
type SystemLocales struct{}

func (SystemLocales) InstalledLocales(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "locale", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("could not list installed locales: %w", err)
	}

	var locales []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			locales = append(locales, line)
		}
	}
	return locales, scanner.Err()
}

// localeKey reduces a locale name to the parts compared when checking if it
// is installed: lower-cased, without encoding.
func localeKey(name string) (string, string) {
	name = strings.ToLower(name)

	base, variant, _ := strings.Cut(name, "@")
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return base, variant
}

// IsInstalled reports whether the system provides the locale. Names are
// compared case-insensitively without encoding; the variant is only
// compared when an installed locale of the same name carries one.
func (l *Locale) IsInstalled(ctx context.Context, lister LocaleLister) bool {
	installed, err := lister.InstalledLocales(ctx)
	if err != nil {
		util.Log(ctx).WithError(err).Debug("installed locales unknown, treating locale as missing")
		return false
	}

	wantBase, wantVariant := localeKey(l.SystemLocaleString())

	variantListed := false
	baseListed := false
	for _, entry := range installed {
		base, variant := localeKey(entry)
		if base != wantBase {
			continue
		}
		if variant == wantVariant {
			return true
		}
		if variant == "" {
			baseListed = true
		} else {
			variantListed = true
		}
	}

	return baseListed && !variantListed
}

// Export renders the export file content. LANG and the LC_* categories are
// only included when installed is true.
func (l *Locale) Export(installed bool) string {
	var b strings.Builder
	writeExport(&b, "LANGUAGE", l.SystemLanguagesString())

	if installed {
		locale := l.SystemLocaleString()
		writeExport(&b, "LANG", locale)
		for _, category := range localeCategories {
			writeExport(&b, category, locale)
		}
	}
	return b.String()
}

func writeExport(b *strings.Builder, key, value string) {
	b.WriteString("export ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(value)
	b.WriteString("\n")
}

// WriteToFile writes the shell export script to path, replacing it
// atomically. A locale the system cannot provide only exports LANGUAGE.
// Only I/O failures are returned.
func (l *Locale) WriteToFile(ctx context.Context, path string, lister LocaleLister) error {
	if lister == nil {
		lister = SystemLocales{}
	}

	installed := l.IsInstalled(ctx, lister)
	if !installed {
		util.Log(ctx).WithField("locale", l.SystemLocaleString()).
			Info("locale not installed, exporting LANGUAGE only")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, exportDirPermissions); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(l.Export(installed)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(exportFilePermissions); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// RewriteIfExists refreshes an existing export file and leaves a missing one
// alone. It reports whether the file was written.
func (l *Locale) RewriteIfExists(ctx context.Context, path string, lister LocaleLister) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if err := l.WriteToFile(ctx, path, lister); err != nil {
		return false, err
	}
	return true, nil
}
