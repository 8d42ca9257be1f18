package rules

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
)

// Target identifies the language being resolved in both code namespaces.
type Target struct {
	// Code is the canonical language code, e.g. zh_TW.
	Code string
	// ArchiveCode is the distribution archive code, e.g. zh-hant.
	ArchiveCode string
}

// Resolver computes the packages missing for a language.
type Resolver struct {
	backend backend.Backend
}

// NewResolver creates a resolver looking packages up in b.
func NewResolver(b backend.Backend) *Resolver {
	return &Resolver{backend: b}
}

// Resolve walks the rules in order and collects every package that exists in
// the backend, is not installed and is required by an applicable rule.
// The result is never nil.
func (r *Resolver) Resolve(ctx context.Context, rules []Rule, target Target) *PackageSet {
	missing := NewPackageSet()
	log := util.Log(ctx).WithField("language", target.Code)

	for _, rule := range rules {
		if !rule.Column.Known() {
			continue
		}

		if !rule.AppliesTo(target.ArchiveCode) {
			continue
		}

		if rule.Condition != "" && !r.installed(ctx, rule.Condition) {
			continue
		}

		for _, name := range candidates(rule, target) {
			if r.addIfMissing(ctx, missing, name) {
				log.WithField("package", name).WithField("column", string(rule.Column)).
					Debug("package required for language support")
			}
		}
	}

	return missing
}

func candidates(rule Rule, target Target) []string {
	if rule.Prefix == "" {
		return nil
	}

	if !rule.PerLanguage() {
		return []string{rule.Prefix}
	}

	return []string{rule.Prefix + target.Code, rule.Prefix + target.ArchiveCode}
}

func (r *Resolver) installed(ctx context.Context, name string) bool {
	pkg, ok := r.backend.Package(ctx, name)
	return ok && pkg.InstalledVersion() != ""
}

func (r *Resolver) addIfMissing(ctx context.Context, missing *PackageSet, name string) bool {
	if missing.Contains(name) {
		return false
	}

	pkg, ok := r.backend.Package(ctx, name)
	if !ok || pkg.IsInstalled() {
		return false
	}

	return missing.Add(pkg)
}
