package rules

import "github.com/pitabwire/l10n/backend"

// PackageSet is an insertion ordered set of packages keyed by name.
type PackageSet struct {
	order []string
	pkgs  map[string]backend.Package
}

// NewPackageSet returns an empty set.
func NewPackageSet() *PackageSet {
	return &PackageSet{pkgs: map[string]backend.Package{}}
}

// Add inserts pkg unless a package of that name is already present.
func (s *PackageSet) Add(pkg backend.Package) bool {
	if s.Contains(pkg.Name()) {
		return false
	}
	s.order = append(s.order, pkg.Name())
	s.pkgs[pkg.Name()] = pkg
	return true
}

func (s *PackageSet) Contains(name string) bool {
	_, ok := s.pkgs[name]
	return ok
}

func (s *PackageSet) Len() int {
	return len(s.order)
}

func (s *PackageSet) IsEmpty() bool {
	return s.Len() == 0
}

// Names returns the package names in insertion order, never nil.
func (s *PackageSet) Names() []string {
	return append(make([]string, 0, len(s.order)), s.order...)
}

// Packages returns the packages in insertion order.
func (s *PackageSet) Packages() []backend.Package {
	out := make([]backend.Package, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.pkgs[name])
	}
	return out
}
