package codes

// mapping is one row of the translation table.
type mapping struct {
	packageCode   string
	canonicalCode string
	otherCode     string
}

// codeMap is scanned linearly, first match wins. Codes that are not listed
// translate to themselves.
//
//nolint:gochecknoglobals // constant lookup table
var codeMap = []mapping{
	// package code   canonical code   archive package code
	{"engb", "en_GB", "en"},
	{"ca-valencia", "ca@valencia", "ca"},
	{"ptbr", "pt_BR", "pt"},
	{"zhcn", "zh_CN", "zh-hans"},
	{"zhtw", "zh_TW", "zh-hant"},
}

// ToOtherPackageCode returns the code used by the distribution archive's
// language packages (zh-hant) for a canonical code (zh_TW).
func ToOtherPackageCode(canonical string) string {
	for _, m := range codeMap {
		if m.canonicalCode != canonical {
			continue
		}
		if m.otherCode != "" && m.otherCode != m.packageCode {
			return m.otherCode
		}
		return m.packageCode
	}
	return canonical
}

// ToCanonicalCode returns the canonical code (zh_TW) for a package code (zhtw).
func ToCanonicalCode(packageCode string) string {
	for _, m := range codeMap {
		if m.packageCode == packageCode {
			return m.canonicalCode
		}
	}
	return packageCode
}

// ToPackageCode returns the package code (zhtw) for a canonical code (zh_TW).
func ToPackageCode(canonical string) string {
	for _, m := range codeMap {
		if m.canonicalCode == canonical {
			return m.packageCode
		}
	}
	return canonical
}
