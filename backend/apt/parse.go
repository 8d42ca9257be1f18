package apt

import (
	"bufio"
	"bytes"
	"math"
	"strconv"
	"strings"
)

func parsePackageNames(out []byte) map[string]struct{} {
	names := map[string]struct{}{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			names[name] = struct{}{}
		}
	}
	return names
}

// parseDpkgStatus reads "name\tabbrev\tversion" lines and keeps the packages
// dpkg reports as installed, keyed without architecture qualifier.
func parseDpkgStatus(out []byte) map[string]string {
	installed := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 {
			continue
		}

		status := strings.TrimSpace(fields[1])
		version := strings.TrimSpace(fields[2])
		if status != installedStatus || version == "" {
			continue
		}

		name, _, _ := strings.Cut(strings.TrimSpace(fields[0]), ":")
		installed[name] = version
	}
	return installed
}

// parseStatusLine understands the APT::Status-Fd protocol, e.g.
// "pmstatus:kde-l10n-de:42.5:Installing kde-l10n-de".
func parseStatusLine(line string) (int, bool) {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 3 {
		return 0, false
	}

	switch parts[0] {
	case "pmstatus", "dlstatus":
	default:
		return 0, false
	}

	value, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(value)), true
}
