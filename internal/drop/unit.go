package drop

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeRefChar = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// ContentUnit is the logical name of one archive's payload. It names the
// publish branch and, when nesting applies, the destination subdirectory.
type ContentUnit struct {
	Name    string // normalized, safe for branch names and directory names
	Archive string // base filename of the archive it came from
}

// NewContentUnit derives a content unit from an archive filename.
func NewContentUnit(archiveName string) ContentUnit {
	base := filepath.Base(archiveName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return ContentUnit{Name: NormalizeUnitName(name), Archive: base}
}

// NormalizeUnitName replaces whitespace runs with "-" and every other
// character that is unsafe in a ref name with "-".
func NormalizeUnitName(name string) string {
	name = strings.TrimSpace(name)
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = unsafeRefChar.ReplaceAllString(name, "-")
	name = strings.Trim(name, ".")
	if name == "" {
		return "unnamed"
	}
	return name
}
