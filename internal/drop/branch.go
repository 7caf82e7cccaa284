package drop

import (
	"fmt"
	"strings"
	"unicode"
)

// BranchSuffix marks publish branches so CI skips building them.
const BranchSuffix = "-no-build"

// DefaultInitials is used when no initials can be derived from the username.
const DefaultInitials = "xx"

// Initials derives the branch prefix from an account name.
//
// The name is split on '.', '_', '-' and whitespace. With two or more
// segments the result is the first letter of the first and the last segment;
// with one segment it is that segment's first two letters. The result is
// lower-cased and limited to letters and digits.
func Initials(username string) string {
	// Drop a DOMAIN\ prefix.
	if i := strings.LastIndex(username, `\`); i >= 0 {
		username = username[i+1:]
	}

	segments := strings.FieldsFunc(username, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var clean []string
	for _, seg := range segments {
		if s := keepAlnum(seg); s != "" {
			clean = append(clean, s)
		}
	}

	switch len(clean) {
	case 0:
		return DefaultInitials
	case 1:
		r := []rune(clean[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToLower(string(r))
	default:
		first := []rune(clean[0])[0]
		last := []rune(clean[len(clean)-1])[0]
		return strings.ToLower(string([]rune{first, last}))
	}
}

func keepAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// BranchName builds "<initials>/<unit>-<suffix>-no-build". suffix should be
// random so repeated runs for the same unit never collide.
func BranchName(initials string, unit ContentUnit, suffix string) string {
	return fmt.Sprintf("%s/%s-%s%s", initials, unit.Name, suffix, BranchSuffix)
}

// randomSuffix shortens a generated id to eight characters.
func randomSuffix(idgen IDGenerator) string {
	id := strings.ReplaceAll(idgen.New(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
