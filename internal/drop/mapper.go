package drop

import "path/filepath"

// DefaultNestDirs are the top-level directory names that mark an archive as
// a self-contained unit to be nested under its own directory.
var DefaultNestDirs = []string{"email", "sms"}

// Destination is where staged content is copied to.
type Destination struct {
	Root   string
	Unit   ContentUnit
	Nested bool
}

// MapDestination decides where staged content belongs. If any of nestDirs
// appears among the staged top-level entries, the content goes under
// <targetRoot>/<unit>; otherwise directly under targetRoot.
//
// It only looks at its arguments, so the same listing always maps to the same
// destination.
func MapDestination(topLevel []string, unit ContentUnit, targetRoot string, nestDirs []string) Destination {
	for _, entry := range topLevel {
		for _, reserved := range nestDirs {
			if entry == reserved {
				return Destination{
					Root:   filepath.Join(targetRoot, unit.Name),
					Unit:   unit,
					Nested: true,
				}
			}
		}
	}
	return Destination{Root: targetRoot, Unit: unit}
}
