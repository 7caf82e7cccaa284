package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "!", "*.psd"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.psd" {
			t.Errorf("expected *.psd, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.psd", "drafts/**", "!keep.psd"})
		if m.patterns[0].matchPath {
			t.Error("*.psd should not be a path pattern")
		}
		if !m.patterns[1].matchPath {
			t.Error("drafts/** should be a path pattern")
		}
		if !m.patterns[2].negate || m.patterns[2].pattern != "keep.psd" {
			t.Errorf("!keep.psd parsed as %+v", m.patterns[2])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob in root", []string{"*.psd"}, "hero.psd", true},
		{"basename glob in subdirectory", []string{"*.psd"}, filepath.Join("images", "hero.psd"), true},
		{"basename glob other extension", []string{"*.psd"}, "hero.png", false},
		{"exact basename in subdirectory", []string{"Thumbs.db"}, filepath.Join("images", "Thumbs.db"), true},
		{"path pattern", []string{"email/source"}, filepath.Join("email", "source"), true},
		{"path pattern wrong parent", []string{"email/source"}, filepath.Join("sms", "source"), false},
		{"double star", []string{"drafts/**"}, filepath.Join("drafts", "2026", "post.html"), true},
		{"negation re-includes", []string{"*.psd", "!keep.psd"}, "keep.psd", false},
		{"later pattern wins", []string{"!keep.psd", "*.psd"}, "keep.psd", true},
		{"negation leaves others ignored", []string{"*.psd", "!keep.psd"}, "other.psd", true},
		{"no patterns", nil, "anything.txt", false},
		{"empty path", []string{"*.psd"}, "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewIgnoreMatcher(tt.patterns).Match(tt.relativePath)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_With(t *testing.T) {
	base := NewIgnoreMatcher([]string{"*.psd"})
	combined := base.With([]string{"*.sketch"})

	if !combined.Match("a.psd") || !combined.Match("a.sketch") {
		t.Error("combined matcher should apply both pattern sets")
	}
	if base.Match("a.sketch") {
		t.Error("With must not modify the receiver")
	}

	var none *IgnoreMatcher
	if none.Match("a.psd") {
		t.Error("nil matcher should match nothing")
	}
	if !none.With([]string{"*.psd"}).Match("a.psd") {
		t.Error("With on nil matcher should use the extra patterns")
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.psd\n# comment\n\n!keep.psd\ndrafts/**\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		// Raw lines are returned; filtering is NewIgnoreMatcher's job.
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
