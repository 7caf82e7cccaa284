package drop

// PlatformMetadataDir is the junk directory some archivers add to zip files.
const PlatformMetadataDir = "__MACOSX"

// Archiver extracts archive files.
type Archiver interface {
	// Extension is the archive file extension, including the dot.
	Extension() string

	// Extract writes every entry of the archive at path under destDir.
	Extract(path, destDir string) error
}
