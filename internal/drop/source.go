package drop

import "context"

// ArchiveSource resolves where archives come from. Local sources return the
// location unchanged; remote sources download the selected archive into
// downloadDir and return the local path.
type ArchiveSource interface {
	// Fetch resolves location to a local file or directory.
	Fetch(ctx context.Context, location, downloadDir string) (string, error)

	// Remote reports whether location is served by a remote backend.
	Remote(location string) bool
}
