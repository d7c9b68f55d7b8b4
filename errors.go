package dnxdeps

import "errors"

// Sentinel errors for common context failures.
var (
	// ErrNoManifest indicates the project directory has no project.json.
	ErrNoManifest = errors.New("no project manifest")

	// ErrNilProject indicates a nil *manifest.Project was passed.
	ErrNilProject = errors.New("project is nil")
)
