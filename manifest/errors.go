package manifest

import (
	"errors"
	"fmt"
)

// ErrInvalidManifest matches every *InvalidManifestError through errors.Is.
var ErrInvalidManifest = errors.New("invalid manifest")

// InvalidManifestError reports a manifest that cannot be turned into a Project.
type InvalidManifestError struct {
	// Path is the manifest file.
	Path string
	// Field is the JSON location of the problem, e.g. "dependencies" or
	// "frameworks.aspnet50.dependencies".
	Field string
	// Key is the offending dependency name. It is empty for an empty name.
	Key    string
	Reason string
	Err    error
}

func (e *InvalidManifestError) Error() string {
	msg := e.Path
	if e.Field != "" {
		msg += ": " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InvalidManifestError) Unwrap() error {
	return e.Err
}

func (e *InvalidManifestError) Is(target error) bool {
	return target == ErrInvalidManifest
}
