package lockfile

import (
	"fmt"
	"strings"
)

// FileName is the lock file written next to project.json.
const FileName = "project.lock.json"

// CurrentVersion is the schema version this package reads and writes.
const CurrentVersion = 1

// Lockfile is a snapshot of resolved graphs.
type Lockfile struct {
	Version   int                         `json:"version"`
	Locked    bool                        `json:"locked"`
	Targets   map[string]map[string]Entry `json:"targets"`
	Libraries map[string]Library          `json:"libraries"`
}

// Entry is one library as resolved for one target framework.
type Entry struct {
	Type string `json:"type"`

	// Dependencies maps each declared dependency to the range requested.
	Dependencies map[string]string `json:"dependencies,omitempty"`

	// Assemblies are the library's assemblies, relative to its path when inside it.
	Assemblies []string `json:"assemblies,omitempty"`
}

// Library is framework-independent information about a library.
type Library struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// New creates an empty lock file at CurrentVersion.
func New() *Lockfile {
	return &Lockfile{
		Version:   CurrentVersion,
		Targets:   make(map[string]map[string]Entry),
		Libraries: make(map[string]Library),
	}
}

// LibraryKey formats the "name/version" key used in targets and libraries.
func LibraryKey(name, version string) string {
	return name + "/" + version
}

// SplitLibraryKey is the inverse of LibraryKey.
func SplitLibraryKey(key string) (name, version string, err error) {
	i := strings.LastIndex(key, "/")
	if i <= 0 {
		return "", "", fmt.Errorf("invalid library key %q", key)
	}
	return key[:i], key[i+1:], nil
}

// Lookup returns the entry for a library name in a target, matching the name
// case-insensitively.
func (l *Lockfile) Lookup(target, name string) (string, Entry, bool) {
	for key, entry := range l.Targets[target] {
		n, _, err := SplitLibraryKey(key)
		if err == nil && strings.EqualFold(n, name) {
			return key, entry, true
		}
	}
	return "", Entry{}, false
}
