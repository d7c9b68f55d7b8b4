package lockfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// lockfilePermissions is the file permission mode for lock files.
const lockfilePermissions = 0o644

// ReadFile reads and parses a lock file.
func ReadFile(fs afero.Fs, path string) (*Lockfile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	return Parse(data)
}

// Parse parses lock file JSON data.
func Parse(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile JSON: %w", err)
	}
	if lf.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported lockfile version %d (want %d)", lf.Version, CurrentVersion)
	}

	// Initialize nil maps to empty maps for consistency
	if lf.Targets == nil {
		lf.Targets = make(map[string]map[string]Entry)
	}
	for target, entries := range lf.Targets {
		if entries == nil {
			lf.Targets[target] = make(map[string]Entry)
		}
	}
	if lf.Libraries == nil {
		lf.Libraries = make(map[string]Library)
	}

	return &lf, nil
}

// WriteFile writes the lock file with deterministic formatting, creating the
// directory if needed.
func (l *Lockfile) WriteFile(fs afero.Fs, path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}
	return afero.WriteFile(fs, path, data, lockfilePermissions)
}

// WriteTo writes the lock file to the given writer.
func (l *Lockfile) WriteTo(w io.Writer) (int64, error) {
	data, err := l.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Marshal serializes the lock file as indented JSON. Map keys are written in sorted
// order, so equal lock files produce identical bytes.
func (l *Lockfile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Exists returns true if a lock file exists at the given path.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// DefaultPath returns the lock file path for a project directory.
func DefaultPath(projectDir string) string {
	if projectDir == "" {
		return FileName
	}
	return filepath.Join(projectDir, FileName)
}
