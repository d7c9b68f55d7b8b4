package lockfile

import "fmt"

// MergeStrategy defines how to handle conflicts when merging lock files.
type MergeStrategy int

const (
	// MergePreferExisting keeps existing values on conflict.
	MergePreferExisting MergeStrategy = iota

	// MergePreferNew overwrites with new values on conflict.
	MergePreferNew

	// MergeErrorOnConflict returns an error if values differ.
	MergeErrorOnConflict
)

// MergeOptions configures lock file merge behavior.
type MergeOptions struct {
	// Strategy determines how conflicts are resolved.
	Strategy MergeStrategy
}

// DefaultMergeOptions returns sensible defaults for merging.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{Strategy: MergePreferNew}
}

// Merge combines another lock file into this one. Targets are merged entry by entry
// and libraries by key, according to the strategy. Locked is sticky.
func (l *Lockfile) Merge(other *Lockfile, opts MergeOptions) error {
	if other == nil {
		return nil
	}

	if err := l.mergeTargets(other, opts); err != nil {
		return fmt.Errorf("failed to merge targets: %w", err)
	}
	if err := l.mergeLibraries(other, opts); err != nil {
		return fmt.Errorf("failed to merge libraries: %w", err)
	}
	l.Locked = l.Locked || other.Locked
	return nil
}

func (l *Lockfile) mergeTargets(other *Lockfile, opts MergeOptions) error {
	for target, entries := range other.Targets {
		existing, ok := l.Targets[target]
		if !ok {
			existing = make(map[string]Entry, len(entries))
			l.Targets[target] = existing
		}
		for key, entry := range entries {
			current, exists := existing[key]
			if !exists || sameEntry(current, entry) {
				existing[key] = entry
				continue
			}

			switch opts.Strategy {
			case MergePreferExisting:
				// Keep existing
			case MergePreferNew:
				existing[key] = entry
			case MergeErrorOnConflict:
				return fmt.Errorf("entry conflict for %s in %s", key, target)
			}
		}
	}
	return nil
}

func (l *Lockfile) mergeLibraries(other *Lockfile, opts MergeOptions) error {
	for key, lib := range other.Libraries {
		existing, exists := l.Libraries[key]
		if !exists || existing == lib {
			l.Libraries[key] = lib
			continue
		}

		switch opts.Strategy {
		case MergePreferExisting:
			// Keep existing
		case MergePreferNew:
			l.Libraries[key] = lib
		case MergeErrorOnConflict:
			return fmt.Errorf("library conflict for %s: existing=%s, new=%s", key, existing.Path, lib.Path)
		}
	}
	return nil
}
