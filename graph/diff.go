package graph

import (
	"sort"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// LibraryChange is an added or removed library.
type LibraryChange struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LibraryUpgrade is a version change for a library present in both graphs.
type LibraryUpgrade struct {
	Name       string `json:"name"`
	OldVersion string `json:"old_version"`
	NewVersion string `json:"new_version"`
}

// Diff describes the differences between two resolved graphs.
//
// Example usage:
//
//	before, _ := oldContext.Walk(ctx, name, version)
//	after, _ := newContext.Walk(ctx, name, version)
//	d := graph.Compare(before, after)
//	if !d.IsEmpty() {
//	    fmt.Printf("%d added, %d removed\n", len(d.Added), len(d.Removed))
//	}
type Diff struct {
	Added      []LibraryChange  `json:"added,omitempty"`
	Removed    []LibraryChange  `json:"removed,omitempty"`
	Upgraded   []LibraryUpgrade `json:"upgraded,omitempty"`
	Downgraded []LibraryUpgrade `json:"downgraded,omitempty"`
}

// IsEmpty returns true if there are no differences.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Upgraded) == 0 &&
		len(d.Downgraded) == 0
}

// TotalChanges returns the number of added, removed, upgraded and downgraded libraries.
func (d *Diff) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Upgraded) + len(d.Downgraded)
}

// Compare computes the difference between two graphs. Names are matched
// case-insensitively. A nil graph is treated as empty. Results are sorted by name.
func Compare(old, new *Graph) *Diff {
	d := &Diff{}
	oldLibs := versionsByName(old)
	newLibs := versionsByName(new)

	for lower, n := range newLibs {
		o, existed := oldLibs[lower]
		if !existed {
			d.Added = append(d.Added, n)
			continue
		}
		if o.Version == n.Version {
			continue
		}
		switch compareVersions(n.Version, o.Version) {
		case 1:
			d.Upgraded = append(d.Upgraded, LibraryUpgrade{Name: n.Name, OldVersion: o.Version, NewVersion: n.Version})
		case -1:
			d.Downgraded = append(d.Downgraded, LibraryUpgrade{Name: n.Name, OldVersion: o.Version, NewVersion: n.Version})
		}
	}

	for lower, o := range oldLibs {
		if _, exists := newLibs[lower]; !exists {
			d.Removed = append(d.Removed, o)
		}
	}

	sortChanges(d.Added)
	sortChanges(d.Removed)
	sortUpgrades(d.Upgraded)
	sortUpgrades(d.Downgraded)
	return d
}

func versionsByName(g *Graph) map[string]LibraryChange {
	out := make(map[string]LibraryChange)
	if g == nil {
		return out
	}
	for key := range g.Nodes {
		out[strings.ToLower(key.Name)] = LibraryChange{Name: key.Name, Version: key.Version}
	}
	return out
}

// compareVersions orders semantic versions; text that does not parse sorts before
// text that does, and two such strings compare lexically.
func compareVersions(a, b string) int {
	va, errA := semver.ParseVersion(a)
	vb, errB := semver.ParseVersion(b)
	switch {
	case errA == nil && errB == nil:
		return semver.Compare(va, vb)
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	default:
		return 1
	}
}

func sortChanges(changes []LibraryChange) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Name < changes[j].Name
	})
}

func sortUpgrades(upgrades []LibraryUpgrade) {
	sort.Slice(upgrades, func(i, j int) bool {
		return upgrades[i].Name < upgrades[j].Name
	})
}
