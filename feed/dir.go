package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// DefaultCacheSize bounds the number of parsed packages a Dir keeps in memory.
const DefaultCacheSize = 512

// Dir serves packages from an unpacked feed directory. Package ids are matched
// case-insensitively against directory names.
type Dir struct {
	fs    afero.Fs
	root  string
	cache *lru.Cache[string, *Package] // keyed by "lower(id)@version"
}

// NewDir returns a source reading root through fsys. cacheSize <= 0 selects
// DefaultCacheSize.
func NewDir(fsys afero.Fs, root string, cacheSize int) (*Dir, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Package](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create package cache: %w", err)
	}
	return &Dir{fs: fsys, root: filepath.Clean(root), cache: cache}, nil
}

// Location returns the feed root.
func (d *Dir) Location() string {
	return d.root
}

// Versions lists the version directories of id. Directories whose names are not
// versions are skipped.
func (d *Dir) Versions(ctx context.Context, id string) ([]semver.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idDir, err := d.find(d.root, id)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(d.fs, filepath.Join(d.root, idDir))
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", id, err)
	}

	var versions []semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.ParseVersion(e.Name())
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%s in %s: %w", id, d.root, ErrPackageNotFound)
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare(versions[i], versions[j]) < 0
	})
	return versions, nil
}

// Metadata reads and validates {root}/{id}/{version}/{id}.json.
func (d *Dir) Metadata(ctx context.Context, id string, v semver.Version) (*Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToLower(id) + "@" + v.String()
	if p, ok := d.cache.Get(key); ok {
		return p, nil
	}

	idDir, err := d.find(d.root, id)
	if err != nil {
		return nil, err
	}
	versionDir, err := d.findVersion(filepath.Join(d.root, idDir), v)
	if err != nil {
		return nil, fmt.Errorf("%s@%s in %s: %w", id, v, d.root, err)
	}

	dir := filepath.Join(d.root, idDir, versionDir)
	file := filepath.Join(dir, idDir+".json")
	data, err := afero.ReadFile(d.fs, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s@%s: metadata file missing: %w", id, v, ErrPackageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata %s: %w", file, err)
	}
	if !strings.EqualFold(p.ID, id) || !p.Version.Equal(v) {
		return nil, fmt.Errorf("invalid metadata %s: declares %s, expected %s@%s", file, p.String(), id, v)
	}
	p.Path = dir

	d.cache.Add(key, &p)
	return &p, nil
}

// find returns the directory entry under parent whose name equals name ignoring case.
func (d *Dir) find(parent, name string) (string, error) {
	entries, err := afero.ReadDir(d.fs, parent)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s in %s: %w", name, d.root, ErrPackageNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read feed %s: %w", parent, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), name) {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", name, d.root, ErrPackageNotFound)
}

func (d *Dir) findVersion(parent string, v semver.Version) (string, error) {
	entries, err := afero.ReadDir(d.fs, parent)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if parsed, err := semver.ParseVersion(e.Name()); err == nil && parsed.Equal(v) {
			return e.Name(), nil
		}
	}
	return "", ErrPackageNotFound
}

var _ Source = (*Dir)(nil)
