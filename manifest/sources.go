package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// IncludeFileName lists extra source files, one path per line, relative to the
// project directory.
const IncludeFileName = ".include"

// SourceExtension is the extension picked up by the directory scan.
const SourceExtension = ".cs"

// SourceFiles enumerates the project's sources: the entries of the include file
// followed by every *.cs file under the project directory in lexical order. Paths
// matching an Exclude pattern are dropped and duplicates are kept once. The result
// is computed on each call.
func SourceFiles(fsys afero.Fs, p *Project) ([]string, error) {
	dir := p.Dir()
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve project directory: %w", err)
		}
		dir = abs
	}

	excludes := make([]glob.Glob, 0, len(p.Exclude))
	for _, pattern := range p.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}
	excluded := func(path string) bool {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
		rel = filepath.ToSlash(rel)
		for _, g := range excludes {
			if g.Match(rel) {
				return true
			}
		}
		return false
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if seen[path] || excluded(path) {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	include, err := afero.ReadFile(fsys, filepath.Join(dir, IncludeFileName))
	switch {
	case err == nil:
		scanner := bufio.NewScanner(bytes.NewReader(include))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			path := filepath.FromSlash(line)
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			add(filepath.Clean(path))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", IncludeFileName, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", IncludeFileName, err)
	}

	err = afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), SourceExtension) {
			add(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	return files, nil
}
