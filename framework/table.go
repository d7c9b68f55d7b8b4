package framework

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed compat.yaml
var defaultTableData []byte

// TableVersion is the compatibility data format this package understands.
const TableVersion = 1

// Family kinds.
const (
	KindDesktop  = "desktop"
	KindCore     = "core"
	KindPortable = "portable"
)

// Family maps a framework identifier to its short folder name.
type Family struct {
	Identifier string `yaml:"identifier"`
	Short      string `yaml:"short"`
	Kind       string `yaml:"kind"`
}

// Edge declares that a framework can consume libraries built for other frameworks.
type Edge struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
}

// tableFile is the on-disk YAML shape.
type tableFile struct {
	Version    int               `yaml:"version"`
	Baseline   string            `yaml:"baseline"`
	Families   []Family          `yaml:"families"`
	Compatible []Edge            `yaml:"compatible"`
	Runtimes   map[string]string `yaml:"runtimes"`
}

type edge struct {
	from Moniker
	to   []Moniker
}

// Table is versioned framework compatibility data. A Table is immutable after
// loading and safe for concurrent use.
type Table struct {
	families []Family // sorted by descending short-name length for prefix matching
	byID     map[string]Family
	edges    []edge
	runtimes map[string]Moniker
	baseline Moniker
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the table embedded in the package.
func Default() *Table {
	defaultTableOnce.Do(func() {
		t, err := LoadTable(bytes.NewReader(defaultTableData))
		if err != nil {
			panic(fmt.Sprintf("framework: embedded compatibility table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadTable reads compatibility data in YAML form.
func LoadTable(r io.Reader) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode compatibility table: %w", err)
	}
	if file.Version != TableVersion {
		return nil, fmt.Errorf("unsupported compatibility table version %d (want %d)", file.Version, TableVersion)
	}
	if len(file.Families) == 0 {
		return nil, errors.New("compatibility table declares no families")
	}

	t := &Table{
		byID:     make(map[string]Family, len(file.Families)),
		runtimes: make(map[string]Moniker, len(file.Runtimes)),
	}
	for _, f := range file.Families {
		if f.Identifier == "" || f.Short == "" {
			return nil, fmt.Errorf("family %+v: identifier and short are required", f)
		}
		t.families = append(t.families, f)
		t.byID[strings.ToLower(f.Identifier)] = f
	}
	sort.SliceStable(t.families, func(i, j int) bool {
		return len(t.families[i].Short) > len(t.families[j].Short)
	})

	for _, e := range file.Compatible {
		from := t.Parse(e.From)
		if from.IsUnsupported() {
			return nil, fmt.Errorf("compatible edge: unknown framework %q", e.From)
		}
		parsed := edge{from: from}
		for _, to := range e.To {
			m := t.Parse(to)
			if m.IsUnsupported() {
				return nil, fmt.Errorf("compatible edge %s: unknown framework %q", e.From, to)
			}
			parsed.to = append(parsed.to, m)
		}
		t.edges = append(t.edges, parsed)
	}

	for keyword, target := range file.Runtimes {
		m := t.Parse(target)
		if m.IsUnsupported() {
			return nil, fmt.Errorf("runtime %q: unknown framework %q", keyword, target)
		}
		t.runtimes[strings.ToLower(keyword)] = m
	}

	t.baseline = t.Parse(file.Baseline)
	if t.baseline.IsUnsupported() {
		return nil, fmt.Errorf("unknown baseline framework %q", file.Baseline)
	}
	return t, nil
}

// Baseline is the framework assumed when a project names none.
func (t *Table) Baseline() Moniker {
	return t.baseline
}

// Kind returns the family kind of m ("desktop", "core", "portable"), or "".
func (t *Table) Kind(m Moniker) string {
	if f, ok := t.byID[strings.ToLower(m.Identifier)]; ok {
		return f.Kind
	}
	return ""
}

// Parse turns short or long moniker text into a Moniker. It never fails; unknown text
// yields Unsupported.
func (t *Table) Parse(text string) Moniker {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unsupported
	}
	if strings.EqualFold(text, "any") {
		return Any
	}
	if strings.Contains(text, ",") {
		return t.parseLong(text)
	}
	return t.parseShort(text)
}

func (t *Table) parseShort(text string) Moniker {
	lower := strings.ToLower(text)
	for _, f := range t.families {
		if !strings.HasPrefix(lower, f.Short) {
			continue
		}
		rest := text[len(f.Short):]
		if f.Identifier == PortableIdentifier {
			profile := strings.TrimPrefix(rest, "-")
			if profile == "" || profile == rest {
				return Unsupported
			}
			return Moniker{Identifier: f.Identifier, Profile: profile}
		}
		v, ok := parseVersion(rest)
		if !ok {
			continue
		}
		return Moniker{Identifier: f.Identifier, Version: v}
	}
	return Unsupported
}

func (t *Table) parseLong(text string) Moniker {
	parts := strings.Split(text, ",")
	f, ok := t.byID[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return Unsupported
	}
	m := Moniker{Identifier: f.Identifier}
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return Unsupported
		}
		switch strings.ToLower(key) {
		case "version":
			v, ok := parseVersion(value)
			if !ok {
				return Unsupported
			}
			m.Version = v
		case "profile":
			m.Profile = value
		}
	}
	return m
}

// ShortName returns the folder form of m using this table's family names.
func (t *Table) ShortName(m Moniker) string {
	switch {
	case m.IsAny():
		return "any"
	case m.IsUnsupported():
		return "unsupported"
	}
	f, ok := t.byID[strings.ToLower(m.Identifier)]
	if !ok {
		return m.String()
	}
	if f.Identifier == PortableIdentifier {
		return f.Short + "-" + m.Profile
	}
	return f.Short + m.Version.compact()
}

// ForRuntime maps a runtime identifier of the form <name>-<platform>-<arch>.<rest> to
// the framework it runs. Identifiers that do not split into exactly those parts, or
// whose platform keyword is unknown, yield false.
func (t *Table) ForRuntime(runtimeID string) (Moniker, bool) {
	parts := strings.SplitN(runtimeID, ".", 2)
	if len(parts) != 2 {
		return Moniker{}, false
	}
	parts = strings.SplitN(parts[0], "-", 3)
	if len(parts) != 3 {
		return Moniker{}, false
	}
	m, ok := t.runtimes[strings.ToLower(parts[1])]
	return m, ok
}

// sameFamilyAtMost reports whether candidate is in required's family at an equal or
// lower version.
func sameFamilyAtMost(required, candidate Moniker) bool {
	if !strings.EqualFold(required.Identifier, candidate.Identifier) {
		return false
	}
	if required.Identifier == PortableIdentifier {
		return strings.EqualFold(required.Profile, candidate.Profile)
	}
	return strings.EqualFold(required.Profile, candidate.Profile) &&
		candidate.Version.Compare(required.Version) <= 0
}

const anyDistance = 1 << 20

// distance scores how near candidate is to required; lower is nearer. The bool is
// false when candidate cannot be consumed by required.
func (t *Table) distance(required, candidate Moniker) (int, bool) {
	if candidate.IsAny() {
		return anyDistance, true
	}
	if required.IsUnsupported() || required.IsAny() || candidate.IsUnsupported() {
		return 0, required.Equal(candidate)
	}

	visited := map[Moniker]bool{required: true}
	frontier := []Moniker{required}
	for depth := 0; len(frontier) > 0; depth++ {
		var next []Moniker
		for _, m := range frontier {
			if m.Equal(candidate) {
				return 2 * depth, true
			}
			if sameFamilyAtMost(m, candidate) {
				return 2*depth + 1, true
			}
			for _, e := range t.edges {
				if !sameFamilyAtMost(m, e.from) {
					continue
				}
				for _, to := range e.to {
					if !visited[to] {
						visited[to] = true
						next = append(next, to)
					}
				}
			}
		}
		frontier = next
	}
	return 0, false
}

// IsCompatible reports whether a library built for candidate can be used by a
// project targeting required.
func (t *Table) IsCompatible(required, candidate Moniker) bool {
	_, ok := t.distance(required, candidate)
	return ok
}

// Nearest picks the candidate most specific to required: an exact match first, then
// the same family (highest version), then frameworks reachable through the fewest
// compatibility edges, then Any. Ties keep the higher version, then the earlier
// candidate.
func (t *Table) Nearest(required Moniker, candidates []Moniker) (Moniker, bool) {
	var (
		best      Moniker
		bestScore int
		found     bool
	)
	for _, c := range candidates {
		score, ok := t.distance(required, c)
		if !ok {
			continue
		}
		if !found || score < bestScore || (score == bestScore && c.Version.Compare(best.Version) > 0) {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}

// Parse parses moniker text with the default table.
func Parse(text string) Moniker {
	return Default().Parse(text)
}

// ForRuntime maps a runtime identifier with the default table.
func ForRuntime(runtimeID string) (Moniker, bool) {
	return Default().ForRuntime(runtimeID)
}

// IsCompatible answers compatibility with the default table.
func IsCompatible(required, candidate Moniker) bool {
	return Default().IsCompatible(required, candidate)
}

// Baseline returns the default table's baseline framework (net45).
func Baseline() Moniker {
	return Default().Baseline()
}
