package lockfile

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

func lib(name, version string, typ library.Type, path string, assemblies ...string) *library.Description {
	id := library.Identity{Name: name}
	if version != "" {
		id.Version = semver.MustParseVersion(version)
	}
	d := &library.Description{Identity: id, Type: typ, Path: path}
	for _, a := range assemblies {
		d.Assemblies = append(d.Assemblies, library.Assembly{Name: strings.TrimSuffix(filepath.Base(a), ".dll"), Path: a, Library: id})
	}
	return d
}

// App@1.0.0 -> Foo@1.2.0 -> Bar@2.0.0, App -> Missing (unresolved)
func testGraph(fw string) *graph.Graph {
	b := graph.NewBuilder(framework.Parse(fw), "Debug")
	app := b.AddNode(lib("App", "1.0.0", library.Project, "/src/App", "/src/App/bin/Debug/net45/App.dll"), 0)
	foo := b.AddNode(lib("Foo", "1.2.0", library.Package, "/packages/Foo/1.2.0", "/packages/Foo/1.2.0/lib/net45/Foo.dll"), 1)
	b.AddEdge(app, foo, "1.2.0", false)
	missing := b.AddNode(lib("Missing", "", library.Unresolved, ""), 1)
	b.AddEdge(app, missing, "", false)
	bar := b.AddNode(lib("Bar", "2.0.0", library.Package, "/packages/Bar/2.0.0", "/shared/Bar.dll"), 2)
	b.AddEdge(foo, bar, "^2.0.0", false)
	return b.Build()
}

func TestNew(t *testing.T) {
	lf := New()

	if lf.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", lf.Version, CurrentVersion)
	}
	if lf.Targets == nil {
		t.Error("Targets is nil")
	}
	if lf.Libraries == nil {
		t.Error("Libraries is nil")
	}
}

func TestLibraryKey(t *testing.T) {
	tests := []struct {
		name, version, key string
	}{
		{"Foo", "1.2.0", "Foo/1.2.0"},
		{"Missing", "", "Missing/"},
		{"System.Runtime", "4.0.0-beta", "System.Runtime/4.0.0-beta"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := LibraryKey(tt.name, tt.version); got != tt.key {
				t.Errorf("LibraryKey() = %q, want %q", got, tt.key)
			}
			name, version, err := SplitLibraryKey(tt.key)
			if err != nil || name != tt.name || version != tt.version {
				t.Errorf("SplitLibraryKey(%q) = %q, %q, %v", tt.key, name, version, err)
			}
		})
	}

	if _, _, err := SplitLibraryKey("noslash"); err == nil {
		t.Error("SplitLibraryKey without a slash should fail")
	}
}

func TestFromGraphs(t *testing.T) {
	lf := FromGraphs(testGraph("net45"), nil, testGraph("aspnet50"))

	if len(lf.Targets) != 2 {
		t.Fatalf("Targets = %d, want 2", len(lf.Targets))
	}
	target := lf.Targets[".NETFramework,Version=v4.5"]
	if target == nil {
		t.Fatalf("missing net45 target in %v", lf.Targets)
	}
	if _, ok := target["App/1.0.0"]; ok {
		t.Error("root project should not be locked")
	}

	foo := target["Foo/1.2.0"]
	if foo.Type != "Package" {
		t.Errorf("Foo type = %q", foo.Type)
	}
	if want := map[string]string{"Bar": "^2.0.0"}; !reflect.DeepEqual(foo.Dependencies, want) {
		t.Errorf("Foo dependencies = %v, want %v", foo.Dependencies, want)
	}
	if want := []string{"lib/net45/Foo.dll"}; !reflect.DeepEqual(foo.Assemblies, want) {
		t.Errorf("Foo assemblies = %v, want %v", foo.Assemblies, want)
	}
	if got := target["Bar/2.0.0"].Assemblies; !reflect.DeepEqual(got, []string{"/shared/Bar.dll"}) {
		t.Errorf("assembly outside the library path should stay absolute, got %v", got)
	}
	if got := target["Missing/"].Type; got != "Unresolved" {
		t.Errorf("Missing type = %q", got)
	}

	if got := lf.Libraries["Foo/1.2.0"]; got.Path != "/packages/Foo/1.2.0" || got.Type != "Package" {
		t.Errorf("Foo library = %+v", got)
	}

	key, entry, ok := lf.Lookup(".NETFramework,Version=v4.5", "foo")
	if !ok || key != "Foo/1.2.0" || entry.Type != "Package" {
		t.Errorf("Lookup(foo) = %q, %+v, %v", key, entry, ok)
	}
}

func TestLockfile_WriteRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := DefaultPath("/src/App")

	lf := FromGraphs(testGraph("net45"))
	lf.Locked = true
	if err := lf.WriteFile(fs, path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !Exists(fs, path) {
		t.Fatal("lockfile should exist after write")
	}

	read, err := ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !read.Locked {
		t.Error("Locked flag lost")
	}
	if d := Compare(lf, read); !d.IsEmpty() {
		t.Errorf("read back lockfile differs: %+v", d)
	}

	if _, err := ReadFile(fs, "/nowhere/project.lock.json"); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}

func TestParse(t *testing.T) {
	t.Run("fills empty maps", func(t *testing.T) {
		lf, err := Parse([]byte(`{"version": 1, "targets": {"net45": null}}`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if lf.Targets["net45"] == nil || lf.Libraries == nil {
			t.Error("nil maps should be initialized")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := Parse([]byte(`{`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := Parse([]byte(`{"version": 99}`))
		if err == nil || !strings.Contains(err.Error(), "unsupported lockfile version 99") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestLockfile_Merge(t *testing.T) {
	const target = ".NETFramework,Version=v4.5"
	withEntry := func(entry Entry, path string) *Lockfile {
		lf := New()
		lf.Targets[target] = map[string]Entry{"Foo/1.0.0": entry}
		lf.Libraries["Foo/1.0.0"] = Library{Type: entry.Type, Path: path}
		return lf
	}
	oldEntry := Entry{Type: "Package", Assemblies: []string{"lib/net45/Foo.dll"}}
	newEntry := Entry{Type: "Package", Assemblies: []string{"lib/net451/Foo.dll"}}

	t.Run("basic merge", func(t *testing.T) {
		lf1 := FromGraphs(testGraph("net45"))
		lf2 := FromGraphs(testGraph("aspnet50"))
		lf2.Locked = true

		if err := lf1.Merge(lf2, DefaultMergeOptions()); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if len(lf1.Targets) != 2 {
			t.Errorf("Targets = %d, want 2", len(lf1.Targets))
		}
		if !lf1.Locked {
			t.Error("Locked should be sticky")
		}
		if err := lf1.Merge(nil, DefaultMergeOptions()); err != nil {
			t.Errorf("Merge(nil) = %v", err)
		}
	})

	t.Run("conflict prefer new", func(t *testing.T) {
		lf1, lf2 := withEntry(oldEntry, "/a"), withEntry(newEntry, "/b")
		if err := lf1.Merge(lf2, MergeOptions{Strategy: MergePreferNew}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if got := lf1.Targets[target]["Foo/1.0.0"]; !sameEntry(got, newEntry) {
			t.Errorf("entry = %+v, want %+v", got, newEntry)
		}
		if got := lf1.Libraries["Foo/1.0.0"].Path; got != "/b" {
			t.Errorf("library path = %q", got)
		}
	})

	t.Run("conflict prefer existing", func(t *testing.T) {
		lf1, lf2 := withEntry(oldEntry, "/a"), withEntry(newEntry, "/b")
		if err := lf1.Merge(lf2, MergeOptions{Strategy: MergePreferExisting}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if got := lf1.Targets[target]["Foo/1.0.0"]; !sameEntry(got, oldEntry) {
			t.Errorf("entry = %+v, want %+v", got, oldEntry)
		}
		if got := lf1.Libraries["Foo/1.0.0"].Path; got != "/a" {
			t.Errorf("library path = %q", got)
		}
	})

	t.Run("conflict error", func(t *testing.T) {
		lf1, lf2 := withEntry(oldEntry, "/a"), withEntry(newEntry, "/a")
		if err := lf1.Merge(lf2, MergeOptions{Strategy: MergeErrorOnConflict}); err == nil {
			t.Error("expected error on conflict")
		}
	})
}

func TestCompare(t *testing.T) {
	old := FromGraphs(testGraph("net45"))
	updated := FromGraphs(testGraph("net45"))

	const target = ".NETFramework,Version=v4.5"
	delete(updated.Targets[target], "Missing/")
	updated.Targets[target]["New/1.0.0"] = Entry{Type: "Package"}
	foo := updated.Targets[target]["Foo/1.2.0"]
	foo.Dependencies = map[string]string{"Bar": "2.0.0"}
	updated.Targets[target]["Foo/1.2.0"] = foo

	d := Compare(old, updated)
	if want := []string{target + "|New/1.0.0"}; !reflect.DeepEqual(d.Added, want) {
		t.Errorf("Added = %v", d.Added)
	}
	if want := []string{target + "|Missing/"}; !reflect.DeepEqual(d.Removed, want) {
		t.Errorf("Removed = %v", d.Removed)
	}
	if want := []string{target + "|Foo/1.2.0"}; !reflect.DeepEqual(d.Changed, want) {
		t.Errorf("Changed = %v", d.Changed)
	}
	if !Compare(nil, nil).IsEmpty() {
		t.Error("Compare(nil, nil) should be empty")
	}
}

func TestDefaultPath(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"", "project.lock.json"},
		{"/src/App", filepath.Join("/src/App", "project.lock.json")},
	}

	for _, tt := range tests {
		if got := DefaultPath(tt.dir); got != tt.want {
			t.Errorf("DefaultPath(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	lf := FromGraphs(testGraph("net45"), testGraph("aspnet50"))

	data1, err := lf.Marshal()
	if err != nil {
		t.Fatalf("Marshal 1 failed: %v", err)
	}
	data2, err := FromGraphs(testGraph("aspnet50"), testGraph("net45")).Marshal()
	if err != nil {
		t.Fatalf("Marshal 2 failed: %v", err)
	}
	if !bytes.Equal(data1, data2) {
		t.Error("Marshal is not deterministic")
	}

	var buf bytes.Buffer
	if _, err := lf.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data1) {
		t.Error("WriteTo should write Marshal output")
	}
	if strings.Index(string(data1), `"Bar/2.0.0"`) > strings.Index(string(data1), `"Foo/1.2.0"`) {
		t.Error("library keys should be sorted")
	}
}
