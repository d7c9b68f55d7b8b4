package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/go-dnxdeps/designtime"
	"github.com/albertocavalcante/go-dnxdeps/lockfile"
)

func testFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/src/App/project.json": `{
			"version": "2.1.0",
			"dependencies": [{"Foo": {"version": "1.2.0"}}],
			"frameworks": {"net45": {}, "aspnetcore50": {}}
		}`,
		"/src/App/Program.cs":          "",
		"/src/App/obj/Generated.cs":    "",
		"/packages/Foo/1.2.0/Foo.json": `{"id":"Foo","version":"1.2.0"}`,
		"/packages/Foo/1.3.0/Foo.json": `{"id":"Foo","version":"1.3.0"}`,
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func run(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(fs, strings.NewReader(stdin), &out, &errOut)
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveText(t *testing.T) {
	out, err := run(t, testFS(t), "", "resolve", "/src/App", "--packages", "/packages")
	require.NoError(t, err)
	assert.Contains(t, out, "Dependency Graph (root: App@2.1.0, framework: net45)")
	assert.Contains(t, out, "Dependency Graph (root: App@2.1.0, framework: aspnetcore50)")
	assert.Contains(t, out, "Foo@1.2.0")
	assert.NotContains(t, out, "Foo@1.3.0")
}

func TestResolveJSONSingleFramework(t *testing.T) {
	out, err := run(t, testFS(t), "", "resolve", "/src/App", "--packages", "/packages", "--framework", "net45", "--format", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "root")
}

func TestResolveDOT(t *testing.T) {
	out, err := run(t, testFS(t), "", "resolve", "/src/App", "--framework", "net45", "--format", "dot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph"))
	assert.Contains(t, out, "style=dashed", "Foo is unresolved without a packages directory")
}

func TestResolveErrors(t *testing.T) {
	_, err := run(t, testFS(t), "", "resolve", "/src/App", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, testFS(t), "", "resolve", "/src/App", "--framework", "nonsense")
	assert.ErrorContains(t, err, "unsupported framework")

	_, err = run(t, testFS(t), "", "resolve", "/missing")
	assert.Error(t, err)
}

func TestResolveExplain(t *testing.T) {
	out, err := run(t, testFS(t), "", "resolve", "/src/App", "--packages", "/packages", "--framework", "net45", "--explain", "Foo")
	require.NoError(t, err)
	assert.Contains(t, out, "[net45]")
	assert.Contains(t, out, "Explanation for: Foo")
}

func TestResolveLock(t *testing.T) {
	fs := testFS(t)
	_, err := run(t, fs, "", "resolve", "/src/App", "--packages", "/packages", "--lock")
	require.NoError(t, err)

	lf, err := lockfile.ReadFile(fs, "/src/App/"+lockfile.FileName)
	require.NoError(t, err)
	assert.Len(t, lf.Targets, 2)
	assert.Contains(t, lf.Libraries, "Foo/1.2.0")
}

func TestConfigurationFromEnv(t *testing.T) {
	t.Setenv("DNXDEPS_CONFIGURATION", "Release")
	t.Setenv("DNXDEPS_PACKAGES", "/packages")

	fs := testFS(t)
	_, err := run(t, fs, "", "resolve", "/src/App", "--framework", "net45", "--lock")
	require.NoError(t, err)

	lf, err := lockfile.ReadFile(fs, "/src/App/"+lockfile.FileName)
	require.NoError(t, err)
	_, entry, ok := lf.Lookup(".NETFramework,Version=v4.5", "Foo")
	require.True(t, ok)
	assert.Equal(t, "Package", entry.Type)
}

func TestRuntimeFramework(t *testing.T) {
	out, err := run(t, testFS(t), "", "runtime-framework", "dnx-coreclr-win7-x64.1.0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aspnetcore50\t"))

	_, err = run(t, testFS(t), "", "runtime-framework", "bad-format")
	assert.ErrorContains(t, err, "unknown runtime identifier")
}

func TestSources(t *testing.T) {
	fs := testFS(t)
	require.NoError(t, afero.WriteFile(fs, "/src/Lib/project.json", []byte(`{"exclude": ["obj/**"]}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/Lib/A.cs", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/Lib/obj/B.cs", nil, 0o644))

	out, err := run(t, fs, "", "sources", "/src/Lib")
	require.NoError(t, err)
	assert.Contains(t, out, "A.cs")
	assert.NotContains(t, out, "B.cs")

	_, err = run(t, fs, "", "sources", "/nowhere")
	assert.Error(t, err)
}

func TestHost(t *testing.T) {
	var in bytes.Buffer
	enc := designtime.NewEncoder(&in)
	require.NoError(t, enc.Encode(designtime.TypeInitialize, 1, designtime.InitializeMessage{ProjectFolder: "/src/App"}))

	out, err := run(t, testFS(t), in.String(), "host", "--packages", "/packages")
	require.NoError(t, err)

	msg, err := designtime.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	assert.Equal(t, designtime.TypeConfigurations, msg.MessageType)

	var configs designtime.ConfigurationsMessage
	require.NoError(t, msg.DecodePayload(&configs))
	assert.Len(t, configs.Configurations, 2)
}
