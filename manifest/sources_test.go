package manifest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/w/App", `{"exclude": ["bin/**", "**/*.generated.cs"]}`)

	files := map[string]string{
		"/w/App/Program.cs":                "",
		"/w/App/Models/User.cs":            "",
		"/w/App/Models/User.generated.cs":  "",
		"/w/App/bin/Debug/Temp.cs":         "",
		"/w/App/readme.md":                 "",
		"/w/Shared/Link.cs":                "",
		"/w/App/.include":                  "../Shared/Link.cs\n\n  Program.cs  \n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	p, err := Parse(fs, "/w/App")
	require.NoError(t, err)

	got, err := SourceFiles(fs, p)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/w/Shared/Link.cs",
		"/w/App/Program.cs",
		"/w/App/Models/User.cs",
	}, got)

	again, err := SourceFiles(fs, p)
	require.NoError(t, err)
	assert.Equal(t, got, again, "enumeration is deterministic")
}

func TestSourceFilesNoInclude(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/w/Lib", `{}`)
	require.NoError(t, afero.WriteFile(fs, "/w/Lib/b.cs", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/w/Lib/a.cs", nil, 0o644))

	p, err := Parse(fs, "/w/Lib")
	require.NoError(t, err)

	got, err := SourceFiles(fs, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/Lib/a.cs", "/w/Lib/b.cs"}, got)
}

func TestSourceFilesSeesNewFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/w/Lib", `{}`)
	p, err := Parse(fs, "/w/Lib")
	require.NoError(t, err)

	got, err := SourceFiles(fs, p)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, afero.WriteFile(fs, "/w/Lib/New.cs", nil, 0o644))
	got, err = SourceFiles(fs, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/Lib/New.cs"}, got)
}
