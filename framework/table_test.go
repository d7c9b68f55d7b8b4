package framework

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input     string
		wantID    string
		wantVer   string
		wantShort string
	}{
		{input: "net45", wantID: ".NETFramework", wantVer: "4.5", wantShort: "net45"},
		{input: "net451", wantID: ".NETFramework", wantVer: "4.5.1", wantShort: "net451"},
		{input: "NET40", wantID: ".NETFramework", wantVer: "4.0", wantShort: "net40"},
		{input: "aspnet50", wantID: "Asp.Net", wantVer: "5.0", wantShort: "aspnet50"},
		{input: "aspnetcore50", wantID: "Asp.NetCore", wantVer: "5.0", wantShort: "aspnetcore50"},
		{input: "dnx451", wantID: "DNX", wantVer: "4.5.1", wantShort: "dnx451"},
		{input: "dnxcore50", wantID: "DNXCore", wantVer: "5.0", wantShort: "dnxcore50"},
		{input: "k10", wantID: "K", wantVer: "1.0", wantShort: "k10"},
		{input: ".NETFramework,Version=v4.5", wantID: ".NETFramework", wantVer: "4.5", wantShort: "net45"},
		{input: "Asp.NetCore,Version=v5.0", wantID: "Asp.NetCore", wantVer: "5.0", wantShort: "aspnetcore50"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := Parse(tt.input)
			assert.Equal(t, tt.wantID, m.Identifier)
			assert.Equal(t, tt.wantVer, m.Version.String())
			assert.Equal(t, tt.wantShort, m.ShortName())
		})
	}
}

func TestParsePortable(t *testing.T) {
	m := Parse("portable-net45+win8")
	assert.Equal(t, PortableIdentifier, m.Identifier)
	assert.Equal(t, "net45+win8", m.Profile)
	assert.Equal(t, "portable-net45+win8", m.ShortName())
	assert.Equal(t, ".NETPortable,Version=v0.0,Profile=net45+win8", m.String())
}

func TestParseUnknownNeverFails(t *testing.T) {
	for _, input := range []string{"", "kitten", "foo45", "net4x", ".NETMystery,Version=v1.0", "portable", ".NETFramework,Version=vX"} {
		t.Run(input, func(t *testing.T) {
			m := Parse(input)
			assert.True(t, m.IsUnsupported(), "Parse(%q) = %v", input, m)
			assert.Equal(t, "unsupported", m.ShortName())
		})
	}
	assert.True(t, Parse("any").IsAny())
}

func TestForRuntime(t *testing.T) {
	tests := []struct {
		runtimeID string
		want      string
		wantOK    bool
	}{
		{runtimeID: "dnx-coreclr-win7-x64.1.0", want: "aspnetcore50", wantOK: true},
		{runtimeID: "dnx-clr-win7-x86.1.0", want: "aspnet50", wantOK: true},
		{runtimeID: "dnx-mono.1.0", wantOK: false},
		{runtimeID: "dnx-MONO-linux-x64.1.0.0-beta3", want: "aspnet50", wantOK: true},
		{runtimeID: "KRE-CoreCLR-amd64.1.0", want: "aspnetcore50", wantOK: true},
		{runtimeID: "dnx-java-win7-x64.1.0", wantOK: false},
		{runtimeID: "bad-format", wantOK: false},
		{runtimeID: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.runtimeID, func(t *testing.T) {
			m, ok := ForRuntime(tt.runtimeID)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, m.ShortName())
			}
		})
	}
}

func TestRuntimeFamilies(t *testing.T) {
	table := Default()

	desktop, ok := table.ForRuntime("dnx-clr-win7-x86.1.0")
	require.True(t, ok)
	assert.Equal(t, KindDesktop, table.Kind(desktop))

	core, ok := table.ForRuntime("dnx-coreclr-win7-x64.1.0")
	require.True(t, ok)
	assert.Equal(t, KindCore, table.Kind(core))
}

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		required  string
		candidate string
		want      bool
	}{
		{required: "net45", candidate: "net45", want: true},
		{required: "net45", candidate: "net40", want: true},
		{required: "net40", candidate: "net45", want: false},
		{required: "net451", candidate: "portable-net45+win8", want: true},
		{required: "aspnet50", candidate: "net40", want: true},
		{required: "aspnet50", candidate: "dnx451", want: true},
		{required: "aspnetcore50", candidate: "net45", want: false},
		{required: "aspnetcore50", candidate: "k10", want: true},
		{required: "aspnetcore50", candidate: "portable-net45+win8", want: true},
		{required: "aspnetcore50", candidate: "any", want: true},
		{required: "unsupported", candidate: "net45", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.required+"<-"+tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompatible(Parse(tt.required), Parse(tt.candidate)))
		})
	}
}

func TestNearest(t *testing.T) {
	table := Default()
	parseAll := func(names ...string) []Moniker {
		out := make([]Moniker, len(names))
		for i, n := range names {
			out[i] = table.Parse(n)
		}
		return out
	}

	tests := []struct {
		name       string
		required   string
		candidates []Moniker
		want       string
		wantOK     bool
	}{
		{name: "exact beats family", required: "net45", candidates: parseAll("net40", "net45"), want: "net45", wantOK: true},
		{name: "highest in family", required: "net451", candidates: parseAll("net20", "net45", "net40"), want: "net45", wantOK: true},
		{name: "family beats portable", required: "net45", candidates: parseAll("portable-net45+win8", "net40"), want: "net40", wantOK: true},
		{name: "edges beat any", required: "aspnetcore50", candidates: []Moniker{Any, table.Parse("portable-net45+win8")}, want: "portable-net45+win8", wantOK: true},
		{name: "any as last resort", required: "aspnetcore50", candidates: []Moniker{table.Parse("net45"), Any}, want: "any", wantOK: true},
		{name: "nothing compatible", required: "aspnetcore50", candidates: parseAll("net45"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Nearest(table.Parse(tt.required), tt.candidates)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.ShortName())
			}
		})
	}
}

func TestLoadTable(t *testing.T) {
	custom := `
version: 1
baseline: net40
families:
  - identifier: .NETFramework
    short: net
    kind: desktop
  - identifier: Mono
    short: mono
    kind: desktop
compatible:
  - from: mono20
    to: [net45]
runtimes:
  mono: mono20
`
	table, err := LoadTable(strings.NewReader(custom))
	require.NoError(t, err)
	assert.Equal(t, "net40", table.ShortName(table.Baseline()))
	assert.True(t, table.IsCompatible(table.Parse("mono20"), table.Parse("net40")))
	assert.True(t, table.Parse("aspnet50").IsUnsupported(), "families absent from the table are unknown")

	m, ok := table.ForRuntime("x-mono-linux-x64.1")
	require.True(t, ok)
	assert.Equal(t, "mono20", table.ShortName(m))
}

func TestLoadTableErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "wrong version", data: "version: 2\nbaseline: net45\nfamilies: [{identifier: .NETFramework, short: net}]"},
		{name: "no families", data: "version: 1\nbaseline: net45"},
		{name: "unknown edge", data: "version: 1\nbaseline: net45\nfamilies: [{identifier: .NETFramework, short: net}]\ncompatible: [{from: foo10, to: [net45]}]"},
		{name: "unknown baseline", data: "version: 1\nbaseline: foo\nfamilies: [{identifier: .NETFramework, short: net}]"},
		{name: "unknown field", data: "version: 1\nbaseline: net45\nextra: true\nfamilies: [{identifier: .NETFramework, short: net}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestMonikerText(t *testing.T) {
	var m Moniker
	require.NoError(t, m.UnmarshalText([]byte("dnxcore50")))
	out, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "dnxcore50", string(out))
	assert.Equal(t, "net45", Baseline().ShortName())
}
