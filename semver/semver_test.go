package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func versions(raw ...string) []Version {
	out := make([]Version, len(raw))
	for i, r := range raw {
		out[i] = MustParseVersion(r)
	}
	return out
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		raw        string
		wantErr    bool
		wantPinned string
	}{
		{raw: "1.2.0", wantPinned: "1.2.0"},
		{raw: "=1.2.0", wantPinned: "1.2.0"},
		{raw: ">=1.0.0 <2.0.0"},
		{raw: "^1.2"},
		{raw: "", wantErr: true},
		{raw: "not a version", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r, err := ParseRange(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			pinned, ok := r.Pinned()
			if tt.wantPinned == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPinned, pinned.String())
		})
	}
}

func TestRangeAllows(t *testing.T) {
	tests := []struct {
		name    string
		r       *Range
		version string
		want    bool
	}{
		{name: "nil allows all", r: nil, version: "9.9.9", want: true},
		{name: "pinned match", r: MustParseRange("1.2.0"), version: "1.2.0", want: true},
		{name: "pinned mismatch", r: MustParseRange("1.2.0"), version: "1.3.0", want: false},
		{name: "caret", r: MustParseRange("^1.2.0"), version: "1.9.0", want: true},
		{name: "caret major", r: MustParseRange("^1.2.0"), version: "2.0.0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Allows(MustParseVersion(tt.version)))
		})
	}

	assert.False(t, (*Range)(nil).Allows(Version{}), "zero version is never allowed")
}

func TestBest(t *testing.T) {
	tests := []struct {
		name      string
		r         *Range
		available []Version
		want      string
		wantOK    bool
	}{
		{name: "pinned not latest", r: MustParseRange("1.2.0"), available: versions("1.2.0", "1.3.0"), want: "1.2.0", wantOK: true},
		{name: "highest in range", r: MustParseRange(">=1.0.0 <2.0.0"), available: versions("0.9.0", "1.1.0", "1.4.0", "2.0.0"), want: "1.4.0", wantOK: true},
		{name: "any prefers stable", r: nil, available: versions("1.0.0", "2.0.0-beta1"), want: "1.0.0", wantOK: true},
		{name: "any falls back to prerelease", r: nil, available: versions("2.0.0-beta1"), want: "2.0.0-beta1", wantOK: true},
		{name: "nothing satisfies", r: MustParseRange("3.0.0"), available: versions("1.0.0"), wantOK: false},
		{name: "empty", r: nil, available: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.r, tt.available)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestCompareZero(t *testing.T) {
	assert.Equal(t, 0, Compare(Version{}, Version{}))
	assert.Equal(t, -1, Compare(Version{}, MustParseVersion("0.0.1")))
	assert.Equal(t, 1, Compare(MustParseVersion("1.0.0"), MustParseVersion("0.9.0")))
}

func TestExactly(t *testing.T) {
	assert.Nil(t, Exactly(Version{}))
	r := Exactly(MustParseVersion("2.1.0"))
	pinned, ok := r.Pinned()
	require.True(t, ok)
	assert.Equal(t, "2.1.0", pinned.String())
}

func TestVersionText(t *testing.T) {
	var v Version
	require.NoError(t, v.UnmarshalText([]byte("1.0.0-rc1")))
	assert.Equal(t, "rc1", v.Prerelease())
	out, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-rc1", string(out))

	require.NoError(t, v.UnmarshalText(nil))
	assert.True(t, v.IsZero())
}
