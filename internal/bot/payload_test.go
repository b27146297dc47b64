package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_roundTrip(t *testing.T) {
	tests := []struct {
		op   string
		args []string
	}{
		{"fls", []string{"/app/temp_downloads", "2"}},
		{"sel", []string{"a1b2c3d4", "0"}},
		{"ghinfo", []string{"octocat", "Spoon-Knife"}},
		{"fren", []string{"/app/my_file_with_underscores.txt"}},
		{"dl", []string{"https://github.com/u/r"}},
		{"x", []string{"a|b", "100%|done", ""}},
		{"noargs", nil},
	}
	for _, tt := range tests {
		data := encodePayload(tt.op, tt.args...)
		op, args, err := decodePayload(data)
		require.NoError(t, err)
		assert.Equal(t, tt.op, op)
		assert.Equal(t, len(tt.args), len(args))
		for i := range tt.args {
			assert.Equal(t, tt.args[i], args[i], "arg %d of %q", i, data)
		}
	}
}

func TestPayload_delimiterCollision(t *testing.T) {
	// An argument containing the delimiter must not split into two.
	data := encodePayload("op", "left|right")
	_, args, err := decodePayload(data)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, "left|right", args[0])
}

func TestPayload_empty(t *testing.T) {
	_, _, err := decodePayload("")
	assert.Error(t, err)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{`one two three`, []string{"one", "two", "three"}, false},
		{`repo "a description with spaces"`, []string{"repo", "a description with spaces"}, false},
		{`u/r README.md "# Title"`, []string{"u/r", "README.md", "# Title"}, false},
		{`  spaced   out  `, []string{"spaced", "out"}, false},
		{`""`, []string{""}, false},
		{`"unterminated`, nil, true},
		{``, nil, false},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestSplitOwnerRepo(t *testing.T) {
	owner, repo, ok := splitOwnerRepo("octocat/Spoon-Knife")
	assert.True(t, ok)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "Spoon-Knife", repo)

	for _, bad := range []string{"nope", "/repo", "owner/", ""} {
		if _, _, ok := splitOwnerRepo(bad); ok {
			t.Errorf("splitOwnerRepo(%q) accepted", bad)
		}
	}
}
