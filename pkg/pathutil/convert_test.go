package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	cases := []struct {
		abs, root, want string
	}{
		{"/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"src/main.go", "/home/user/project", "src/main.go"},
		{"", "/root", ""},
		{"/a/b", "", "/a/b"},
		{"/home/user/project", "/home/user/project", "."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToRelative(tc.abs, tc.root), "abs=%q root=%q", tc.abs, tc.root)
	}
}

func TestToAbsolute(t *testing.T) {
	assert.Equal(t, "/r/sub/f.txt", ToAbsolute("sub/f.txt", "/r"))
	assert.Equal(t, "/already/abs", ToAbsolute("/already/abs", "/r"))
	assert.Equal(t, "", ToAbsolute("", "/r"))
}

func TestToRelativeAll(t *testing.T) {
	got := ToRelativeAll([]string{"/r/a", "/r/b/c", "/x/y"}, "/r")
	assert.Equal(t, []string{"a", "b/c", "/x/y"}, got)
}
