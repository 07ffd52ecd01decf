//go:build darwin

package scan

import (
	"golang.org/x/sys/unix"
)

// isVirtualMount is a no-op on darwin; there is no pseudo-filesystem zoo to
// dodge.
func isVirtualMount(_ string) bool {
	return false
}

// FSTypeOf probes the filesystem type name via statfs.
func FSTypeOf(path string) string {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "unknown"
	}
	n := 0
	for n < len(st.Fstypename) && st.Fstypename[n] != 0 {
		n++
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(st.Fstypename[i])
	}
	return string(b)
}

// ListRoots returns the filesystem root.
func ListRoots() []string {
	return []string{"/"}
}
