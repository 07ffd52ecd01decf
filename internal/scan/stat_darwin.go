//go:build darwin

package scan

import (
	"os"
	"syscall"
)

// statTimes extracts created/modified/accessed as Unix seconds. Darwin
// exposes a real birth time.
func statTimes(info os.FileInfo) (created, modified, accessed int64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Birthtimespec.Sec, st.Mtimespec.Sec, st.Atimespec.Sec
	}
	mod := info.ModTime().Unix()
	return mod, mod, mod
}
