//go:build linux

package scan

import (
	"os"
	"syscall"
)

// statTimes extracts created/modified/accessed as Unix seconds. Linux has
// no birth time in Stat_t; ctime is the closest portable stand-in.
func statTimes(info os.FileInfo) (created, modified, accessed int64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ctim.Sec, st.Mtim.Sec, st.Atim.Sec
	}
	mod := info.ModTime().Unix()
	return mod, mod, mod
}
